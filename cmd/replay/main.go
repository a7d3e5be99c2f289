// Command replay sends a capture file of syslog lines to a running relay.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"syslog-relay/internal/logging"
	"syslog-relay/internal/replay"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run returns the process exit code: 0 on success, 1 when a replay fails
// and 2 on bad usage.
func run(args []string) int {
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	target := fs.String("target", "127.0.0.1:5140", "listener address host:port")
	stateFile := fs.String("state", ".replay_state.json", "file recording replay progress")
	interval := fs.Duration("interval", 0, "pause between datagrams")
	logLevel := fs.String("log-level", "info", "log level")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	logging.Init(*logLevel, "console")
	if fs.NArg() == 0 {
		log.Error().Msg("usage: replay [flags] <capture file>...")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := replay.NewReplayer(*target, *interval, replay.NewStateManager(*stateFile))
	start := time.Now()
	total := 0
	for _, path := range fs.Args() {
		sent, err := r.ReplayFile(ctx, path)
		total += sent
		if err != nil {
			log.Error().Err(err).Str("file", path).Int("sent", total).Msg("Replay failed")
			return 1
		}
	}
	log.Info().Int("sent", total).Dur("elapsed", time.Since(start)).Msg("Done")
	return 0
}
