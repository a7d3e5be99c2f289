package replay

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Replayer sends the lines of a capture file to a syslog listener, one
// datagram per line.
type Replayer struct {
	target   string
	interval time.Duration
	state    StateManager
}

func NewReplayer(target string, interval time.Duration, state StateManager) *Replayer {
	return &Replayer{target: target, interval: interval, state: state}
}

// ReplayFile sends every line of path not sent by a previous run and
// returns how many datagrams were sent.
func (r *Replayer) ReplayFile(ctx context.Context, path string) (int, error) {
	progress, err := r.state.Load()
	if err != nil {
		return 0, fmt.Errorf("load replay state: %w", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	conn, err := net.Dial("udp", r.target)
	if err != nil {
		return 0, fmt.Errorf("dial %s: %w", r.target, err)
	}
	defer conn.Close()

	done := progress[path]
	var line int64
	sent := 0
	scanner := bufio.NewScanner(file)
	defer func() {
		progress[path] = done
		if err := r.state.Save(progress); err != nil {
			log.Error().Err(err).Msg("Failed to save replay state")
		}
	}()

	for scanner.Scan() {
		line++
		if line <= done {
			continue
		}
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		text := strings.TrimSpace(scanner.Text())
		if text != "" {
			if _, err := conn.Write([]byte(text)); err != nil {
				return sent, fmt.Errorf("send line %d: %w", line, err)
			}
			sent++
		}
		done = line
		if r.interval > 0 {
			time.Sleep(r.interval)
		}
	}
	if err := scanner.Err(); err != nil {
		return sent, err
	}
	log.Info().Str("file", path).Int("sent", sent).Int64("lines", done).Msg("Replay finished")
	return sent, nil
}
