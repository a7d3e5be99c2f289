package listener

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"syslog-relay/config"
	"syslog-relay/internal/parser"
	"syslog-relay/internal/service"

	"github.com/rs/zerolog/log"
	"go.uber.org/fx"
	"golang.org/x/sys/unix"
)

// Listener receives syslog datagrams and hands each one to the ingest
// service on its own goroutine.
type Listener struct {
	cfg    config.ListenerConfig
	ingest service.IngestService

	conn      *net.UDPConn
	wg        sync.WaitGroup
	handleCtx context.Context
	abandon   context.CancelFunc
	loopDone  chan struct{}
}

func NewListener(cfg *config.Config, ingest service.IngestService) *Listener {
	return &Listener{cfg: cfg.Listener, ingest: ingest}
}

// RegisterListener binds the socket when the application starts and drains
// it when the application stops.
func RegisterListener(lc fx.Lifecycle, l *Listener) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return l.Start()
		},
		OnStop: func(ctx context.Context) error {
			return l.Stop(ctx)
		},
	})
}

// Start binds host:port and begins reading. A bind failure is returned.
func (l *Listener) Start() error {
	if l.cfg.ReclaimPort && l.cfg.Port > 0 {
		reclaimPort(l.cfg.Port)
	}

	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(l.cfg.Host, strconv.Itoa(l.cfg.Port)))
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		log.Error().Err(err).Str("addr", addr.String()).Msg("Failed to bind syslog listener")
		return fmt.Errorf("bind %s: %w", addr, err)
	}
	l.conn = conn
	l.handleCtx, l.abandon = context.WithCancel(context.Background())
	l.loopDone = make(chan struct{})
	log.Info().Str("addr", conn.LocalAddr().String()).Msg("Syslog listener started")

	go l.serve()
	return nil
}

// Addr is the bound local address, or nil before Start.
func (l *Listener) Addr() net.Addr {
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

func (l *Listener) serve() {
	defer close(l.loopDone)

	size := l.cfg.ReadBufferSize
	if size <= 0 {
		size = 8192
	}
	buf := make([]byte, size)
	for {
		n, remote, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Error().Err(err).Msg("Error reading syslog datagram")
			time.Sleep(100 * time.Millisecond)
			continue
		}
		payload := make([]byte, n)
		copy(payload, buf[:n])

		l.wg.Add(1)
		go l.handle(payload, remote)
	}
}

func (l *Listener) handle(payload []byte, remote *net.UDPAddr) {
	defer l.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("source_ip", remote.IP.String()).Msg("Recovered from panic handling datagram")
		}
	}()

	sourceIP := remote.IP.String()
	_, err := l.ingest.Ingest(l.handleCtx, payload, sourceIP, remote.Port)
	switch {
	case err == nil:
	case errors.Is(err, parser.ErrMalformedRecord):
		log.Warn().Err(err).Str("source_ip", sourceIP).Str("payload", string(payload)).Msg("Dropping malformed syslog datagram")
	default:
		log.Error().Err(err).Str("source_ip", sourceIP).Msg("Failed to ingest syslog datagram")
	}
}

// Stop closes the socket and waits for in-flight handlers up to the
// configured shutdown timeout, then abandons them.
func (l *Listener) Stop(ctx context.Context) error {
	if l.conn == nil {
		return nil
	}
	log.Info().Msg("Stopping syslog listener...")
	if err := l.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		log.Warn().Err(err).Msg("Error closing syslog socket")
	}
	<-l.loopDone

	drained := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(drained)
	}()

	timeout := l.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-drained:
		log.Info().Msg("Syslog listener stopped, all handlers finished")
	case <-timer.C:
		log.Warn().Dur("timeout", timeout).Msg("Abandoning in-flight syslog handlers")
	case <-ctx.Done():
		log.Warn().Err(ctx.Err()).Msg("Abandoning in-flight syslog handlers")
	}
	l.abandon()
	return nil
}

// reclaimPort kills any other process holding the UDP port. It is best
// effort: missing lsof or a failed kill is only logged.
func reclaimPort(port int) {
	out, err := exec.Command("lsof", "-t", "-i", fmt.Sprintf("UDP:%d", port)).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			log.Warn().Err(err).Int("port", port).Msg("Unable to look up processes holding port")
		}
		return
	}
	self := os.Getpid()
	for _, pid := range parsePIDs(string(out)) {
		if pid == self {
			continue
		}
		if err := unix.Kill(pid, unix.SIGKILL); err != nil {
			log.Warn().Err(err).Int("pid", pid).Int("port", port).Msg("Failed to kill process holding port")
			continue
		}
		log.Info().Int("pid", pid).Int("port", port).Msg("Killed process holding port")
	}
}

func parsePIDs(out string) []int {
	var pids []int
	for _, field := range strings.Fields(out) {
		pid, err := strconv.Atoi(field)
		if err == nil && pid > 0 {
			pids = append(pids, pid)
		}
	}
	return pids
}
