package scheduler

import (
	"context"
	"fmt"
	"time"

	"syslog-relay/config"
	"syslog-relay/internal/chart"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"
)

// NewChartSweeper schedules removal of stale rendered charts.
func NewChartSweeper(lc fx.Lifecycle, cfg *config.Config) (*cron.Cron, error) {
	c, err := newChartSweeper(cfg.Chart)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msg("Starting cron scheduler")
			c.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Stopping cron scheduler...")
			stopCtx := c.Stop()
			select {
			case <-stopCtx.Done():
				log.Info().Msg("Cron scheduler stopped gracefully.")
				return nil
			case <-ctx.Done():
				log.Error().Msg("Context cancelled while waiting for cron scheduler to stop.")
				return ctx.Err()
			}
		},
	})
	return c, nil
}

func newChartSweeper(cfg config.ChartConfig) (*cron.Cron, error) {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.DowOptional | cron.Descriptor)
	c := cron.New(cron.WithParser(parser))

	_, err := c.AddFunc(cfg.SweepSchedule, func() {
		sweepCharts(cfg.Directory, cfg.MaxAge)
	})
	if err != nil {
		log.Error().Err(err).Str("schedule", cfg.SweepSchedule).Msg("Failed to add cron job")
		return nil, fmt.Errorf("invalid chart sweep schedule %q: %w", cfg.SweepSchedule, err)
	}
	log.Info().Str("schedule", cfg.SweepSchedule).Dur("max_age", cfg.MaxAge).Msg("Scheduled chart sweep job")
	return c, nil
}

func sweepCharts(dir string, maxAge time.Duration) {
	removed, err := chart.Sweep(dir, maxAge, time.Now())
	if err != nil {
		log.Error().Err(err).Str("dir", dir).Msg("Error during scheduled chart sweep")
		return
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Str("dir", dir).Msg("Removed stale charts")
	}
}
