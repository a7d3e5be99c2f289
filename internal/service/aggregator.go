package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"syslog-relay/internal/model"
	"syslog-relay/internal/repository"
	"syslog-relay/internal/util"

	"github.com/rs/zerolog/log"
)

// Aggregator builds dense per-day error counts for a device.
type Aggregator interface {
	// Aggregate returns one point per UTC calendar day from start's day
	// through end's day, counting records created in [start, end).
	Aggregate(ctx context.Context, sourceIP string, start, end time.Time) ([]model.DayCount, error)
}

type aggregator struct {
	store repository.Store
}

func NewAggregator(store repository.Store) Aggregator {
	return &aggregator{store: store}
}

func (a *aggregator) Aggregate(ctx context.Context, sourceIP string, start, end time.Time) ([]model.DayCount, error) {
	if end.Before(start) {
		return nil, errors.New("end cannot be before start")
	}
	log.Debug().Str("source_ip", sourceIP).Time("start", start).Time("end", end).Msg("Aggregating day counts")

	buckets, err := a.store.CountByDay(ctx, sourceIP, start, end)
	if err != nil {
		return nil, fmt.Errorf("count by day for %s: %w", sourceIP, err)
	}
	return Densify(buckets, start, end), nil
}

// Densify expands sparse buckets into a series with one point per day in
// the inclusive day range of start and end. Buckets outside it are ignored.
func Densify(buckets []model.DayBucket, start, end time.Time) []model.DayCount {
	counts := make(map[time.Time]int, len(buckets))
	for _, b := range buckets {
		counts[time.Date(b.Year, b.Month, b.Day, 0, 0, 0, 0, time.UTC)] += b.Count
	}

	first := util.DayUTC(start)
	n := util.DaysInclusive(start, end)
	series := make([]model.DayCount, 0, n)
	for i := 0; i < n; i++ {
		day := first.AddDate(0, 0, i)
		series = append(series, model.DayCount{Date: day, Count: counts[day]})
	}
	return series
}
