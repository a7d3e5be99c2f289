package service

import (
	"context"
	"testing"
	"time"

	"syslog-relay/internal/model"
	"syslog-relay/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateEmptyWindowIsDense(t *testing.T) {
	agg := NewAggregator(store.NewInMemoryStore())
	end := time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)
	start := end.AddDate(0, 0, -7)

	series, err := agg.Aggregate(context.Background(), "10.0.0.1", start, end)
	require.NoError(t, err)
	require.Len(t, series, 8)
	for i, p := range series {
		assert.Equal(t, time.Date(2024, 3, 3+i, 0, 0, 0, 0, time.UTC), p.Date)
		assert.Zero(t, p.Count)
	}
}

func TestAggregateSingleRecordOnThirdDay(t *testing.T) {
	st := store.NewInMemoryStore()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 7, 23, 0, 0, 0, time.UTC)

	_, err := st.SaveLogRecord(context.Background(), &model.LogRecord{
		SourceIP: "10.0.0.1", SeverityLevel: 1, Message: "eth0 down",
		CreatedAt: time.Date(2024, 3, 3, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	_, err = st.SaveLogRecord(context.Background(), &model.LogRecord{
		SourceIP: "10.0.0.2", SeverityLevel: 1, Message: "other device",
		CreatedAt: time.Date(2024, 3, 3, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	series, err := NewAggregator(st).Aggregate(context.Background(), "10.0.0.1", start, end)
	require.NoError(t, err)
	require.Len(t, series, 7)
	for i, p := range series {
		if i == 2 {
			assert.Equal(t, 1, p.Count)
			continue
		}
		assert.Zero(t, p.Count, "day %d", i+1)
	}
}

func TestAggregateRejectsReversedRange(t *testing.T) {
	now := time.Now()
	_, err := NewAggregator(store.NewInMemoryStore()).Aggregate(context.Background(), "10.0.0.1", now, now.Add(-time.Hour))
	assert.Error(t, err)
}

func TestDensifyIgnoresOutOfRangeBuckets(t *testing.T) {
	start := time.Date(2024, 1, 30, 8, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 2, 8, 0, 0, 0, time.UTC)
	buckets := []model.DayBucket{
		{Day: 31, Month: time.January, Year: 2024, Count: 4},
		{Day: 1, Month: time.February, Year: 2024, Count: 2},
		{Day: 1, Month: time.February, Year: 2023, Count: 9},
	}

	series := Densify(buckets, start, end)
	require.Len(t, series, 4)
	assert.Equal(t, []int{0, 4, 2, 0}, []int{series[0].Count, series[1].Count, series[2].Count, series[3].Count})
}
