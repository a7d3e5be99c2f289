package chart

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"syslog-relay/config"
	"syslog-relay/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderWritesPNG(t *testing.T) {
	dir := t.TempDir()
	r, err := NewRenderer(&config.Config{Chart: config.ChartConfig{Directory: dir}})
	require.NoError(t, err)

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	series := make([]model.DayCount, 0, 8)
	for i := 0; i < 8; i++ {
		series = append(series, model.DayCount{Date: start.AddDate(0, 0, i), Count: i % 3})
	}

	path, err := r.Render(context.Background(), "1 Week Chart for 10.0.0.1", series)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, "-chart.png"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}

func TestRenderAllZero(t *testing.T) {
	r, err := NewRenderer(&config.Config{Chart: config.ChartConfig{Directory: t.TempDir()}})
	require.NoError(t, err)

	series := []model.DayCount{
		{Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{Date: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)},
	}
	_, err = r.Render(context.Background(), "1 Day Chart for 10.0.0.1", series)
	assert.NoError(t, err)
}

func TestRenderEmptySeries(t *testing.T) {
	r, err := NewRenderer(&config.Config{Chart: config.ChartConfig{Directory: t.TempDir()}})
	require.NoError(t, err)

	_, err = r.Render(context.Background(), "empty", nil)
	assert.ErrorIs(t, err, ErrRenderFailure)
}

func TestSweep(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	stale := filepath.Join(dir, "a-chart.png")
	fresh := filepath.Join(dir, "b-chart.png")
	other := filepath.Join(dir, "notes.txt")
	for _, p := range []string{stale, fresh, other} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
	old := now.Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))
	require.NoError(t, os.Chtimes(other, old, old))

	removed, err := Sweep(dir, time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
	assert.FileExists(t, other)
}
