package chart

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"syslog-relay/config"
	"syslog-relay/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	gochart "github.com/wcharczuk/go-chart/v2"
)

var ErrRenderFailure = errors.New("chart render failed")

const (
	fileSuffix   = "-chart.png"
	yAxisName    = "# of Error Syslogs"
	xLabelLayout = "Jan 02"

	barWidth   = 40
	barSpacing = 12
	minWidth   = 1024
	height     = 512
)

// Renderer turns a day series into an image file.
type Renderer interface {
	// Render writes a PNG and returns its path. The caller owns the file.
	Render(ctx context.Context, title string, series []model.DayCount) (string, error)
}

type barRenderer struct {
	dir string
}

func NewRenderer(cfg *config.Config) (Renderer, error) {
	if err := os.MkdirAll(cfg.Chart.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("create chart directory %s: %w", cfg.Chart.Directory, err)
	}
	return &barRenderer{dir: cfg.Chart.Directory}, nil
}

func (r *barRenderer) Render(ctx context.Context, title string, series []model.DayCount) (string, error) {
	if len(series) == 0 {
		return "", fmt.Errorf("%w: empty series", ErrRenderFailure)
	}

	maxCount := 1
	bars := make([]gochart.Value, 0, len(series))
	for _, p := range series {
		if p.Count > maxCount {
			maxCount = p.Count
		}
		bars = append(bars, gochart.Value{Label: p.Date.Format(xLabelLayout), Value: float64(p.Count)})
	}

	width := len(series)*(barWidth+barSpacing) + 200
	if width < minWidth {
		width = minWidth
	}
	graph := gochart.BarChart{
		Title:      title,
		Width:      width,
		Height:     height,
		BarWidth:   barWidth,
		BarSpacing: barSpacing,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20}},
		XAxis:      gochart.Style{TextRotationDegrees: 45},
		YAxis: gochart.YAxis{
			Name:  yAxisName,
			Range: &gochart.ContinuousRange{Min: 0, Max: float64(maxCount)},
		},
		Bars: bars,
	}

	path := filepath.Join(r.dir, uuid.NewString()+fileSuffix)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRenderFailure, err)
	}
	if err := graph.Render(gochart.PNG, f); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("%w: %v", ErrRenderFailure, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("%w: %v", ErrRenderFailure, err)
	}
	log.Debug().Str("path", path).Int("points", len(series)).Msg("Chart rendered")
	return path, nil
}

// Sweep removes rendered charts in dir last modified before now-maxAge and
// returns how many were removed.
func Sweep(dir string, maxAge time.Duration, now time.Time) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+fileSuffix))
	if err != nil {
		return 0, err
	}
	cutoff := now.Add(-maxAge)
	removed := 0
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Failed to remove stale chart")
			continue
		}
		removed++
	}
	return removed, nil
}
