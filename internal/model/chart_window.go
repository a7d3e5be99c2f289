package model

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownChartWindow = errors.New("unknown chart window")

// ChartWindow is a fixed trailing period offered for historical charts.
// Code is the stable identifier; Label is what users see.
type ChartWindow struct {
	Code  string
	Label string
	Days  int
}

var (
	ChartWindowDay   = ChartWindow{Code: "chart_1d", Label: "1 day chart", Days: 1}
	ChartWindowWeek  = ChartWindow{Code: "chart_1w", Label: "1 week chart", Days: 7}
	ChartWindowMonth = ChartWindow{Code: "chart_1m", Label: "1 month chart", Days: 30}
)

// ChartWindows lists the windows in menu order.
var ChartWindows = []ChartWindow{ChartWindowDay, ChartWindowWeek, ChartWindowMonth}

const chartOptionPrefix = "Generate "

// OptionText is the overflow menu entry shown for the window.
func (w ChartWindow) OptionText() string {
	return chartOptionPrefix + w.Label
}

// Title is the label in title case, e.g. "1 Week Chart".
func (w ChartWindow) Title() string {
	words := strings.Fields(w.Label)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

// LookupChartWindow resolves a window by code, label or menu option text.
func LookupChartWindow(key string) (ChartWindow, error) {
	key = strings.TrimSpace(key)
	label := strings.TrimPrefix(key, chartOptionPrefix)
	for _, w := range ChartWindows {
		if key == w.Code || label == w.Label {
			return w, nil
		}
	}
	return ChartWindow{}, fmt.Errorf("%w: %q", ErrUnknownChartWindow, key)
}
