// Package chart renders the status snapshot as a bar chart of daily changes.
package chart

import (
	"bytes"
	"math"
	"os"

	"github.com/golang/freetype/truetype"
	"github.com/pkg/errors"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"price-drop-tracker/internal/types"
	"price-drop-tracker/lib/helpers"
)

var (
	backgroundColor = drawing.Color{R: 55, G: 55, B: 55, A: 255}
	textColor       = drawing.Color{R: 200, G: 200, B: 200, A: 255}
	gridColor       = drawing.Color{R: 100, G: 100, B: 100, A: 128}
	dropColor       = drawing.ColorFromHex("e74c3c")
	alertColor      = drawing.ColorFromHex("ff2d55")
	gainColor       = drawing.ColorFromHex("2ecc71")
)

const (
	barWidth   = 60
	barSpacing = 40
	minWidth   = 640
)

// ErrNoData is returned when the snapshot has no successfully checked symbol
var ErrNoData = errors.New("no checked symbols to chart")

// LoadFont parses a TrueType font for chart labels
func LoadFont(path string) (*truetype.Font, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not read chart font")
	}
	font, err := truetype.Parse(b)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse chart font")
	}
	return font, nil
}

// RenderStatus draws the change percentage of every checked symbol as PNG.
// A nil font uses the go-chart default.
func RenderStatus(snapshot *types.Snapshot, font *truetype.Font) ([]byte, error) {
	if snapshot == nil {
		return nil, ErrNoData
	}

	var bars []chart.Value
	for _, r := range snapshot.Results {
		if !r.Checked() {
			continue
		}

		color := gainColor
		if r.ChangePct < 0 {
			color = dropColor
		}
		if r.AlertSent {
			color = alertColor
		}

		label := r.Name
		if label == "" {
			label = r.Symbol
		}
		bars = append(bars, chart.Value{
			Label: label,
			Value: r.ChangePct,
			Style: chart.Style{FillColor: color, StrokeColor: color},
		})
	}
	if len(bars) == 0 {
		return nil, ErrNoData
	}

	min, max := valueRange(bars)
	width := len(bars)*(barWidth+barSpacing) + 160
	if width < minWidth {
		width = minWidth
	}

	graph := chart.BarChart{
		Title:      "Price Drop Tracker " + snapshot.Timestamp.Format("2006-01-02 15:04"),
		TitleStyle: chart.Style{FontColor: textColor},
		Width:      width,
		Height:     512,
		BarWidth:   barWidth,
		BarSpacing: barSpacing,
		Font:       font,
		Background: chart.Style{
			FillColor: backgroundColor,
			Padding:   chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 50},
		},
		Canvas: chart.Style{FillColor: backgroundColor},
		XAxis:  chart.Style{FontColor: textColor, StrokeColor: textColor},
		YAxis: chart.YAxis{
			Style:          chart.Style{FontColor: textColor, StrokeColor: textColor},
			Range:          &chart.ContinuousRange{Min: min, Max: max},
			ValueFormatter: formatTick,
			GridMajorStyle: chart.Style{StrokeColor: gridColor, StrokeWidth: 1},
		},
		UseBaseValue: true,
		BaseValue:    0,
		Bars:         bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, errors.Wrap(err, "could not render status chart")
	}
	return buf.Bytes(), nil
}

// valueRange pads the bar values and always includes zero so the base line is visible
func valueRange(bars []chart.Value) (float64, float64) {
	min, max := 0.0, 0.0
	for _, b := range bars {
		min = math.Min(min, b.Value)
		max = math.Max(max, b.Value)
	}

	padding := (max - min) * 0.1
	if padding == 0 {
		padding = 1
	}
	return min - padding, max + padding
}

func formatTick(v interface{}) string {
	if f, ok := v.(float64); ok {
		return helpers.FormatPercent(f, 1, false)
	}
	return ""
}
