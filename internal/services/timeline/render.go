package timeline

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"RegimeDash/internal/domain/models"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNothingToRender is returned when the view has no runs to draw.
var ErrNothingToRender = errors.New("timeline has fewer than two points")

// RenderPNG draws one line series per run in the run's regime color.
func RenderPNG(view *models.TimelineView, width, height int) ([]byte, error) {
	if view == nil || len(view.Runs) == 0 {
		return nil, ErrNothingToRender
	}

	series := make([]chart.Series, 0, len(view.Runs))
	for _, run := range view.Runs {
		xs := make([]time.Time, len(run.Points))
		ys := make([]float64, len(run.Points))
		for i, p := range run.Points {
			xs[i] = p.Date.Time
			ys[i] = p.Close
		}
		series = append(series, chart.TimeSeries{
			Name:    string(run.Regime),
			XValues: xs,
			YValues: ys,
			Style:   lineStyle(run.Color),
		})
	}

	ch := chart.Chart{
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 14, Left: 16, Right: 12, Bottom: 24}},
		XAxis:      chart.XAxis{ValueFormatter: chart.TimeDateValueFormatter},
		YAxis:      chart.YAxis{Name: "Close"},
		Series:     series,
	}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render timeline: %w", err)
	}
	return buf.Bytes(), nil
}

func lineStyle(c models.Color) chart.Style {
	return chart.Style{
		StrokeColor: drawing.ColorFromHex(strings.TrimPrefix(string(c), "#")),
		StrokeWidth: 2,
	}
}
