package timeline

import (
	"fmt"
	"math"
	"sort"

	"RegimeDash/internal/domain/models"
)

// Palette resolves the line color of a regime.
type Palette interface {
	Color(regime models.RegimeLabel) (models.Color, error)
}

// Segmenter turns an ordered price series into regime-colored drawables.
// It keeps no state between calls; identical input yields identical output.
type Segmenter struct {
	palette Palette
}

// NewSegmenter creates a segmenter using palette for colors.
func NewSegmenter(palette Palette) *Segmenter {
	return &Segmenter{palette: palette}
}

// Validate checks ordering and values of points. Failures wrap models.ErrMalformedPayload.
func (s *Segmenter) Validate(points []models.TimelinePoint) error {
	for i, p := range points {
		if p.Date.IsZero() {
			return fmt.Errorf("%w: point %d has no date", models.ErrMalformedPayload, i)
		}
		if math.IsNaN(p.Close) || math.IsInf(p.Close, 0) || p.Close <= 0 {
			return fmt.Errorf("%w: point %d (%s) close %v must be positive", models.ErrMalformedPayload, i, p.Date, p.Close)
		}
		if !p.Regime.Valid() {
			return fmt.Errorf("%w: %w: point %d (%s) label %q", models.ErrMalformedPayload, models.ErrUnknownRegime, i, p.Date, p.Regime)
		}
		if i > 0 && !points[i-1].Date.Before(p.Date) {
			return fmt.Errorf("%w: point %d (%s) is not after %s", models.ErrMalformedPayload, i, p.Date, points[i-1].Date)
		}
	}
	return nil
}

// Segment emits one segment per consecutive pair, colored by the later point.
// Fewer than two points yield no segments.
func (s *Segmenter) Segment(points []models.TimelinePoint) ([]models.Segment, error) {
	if err := s.Validate(points); err != nil {
		return nil, err
	}
	colors, err := s.colors(points)
	if err != nil {
		return nil, err
	}
	if len(points) < 2 {
		return []models.Segment{}, nil
	}

	out := make([]models.Segment, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		out = append(out, models.Segment{
			Start:  points[i-1],
			End:    points[i],
			Regime: points[i].Regime,
			Color:  colors[i],
		})
	}
	return out, nil
}

// GradientStops emits two stops per point at offset i/(n-1). The first stop closes
// the stroke arriving at the point, the second opens the stroke leaving it, so a
// regime change is a hard edge at the boundary point. The first point has no
// arriving stroke, so its first stop carries its own color. Fewer than two points
// yield none.
func (s *Segmenter) GradientStops(points []models.TimelinePoint) ([]models.GradientStop, error) {
	if err := s.Validate(points); err != nil {
		return nil, err
	}
	colors, err := s.colors(points)
	if err != nil {
		return nil, err
	}
	n := len(points)
	if n < 2 {
		return []models.GradientStop{}, nil
	}

	out := make([]models.GradientStop, 0, 2*n)
	for i := range points {
		offset := float64(i) / float64(n-1)
		arrive, leave := colors[i], colors[i]
		if i < n-1 {
			leave = colors[i+1]
		}
		out = append(out,
			models.GradientStop{Offset: offset, Color: arrive},
			models.GradientStop{Offset: offset, Color: leave},
		)
	}
	return out, nil
}

// Runs coalesces consecutive same-color segments. Adjacent runs share their boundary point.
func Runs(segments []models.Segment) []models.Run {
	var out []models.Run
	for _, seg := range segments {
		if n := len(out); n > 0 && out[n-1].Color == seg.Color {
			last := &out[n-1]
			last.To = seg.End.Date
			last.Points = append(last.Points, seg.End)
			continue
		}
		out = append(out, models.Run{
			Regime: seg.Regime,
			Color:  seg.Color,
			From:   seg.Start.Date,
			To:     seg.End.Date,
			Points: []models.TimelinePoint{seg.Start, seg.End},
		})
	}
	if out == nil {
		return []models.Run{}
	}
	return out
}

// Slice returns a copy of the last window points dated on or before end.
// A non-positive window keeps every eligible point; a zero end keeps the whole series.
func Slice(points []models.TimelinePoint, end models.Date, window int) []models.TimelinePoint {
	stop := len(points)
	if !end.IsZero() {
		stop = 0
		for stop < len(points) && !points[stop].Date.After(end) {
			stop++
		}
	}
	start := 0
	if window > 0 && stop-window > start {
		start = stop - window
	}
	return append([]models.TimelinePoint{}, points[start:stop]...)
}

// Build slices the series to the window ending at end and derives every drawable.
func (s *Segmenter) Build(points []models.TimelinePoint, end models.Date, window int) (*models.TimelineView, error) {
	if err := s.Validate(points); err != nil {
		return nil, err
	}
	sliced := Slice(points, end, window)

	segments, err := s.Segment(sliced)
	if err != nil {
		return nil, err
	}
	stops, err := s.GradientStops(sliced)
	if err != nil {
		return nil, err
	}
	return &models.TimelineView{
		Points:   sliced,
		Segments: segments,
		Stops:    stops,
		Runs:     Runs(segments),
	}, nil
}

// LabelOn returns the regime recorded for date, if points contain it.
func LabelOn(points []models.TimelinePoint, date models.Date) (models.RegimeLabel, bool) {
	i := sort.Search(len(points), func(i int) bool { return !points[i].Date.Before(date) })
	if i < len(points) && points[i].Date.Same(date) {
		return points[i].Regime, true
	}
	return "", false
}

func (s *Segmenter) colors(points []models.TimelinePoint) ([]models.Color, error) {
	out := make([]models.Color, len(points))
	for i, p := range points {
		c, err := s.palette.Color(p.Regime)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", models.ErrMalformedPayload, err)
		}
		out[i] = c
	}
	return out, nil
}
