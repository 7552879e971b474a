package models

// Color is a "#rrggbb" hex color.
type Color string

// TimelinePoint is one trading day of the backend timeline.
type TimelinePoint struct {
	Date   Date        `json:"date"`
	Close  float64     `json:"close"`
	Regime RegimeLabel `json:"regime_label"`
}

// Segment is the stroke between two consecutive points, colored by the later point.
type Segment struct {
	Start  TimelinePoint `json:"start"`
	End    TimelinePoint `json:"end"`
	Regime RegimeLabel   `json:"regime"`
	Color  Color         `json:"color"`
}

// GradientStop is one stop of a horizontal gradient along the series, offset in [0,1].
type GradientStop struct {
	Offset float64 `json:"offset"`
	Color  Color   `json:"color"`
}

// Run is a maximal chain of same-color segments. Boundary points are shared with neighbours.
type Run struct {
	Regime RegimeLabel     `json:"regime"`
	Color  Color           `json:"color"`
	From   Date            `json:"from"`
	To     Date            `json:"to"`
	Points []TimelinePoint `json:"points"`
}

// TimelineView is the segmented timeline window published alongside a guidance view.
type TimelineView struct {
	Points   []TimelinePoint `json:"points"`
	Segments []Segment       `json:"segments"`
	Stops    []GradientStop  `json:"stops"`
	Runs     []Run           `json:"runs"`
}
