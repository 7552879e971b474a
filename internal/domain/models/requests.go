package models

// Requests for the presentation HTTP endpoints.

type DateRequest struct {
	Date string `json:"date" query:"date" validate:"required,datetime=2006-01-02"`
}

type ChartRequest struct {
	Width  int `query:"width" default:"1024" validate:"gte=200,lte=4096"`
	Height int `query:"height" default:"320" validate:"gte=100,lte=2048"`
}

type HistoryRequest struct {
	Limit int `query:"limit" default:"20" validate:"gte=1,lte=200"`
}
