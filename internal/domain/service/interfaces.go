package service

import (
	"context"

	"RegimeDash/internal/domain/models"
)

// GuidanceBackend is the classification/statistics service consumed by the session.
// Implementations classify failures as models.ErrNetworkFailure or models.ErrMalformedPayload.
type GuidanceBackend interface {
	Guidance(ctx context.Context, date models.Date, persona models.Persona) (*models.GuidancePayload, error)
	Timeline(ctx context.Context) ([]models.TimelinePoint, error)
	RandomQuote(ctx context.Context) (*models.Quote, error)
}
