package repository

import (
	"context"

	"RegimeDash/internal/domain/models"
)

// SnapshotPublisher is a downstream sink for committed session snapshots.
type SnapshotPublisher interface {
	Name() string
	Publish(ctx context.Context, s models.Snapshot) error
}

type Metrics interface {
	RecordTransition(phase models.Phase)
	RecordSuperseded()
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordPublished(sink string, ok bool)
	RecordEarlyWarning(prob float64)
	RecordBufferDepth(sink string, depth int)
}
