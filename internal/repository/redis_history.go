package repository

import (
	"context"
	"fmt"

	"RegimeDash/internal/domain/models"
	domrepo "RegimeDash/internal/domain/repository"
	"RegimeDash/pkg/queue"
)

const historyType = "snapshots"

// Journal is the part of queue.RedisQueue the history store uses.
type Journal interface {
	PublishMessage(ctx context.Context, msgType string, payload interface{}) error
	Recent(ctx context.Context, msgType string, n int64) ([]queue.Message, error)
}

// RedisSnapshotHistory keeps the most recent Ready snapshots in a capped Redis list.
type RedisSnapshotHistory struct {
	journal Journal
}

var _ domrepo.SnapshotPublisher = (*RedisSnapshotHistory)(nil)

func NewRedisSnapshotHistory(j Journal) *RedisSnapshotHistory {
	return &RedisSnapshotHistory{journal: j}
}

func (h *RedisSnapshotHistory) Name() string { return "redis" }

func (h *RedisSnapshotHistory) Publish(ctx context.Context, s models.Snapshot) error {
	if s.Phase != models.PhaseReady {
		return nil
	}
	return h.journal.PublishMessage(ctx, historyType, models.NewSnapshotEvent(s))
}

// Recent returns up to n settled snapshots, newest first.
func (h *RedisSnapshotHistory) Recent(ctx context.Context, n int) ([]models.SnapshotEvent, error) {
	msgs, err := h.journal.Recent(ctx, historyType, int64(n))
	if err != nil {
		return nil, err
	}
	out := make([]models.SnapshotEvent, 0, len(msgs))
	for _, m := range msgs {
		ev, err := queue.ParsePayload[models.SnapshotEvent](m.Payload)
		if err != nil {
			return nil, fmt.Errorf("decode history entry %s: %w", m.ID, err)
		}
		out = append(out, *ev)
	}
	return out, nil
}
