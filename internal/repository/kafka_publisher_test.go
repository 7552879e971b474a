package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"RegimeDash/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	topic string
	key   []byte
	value interface{}
}

type fakeProducer struct {
	msgs []sent
	err  error
}

func (f *fakeProducer) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, sent{topic, key, value})
	return nil
}

func TestSnapshotPublisherSkipsIntermediatePhases(t *testing.T) {
	p := &fakeProducer{}
	pub := NewKafkaSnapshotPublisher(p, "regime.snapshots")

	for _, phase := range []models.Phase{models.PhaseIdle, models.PhaseFetching, models.PhaseSettling} {
		require.NoError(t, pub.Publish(context.Background(), models.Snapshot{Seq: 1, Phase: phase}))
	}
	assert.Empty(t, p.msgs)
	assert.Equal(t, "kafka", pub.Name())
}

func TestSnapshotPublisherWritesReady(t *testing.T) {
	p := &fakeProducer{}
	pub := NewKafkaSnapshotPublisher(p, "regime.snapshots")
	now := time.Date(2024, 11, 21, 9, 0, 0, 0, time.UTC)

	snap := models.Snapshot{
		Seq:        12,
		Phase:      models.PhaseReady,
		ActiveDate: models.MustParseDate("2024-11-21"),
		View: &models.GuidanceView{
			Regime:           models.RegimeCrisis,
			Severity:         models.SeverityHigh,
			EarlyWarningProb: 82,
			Allocation:       models.Allocation{Equity: 10, Debt: 50, Cash: 40},
		},
		UpdatedAt: now,
	}
	require.NoError(t, pub.Publish(context.Background(), snap))
	require.Len(t, p.msgs, 1)

	msg := p.msgs[0]
	assert.Equal(t, "regime.snapshots", msg.topic)
	assert.Equal(t, []byte("12"), msg.key)
	ev, ok := msg.value.(models.SnapshotEvent)
	require.True(t, ok)
	assert.Equal(t, models.RegimeCrisis, ev.Regime)
	assert.Equal(t, models.SeverityHigh, ev.Severity)
	assert.Equal(t, &models.Allocation{Equity: 10, Debt: 50, Cash: 40}, ev.Allocation)
	assert.Equal(t, now, ev.Timestamp)
	assert.Empty(t, ev.ErrorKind)
}

func TestSnapshotEventCarriesError(t *testing.T) {
	ev := models.NewSnapshotEvent(models.Snapshot{
		Seq:   3,
		Phase: models.PhaseReady,
		Error: &models.SessionError{Kind: models.ErrorKindNetwork, Message: "down"},
	})
	assert.Equal(t, models.ErrorKindNetwork, ev.ErrorKind)
	assert.Nil(t, ev.Allocation)
	assert.Empty(t, ev.Regime)
}

func TestSnapshotPublisherPropagatesError(t *testing.T) {
	boom := errors.New("leader not available")
	pub := NewKafkaSnapshotPublisher(&fakeProducer{err: boom}, "t")
	err := pub.Publish(context.Background(), models.Snapshot{Phase: models.PhaseReady})
	assert.ErrorIs(t, err, boom)
}

func TestLogPublisherUsesNilKey(t *testing.T) {
	p := &fakeProducer{}
	pub := NewKafkaLogPublisher(p)
	require.NoError(t, pub.PublishMessage(context.Background(), "regime.logs", []string{"a"}))
	require.Len(t, p.msgs, 1)
	assert.Equal(t, "regime.logs", p.msgs[0].topic)
	assert.Nil(t, p.msgs[0].key)
	assert.Equal(t, []string{"a"}, p.msgs[0].value)
}
