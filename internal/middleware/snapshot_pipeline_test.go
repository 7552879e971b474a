package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"RegimeDash/internal/domain/models"
	domrepo "RegimeDash/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	name     string
	mu       sync.Mutex
	got      []uint64
	failures int
	calls    int
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Publish(_ context.Context, snap models.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failures > 0 {
		s.failures--
		return errors.New("broker unavailable")
	}
	s.got = append(s.got, snap.Seq)
	return nil
}

func (s *recordingSink) seqs() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint64(nil), s.got...)
}

type publishCall struct {
	sink string
	ok   bool
}

type fakeMetrics struct {
	mu        sync.Mutex
	published []publishCall
	errors    []string
	depth     map[string]int
}

func (m *fakeMetrics) RecordTransition(models.Phase) {}
func (m *fakeMetrics) RecordSuperseded()             {}
func (m *fakeMetrics) RecordLatency(string, float64) {}
func (m *fakeMetrics) RecordEarlyWarning(float64)    {}
func (m *fakeMetrics) RecordBufferDepth(sink string, depth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.depth == nil {
		m.depth = make(map[string]int)
	}
	m.depth[sink] = depth
}
func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, kind)
}
func (m *fakeMetrics) RecordPublished(sink string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, publishCall{sink, ok})
}

func (m *fakeMetrics) publishes() []publishCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]publishCall(nil), m.published...)
}

func noSleep(context.Context, time.Duration) bool { return true }

func TestPipelineFansOutInOrder(t *testing.T) {
	a := &recordingSink{name: "ws"}
	b := &recordingSink{name: "kafka"}
	m := &fakeMetrics{}
	p := NewSnapshotPipeline(m, []domrepo.SnapshotPublisher{a, nil, b})
	assert.Equal(t, []string{"ws", "kafka"}, p.Sinks())

	p.Start(context.Background())
	for i := uint64(1); i <= 5; i++ {
		p.Notify(models.Snapshot{Seq: i, Phase: models.PhaseFetching})
	}
	p.Stop()

	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, a.seqs())
	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, b.seqs())
	assert.Len(t, m.publishes(), 10)
}

func TestPipelineRetriesFailedSink(t *testing.T) {
	sink := &recordingSink{name: "kafka", failures: 2}
	m := &fakeMetrics{}
	p := NewSnapshotPipeline(m, []domrepo.SnapshotPublisher{sink}, WithRetry(3, time.Millisecond))
	p.sleep = noSleep

	p.Start(context.Background())
	p.Notify(models.Snapshot{Seq: 7})
	p.Stop()

	assert.Equal(t, []uint64{7}, sink.seqs())
	assert.Equal(t, 3, sink.calls)
	assert.Equal(t, []publishCall{{"kafka", true}}, m.publishes())
}

func TestPipelineGivesUpAfterRetries(t *testing.T) {
	failing := &recordingSink{name: "kafka", failures: 100}
	healthy := &recordingSink{name: "ws"}
	m := &fakeMetrics{}
	p := NewSnapshotPipeline(m, []domrepo.SnapshotPublisher{failing, healthy}, WithRetry(1, time.Millisecond))
	p.sleep = noSleep

	p.Start(context.Background())
	p.Notify(models.Snapshot{Seq: 1})
	p.Stop()

	assert.Equal(t, 2, failing.calls)
	assert.Empty(t, failing.seqs())
	assert.Equal(t, []uint64{1}, healthy.seqs())
	assert.ElementsMatch(t, []publishCall{{"kafka", false}, {"ws", true}}, m.publishes())
}

// stalledSink blocks every publish until released.
type stalledSink struct {
	release chan struct{}
}

func (s *stalledSink) Name() string { return "kafka" }

func (s *stalledSink) Publish(ctx context.Context, _ models.Snapshot) error {
	select {
	case <-s.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestStalledSinkDoesNotDelayOthers(t *testing.T) {
	stalled := &stalledSink{release: make(chan struct{})}
	ws := &recordingSink{name: "ws"}
	m := &fakeMetrics{}
	p := NewSnapshotPipeline(m, []domrepo.SnapshotPublisher{stalled, ws},
		WithRetry(3, 100*time.Millisecond), WithPublishTimeout(time.Minute))

	p.Start(context.Background())
	p.Notify(models.Snapshot{Seq: 1, Phase: models.PhaseFetching})
	p.Notify(models.Snapshot{Seq: 1, Phase: models.PhaseSettling})
	p.Notify(models.Snapshot{Seq: 1, Phase: models.PhaseReady})

	require.Eventually(t, func() bool { return len(ws.seqs()) == 3 }, 200*time.Millisecond, time.Millisecond)

	close(stalled.release)
	p.Stop()
	assert.Len(t, m.publishes(), 6)
}

func TestNotifyDropsOldestWhenFull(t *testing.T) {
	sink := &recordingSink{name: "ws"}
	m := &fakeMetrics{}
	p := NewSnapshotPipeline(m, []domrepo.SnapshotPublisher{sink}, WithBufferSize(2))

	// Not started: the buffer fills and overflows.
	for i := uint64(1); i <= 4; i++ {
		p.Notify(models.Snapshot{Seq: i})
	}
	p.Start(context.Background())
	p.Stop()

	assert.Equal(t, []uint64{3, 4}, sink.seqs())
	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Equal(t, []string{"pipeline_buffer_drop", "pipeline_buffer_drop"}, m.errors)
	assert.Equal(t, 0, m.depth["ws"])
}

func TestStopIsIdempotent(t *testing.T) {
	p := NewSnapshotPipeline(&fakeMetrics{}, nil)
	p.Stop()
	p.Start(context.Background())
	p.Start(context.Background())
	p.Stop()
	p.Stop()
}

func TestPipelineStopsOnContextCancel(t *testing.T) {
	sink := &recordingSink{name: "ws"}
	p := NewSnapshotPipeline(&fakeMetrics{}, []domrepo.SnapshotPublisher{sink})
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	p.Notify(models.Snapshot{Seq: 1})
	require.Eventually(t, func() bool { return len(sink.seqs()) == 1 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-p.doneCh:
	case <-time.After(time.Second):
		t.Fatal("worker did not exit")
	}
}

func TestAddSinkBeforeStart(t *testing.T) {
	late := &recordingSink{name: "ws"}
	ignored := &recordingSink{name: "late"}
	p := NewSnapshotPipeline(&fakeMetrics{}, nil)
	p.AddSink(late)
	p.Start(context.Background())
	p.AddSink(ignored)
	p.Notify(models.Snapshot{Seq: 1})
	p.Stop()

	assert.Equal(t, []string{"ws"}, p.Sinks())
	assert.Equal(t, []uint64{1}, late.seqs())
}
