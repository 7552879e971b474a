package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"RegimeDash/internal/domain/models"
	domrepo "RegimeDash/internal/domain/repository"
	applogger "RegimeDash/pkg/logger"
)

const maxBackoff = 2 * time.Second

// SnapshotPipeline sits between the session controller and its downstream sinks.
// Notify never blocks. Every sink owns a bounded lane and its own worker, so a
// sink that is retrying never delays delivery to the others.
type SnapshotPipeline struct {
	lanes      []*lane
	metrics    domrepo.Metrics
	log        *applogger.Logger
	bufSize    int
	maxRetries int
	backoff    time.Duration
	timeout    time.Duration

	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	started bool
	sleep   func(ctx context.Context, d time.Duration) bool
}

type lane struct {
	sink domrepo.SnapshotPublisher
	ch   chan models.Snapshot
}

type PipelineOption func(*SnapshotPipeline)

// WithBufferSize sets how many snapshots may wait for delivery.
func WithBufferSize(n int) PipelineOption {
	return func(p *SnapshotPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithRetry sets the per-sink retry count and the initial backoff.
func WithRetry(maxRetries int, backoff time.Duration) PipelineOption {
	return func(p *SnapshotPipeline) {
		if maxRetries >= 0 {
			p.maxRetries = maxRetries
		}
		if backoff > 0 {
			p.backoff = backoff
		}
	}
}

// WithPublishTimeout bounds a single delivery attempt.
func WithPublishTimeout(d time.Duration) PipelineOption {
	return func(p *SnapshotPipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(l *applogger.Logger) PipelineOption {
	return func(p *SnapshotPipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// NewSnapshotPipeline creates a pipeline delivering to sinks. Nil sinks are skipped.
func NewSnapshotPipeline(metrics domrepo.Metrics, sinks []domrepo.SnapshotPublisher, opts ...PipelineOption) *SnapshotPipeline {
	p := &SnapshotPipeline{
		metrics:    metrics,
		log:        applogger.Nop(),
		bufSize:    256,
		maxRetries: 3,
		backoff:    100 * time.Millisecond,
		timeout:    5 * time.Second,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		sleep:      sleepCtx,
	}
	for _, opt := range opts {
		opt(p)
	}
	for _, s := range sinks {
		if s != nil {
			p.lanes = append(p.lanes, p.newLane(s))
		}
	}
	return p
}

func (p *SnapshotPipeline) newLane(s domrepo.SnapshotPublisher) *lane {
	return &lane{sink: s, ch: make(chan models.Snapshot, p.bufSize)}
}

// AddSink appends a sink. It must be called before Start.
func (p *SnapshotPipeline) AddSink(s domrepo.SnapshotPublisher) {
	if s == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.lanes = append(p.lanes, p.newLane(s))
}

// Sinks returns the names of the configured sinks.
func (p *SnapshotPipeline) Sinks() []string {
	lanes := p.snapshotLanes()
	out := make([]string, len(lanes))
	for i, l := range lanes {
		out[i] = l.sink.Name()
	}
	return out
}

func (p *SnapshotPipeline) snapshotLanes() []*lane {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lanes
}

// Notify enqueues s on every lane. When a lane is full its oldest pending
// snapshot is dropped so the latest state always reaches the sink.
func (p *SnapshotPipeline) Notify(s models.Snapshot) {
	for _, l := range p.snapshotLanes() {
		l.push(s, p.metrics)
	}
}

func (l *lane) push(s models.Snapshot, metrics domrepo.Metrics) {
	for {
		select {
		case l.ch <- s:
			metrics.RecordBufferDepth(l.sink.Name(), len(l.ch))
			return
		default:
		}
		select {
		case <-l.ch:
			metrics.RecordError("pipeline_buffer_drop")
		default:
		}
	}
}

// Start launches one delivery worker per sink. Calling Start twice is a no-op.
func (p *SnapshotPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	lanes := p.lanes
	p.mu.Unlock()

	var wg sync.WaitGroup
	for _, l := range lanes {
		wg.Add(1)
		go func(l *lane) {
			defer wg.Done()
			p.work(ctx, l)
		}(l)
	}
	go func() {
		wg.Wait()
		close(p.doneCh)
	}()
}

func (p *SnapshotPipeline) work(ctx context.Context, l *lane) {
	for {
		select {
		case <-p.stopCh:
			p.drain(ctx, l)
			return
		case <-ctx.Done():
			return
		case s := <-l.ch:
			p.deliver(ctx, l, s)
		}
	}
}

// Stop delivers what is already buffered and waits for the worker to exit.
func (p *SnapshotPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
	<-p.doneCh
}

func (p *SnapshotPipeline) drain(ctx context.Context, l *lane) {
	for {
		select {
		case s := <-l.ch:
			p.deliver(ctx, l, s)
		default:
			return
		}
	}
}

func (p *SnapshotPipeline) deliver(ctx context.Context, l *lane, s models.Snapshot) {
	name := l.sink.Name()
	start := time.Now()
	err := p.publishWithRetry(ctx, l.sink, s)
	p.metrics.RecordPublished(name, err == nil)
	p.metrics.RecordBufferDepth(name, len(l.ch))
	if err != nil {
		p.log.Warn("snapshot delivery failed",
			applogger.String("sink", name),
			applogger.Uint64("seq", s.Seq),
			applogger.String("phase", string(s.Phase)),
			applogger.Error(err),
		)
		return
	}
	p.metrics.RecordLatency("pipeline_publish_"+name, time.Since(start).Seconds())
}

func (p *SnapshotPipeline) publishWithRetry(ctx context.Context, sink domrepo.SnapshotPublisher, s models.Snapshot) error {
	backoff := p.backoff
	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			if !p.sleep(ctx, backoff) {
				break
			}
			if backoff < maxBackoff {
				backoff *= 2
			}
		}
		actx, cancel := context.WithTimeout(ctx, p.timeout)
		err := sink.Publish(actx, s)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if errors.Is(err, context.Canceled) {
			break
		}
	}
	return fmt.Errorf("publish to %s after %d attempts: %w", sink.Name(), p.maxRetries+1, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
