package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"RegimeDash/internal/domain/models"
	drepo "RegimeDash/internal/domain/repository"
	domsvc "RegimeDash/internal/domain/service"
	"RegimeDash/internal/services/timeline"
	applogger "RegimeDash/pkg/logger"
)

// ErrSessionClosed is returned by RequestDate after Close.
var ErrSessionClosed = errors.New("session closed")

const settlingMessage = "Analyzing Market Data..."

// Deriver builds the guidance view from a backend payload.
type Deriver interface {
	Derive(payload *models.GuidancePayload, persona models.Persona) (*models.GuidanceView, error)
}

// TimelineBuilder slices and segments the timeline for a date.
type TimelineBuilder interface {
	Build(points []models.TimelinePoint, end models.Date, window int) (*models.TimelineView, error)
}

// SnapshotNotifier receives every published snapshot. Implementations must not block.
type SnapshotNotifier interface {
	Notify(s models.Snapshot)
}

// SessionConfig holds tunables of the session controller.
type SessionConfig struct {
	SettleDelay    time.Duration
	Persona        models.Persona
	TimelineWindow int
	FetchTimeout   time.Duration
	QuoteTimeout   time.Duration
}

// SessionController sequences date requests through fetch, settle and commit.
// It is the only writer of the session state; a monotonically increasing
// sequence token decides which in-flight result may be committed.
type SessionController struct {
	backend  domsvc.GuidanceBackend
	engine   Deriver
	builder  TimelineBuilder
	notifier SnapshotNotifier
	metrics  drepo.Metrics
	log      *applogger.Logger
	cfg      SessionConfig

	after func(time.Duration) <-chan time.Time
	now   func() time.Time

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup

	mu        sync.Mutex
	seq       uint64
	cancel    context.CancelFunc
	state     models.Snapshot
	lastPhase models.Phase
	closed    bool
	inFlight  time.Time
}

// SessionOption configures SessionController.
type SessionOption func(*SessionController)

// WithClock replaces the settle timer and wall clock. Tests use it to drive the delay.
func WithClock(after func(time.Duration) <-chan time.Time, now func() time.Time) SessionOption {
	return func(c *SessionController) {
		if after != nil {
			c.after = after
		}
		if now != nil {
			c.now = now
		}
	}
}

// NewSessionController creates an idle session.
func NewSessionController(
	backend domsvc.GuidanceBackend,
	engine Deriver,
	builder TimelineBuilder,
	notifier SnapshotNotifier,
	metrics drepo.Metrics,
	l *applogger.Logger,
	cfg SessionConfig,
	opts ...SessionOption,
) *SessionController {
	if l == nil {
		l = applogger.Nop()
	}
	if cfg.Persona == "" {
		cfg.Persona = models.PersonaBalanced
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	if cfg.QuoteTimeout <= 0 {
		cfg.QuoteTimeout = time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &SessionController{
		backend:    backend,
		engine:     engine,
		builder:    builder,
		notifier:   notifier,
		metrics:    metrics,
		log:        l,
		cfg:        cfg,
		after:      time.After,
		now:        time.Now,
		baseCtx:    ctx,
		baseCancel: cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state = models.Snapshot{Phase: models.PhaseIdle, UpdatedAt: c.now()}
	c.lastPhase = models.PhaseIdle
	return c
}

// Snapshot returns a copy of the current state.
func (c *SessionController) Snapshot() models.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// RequestDate starts a new fetch sequence for d and supersedes any sequence in flight.
func (c *SessionController) RequestDate(d models.Date) (models.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return c.state, ErrSessionClosed
	}

	if c.cancel != nil {
		c.cancel()
	}
	c.seq++
	token := c.seq
	ctx, cancel := context.WithCancel(c.baseCtx)
	c.cancel = cancel
	c.inFlight = c.now()

	c.state.Seq = token
	c.state.RequestedDate = d
	c.state.Phase = models.PhaseFetching
	c.state.Error = nil
	c.state.Quote = nil
	c.state.Message = ""
	snap := c.publishLocked()

	c.log.Debug("session fetching",
		applogger.Uint64("seq", token),
		applogger.String("date", d.String()),
	)

	c.wg.Add(1)
	go c.run(ctx, cancel, token, d)
	return snap, nil
}

// Close cancels the sequence in flight and waits for its goroutines.
func (c *SessionController) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.baseCancel()
	c.wg.Wait()
}

func (c *SessionController) run(ctx context.Context, cancel context.CancelFunc, token uint64, d models.Date) {
	defer c.wg.Done()
	defer cancel()

	view, tl, err := c.fetch(ctx, d)
	if err != nil {
		c.fail(token, d, err)
		return
	}

	if !c.settle(ctx, token) {
		return
	}

	select {
	case <-c.after(c.cfg.SettleDelay):
	case <-ctx.Done():
		c.discard(token, "settle interrupted")
		return
	}

	c.commit(token, d, view, tl)
}

// fetch loads guidance and timeline for d and derives both views. A failure in
// either part fails the whole sequence so view and timeline never disagree on date.
func (c *SessionController) fetch(ctx context.Context, d models.Date) (*models.GuidanceView, *models.TimelineView, error) {
	start := time.Now()
	defer func() { c.metrics.RecordLatency("session_fetch", time.Since(start).Seconds()) }()

	fctx, cancel := context.WithTimeout(ctx, c.cfg.FetchTimeout)
	defer cancel()

	payload, err := c.backend.Guidance(fctx, d, c.cfg.Persona)
	if err != nil {
		return nil, nil, err
	}
	view, err := c.engine.Derive(payload, c.cfg.Persona)
	if err != nil {
		return nil, nil, fmt.Errorf("derive guidance for %s: %w", d, err)
	}

	points, err := c.backend.Timeline(fctx)
	if err != nil {
		return nil, nil, err
	}
	tl, err := c.builder.Build(points, d, c.cfg.TimelineWindow)
	if err != nil {
		return nil, nil, fmt.Errorf("segment timeline: %w", err)
	}
	return view, tl, nil
}

func (c *SessionController) settle(ctx context.Context, token uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if token != c.seq {
		c.discardLocked(token, "fetch resolved")
		return false
	}
	c.state.Phase = models.PhaseSettling
	c.state.Message = settlingMessage
	c.publishLocked()

	c.wg.Add(1)
	go c.fetchQuote(ctx, token)
	return true
}

// fetchQuote decorates the settling phase. Failure leaves the plain message in place.
func (c *SessionController) fetchQuote(ctx context.Context, token uint64) {
	defer c.wg.Done()

	qctx, cancel := context.WithTimeout(ctx, c.cfg.QuoteTimeout)
	defer cancel()

	q, err := c.backend.RandomQuote(qctx)
	if err != nil {
		c.log.Debug("quote unavailable", applogger.Uint64("seq", token), applogger.Error(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.seq || c.state.Phase != models.PhaseSettling {
		return
	}
	c.state.Quote = q
	c.publishLocked()
}

func (c *SessionController) commit(token uint64, d models.Date, view *models.GuidanceView, tl *models.TimelineView) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if token != c.seq {
		c.discardLocked(token, "settle elapsed")
		return
	}

	c.state.Phase = models.PhaseReady
	c.state.ActiveDate = d
	c.state.View = view
	c.state.Timeline = tl
	c.state.Quote = nil
	c.state.Message = ""
	c.state.Error = nil
	c.state.Discrepancy = c.discrepancy(d, view, tl)
	c.publishLocked()

	c.metrics.RecordEarlyWarning(view.EarlyWarningProb)
	c.metrics.RecordLatency("session_commit", time.Since(c.inFlight).Seconds())
	c.log.Info("session committed",
		applogger.Uint64("seq", token),
		applogger.String("date", d.String()),
		applogger.String("regime", string(view.Regime)),
		applogger.String("severity", string(view.Severity)),
	)
}

// fail returns the session to Ready with the previous active date and view kept.
// No settle delay is applied.
func (c *SessionController) fail(token uint64, d models.Date, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if token != c.seq {
		c.discardLocked(token, "fetch failed")
		return
	}
	if c.baseCtx.Err() != nil {
		return
	}

	kind := models.ErrorKindNetwork
	if errors.Is(err, models.ErrMalformedPayload) {
		kind = models.ErrorKindMalformed
	}

	c.state.Phase = models.PhaseReady
	c.state.Message = ""
	c.state.Quote = nil
	c.state.Error = &models.SessionError{Kind: kind, Message: userMessage(kind, d)}
	c.publishLocked()

	c.metrics.RecordError(string(kind))
	c.log.Warn("session fetch failed",
		applogger.Uint64("seq", token),
		applogger.String("date", d.String()),
		applogger.String("kind", string(kind)),
		applogger.Error(err),
	)
}

func (c *SessionController) discard(token uint64, stage string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.discardLocked(token, stage)
}

func (c *SessionController) discardLocked(token uint64, stage string) {
	if c.baseCtx.Err() != nil {
		return
	}
	c.metrics.RecordSuperseded()
	c.log.Debug("stale result discarded",
		applogger.Uint64("seq", token),
		applogger.Uint64("current_seq", c.seq),
		applogger.String("stage", stage),
		applogger.Error(models.ErrSuperseded),
	)
}

func (c *SessionController) discrepancy(d models.Date, view *models.GuidanceView, tl *models.TimelineView) string {
	if tl == nil {
		return ""
	}
	label, ok := timeline.LabelOn(tl.Points, d)
	if !ok || label == view.Regime {
		return ""
	}
	msg := fmt.Sprintf("timeline labels %s as %s while guidance reports %s", d, label, view.Regime)
	c.log.Warn("regime label discrepancy",
		applogger.String("date", d.String()),
		applogger.String("timeline", string(label)),
		applogger.String("guidance", string(view.Regime)),
	)
	return msg
}

func (c *SessionController) publishLocked() models.Snapshot {
	c.state.UpdatedAt = c.now()
	snap := c.state
	if snap.Phase != c.lastPhase || snap.Phase == models.PhaseFetching {
		c.metrics.RecordTransition(snap.Phase)
		c.lastPhase = snap.Phase
	}
	if c.notifier != nil {
		c.notifier.Notify(snap)
	}
	return snap
}

func userMessage(kind models.ErrorKind, d models.Date) string {
	switch kind {
	case models.ErrorKindMalformed:
		return fmt.Sprintf("Received unreadable regime data for %s. Showing the last loaded date.", d)
	default:
		return fmt.Sprintf("Could not load regime data for %s. Showing the last loaded date.", d)
	}
}
