package backend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"RegimeDash/internal/domain/models"
	domsvc "RegimeDash/internal/domain/service"
	"RegimeDash/pkg/cache"
	applogger "RegimeDash/pkg/logger"
)

var _ domsvc.GuidanceBackend = (*Client)(nil)

// Paths of the backend endpoints.
type Paths struct {
	Guidance string
	Timeline string
	Quote    string
}

// Client consumes the regime classification service.
type Client struct {
	base        *HTTPServiceBase
	paths       Paths
	cache       cache.Service
	timelineTTL time.Duration
	log         *applogger.Logger

	timelineMu sync.Mutex
}

// Option configures Client.
type Option func(*Client)

// WithCache caches the timeline in svc for ttl.
func WithCache(svc cache.Service, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = svc
		c.timelineTTL = ttl
	}
}

// WithPaths overrides endpoint paths. Empty fields keep their defaults.
func WithPaths(p Paths) Option {
	return func(c *Client) {
		if p.Guidance != "" {
			c.paths.Guidance = p.Guidance
		}
		if p.Timeline != "" {
			c.paths.Timeline = p.Timeline
		}
		if p.Quote != "" {
			c.paths.Quote = p.Quote
		}
	}
}

// NewClient creates a backend client on top of base.
func NewClient(base *HTTPServiceBase, l *applogger.Logger, opts ...Option) *Client {
	if l == nil {
		l = applogger.Nop()
	}
	c := &Client{
		base: base,
		paths: Paths{
			Guidance: "/investor-guidance",
			Timeline: "/regime-timeline",
			Quote:    "/random-quote",
		},
		log: l,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func timelineKey() string { return cache.GenerateKeyWithParams("timeline", "v1") }

// Guidance fetches the guidance payload for date.
func (c *Client) Guidance(ctx context.Context, date models.Date, persona models.Persona) (*models.GuidancePayload, error) {
	query := map[string][]string{"date": {date.String()}}
	if persona != "" {
		query["persona"] = []string{string(persona)}
	}
	var p models.GuidancePayload
	if err := c.base.GetJSONWithRetry(ctx, c.paths.Guidance, query, &p); err != nil {
		return nil, fmt.Errorf("guidance %s: %w", date, err)
	}
	return &p, nil
}

// Timeline returns the full regime timeline, served from cache when possible.
func (c *Client) Timeline(ctx context.Context) ([]models.TimelinePoint, error) {
	if points, ok := c.cachedTimeline(ctx); ok {
		return points, nil
	}

	c.timelineMu.Lock()
	defer c.timelineMu.Unlock()

	// Another caller may have filled the cache while we waited.
	if points, ok := c.cachedTimeline(ctx); ok {
		return points, nil
	}

	var points []models.TimelinePoint
	if err := c.base.GetJSONWithRetry(ctx, c.paths.Timeline, nil, &points); err != nil {
		return nil, fmt.Errorf("timeline: %w", err)
	}

	if c.cache != nil && len(points) > 0 {
		if err := c.cache.Set(ctx, timelineKey(), points, c.timelineTTL); err != nil {
			c.log.Warn("timeline cache write failed", applogger.Error(err))
		}
	}
	return points, nil
}

// InvalidateTimeline drops the cached timeline so the next call refetches it.
func (c *Client) InvalidateTimeline(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Delete(ctx, timelineKey())
}

// RandomQuote fetches a quote for the settling pause.
func (c *Client) RandomQuote(ctx context.Context) (*models.Quote, error) {
	var q models.Quote
	if err := c.base.GetJSON(ctx, c.paths.Quote, nil, &q); err != nil {
		return nil, fmt.Errorf("quote: %w", err)
	}
	if q.Quote == "" {
		return nil, fmt.Errorf("%w: empty quote", models.ErrMalformedPayload)
	}
	return &q, nil
}

func (c *Client) cachedTimeline(ctx context.Context) ([]models.TimelinePoint, bool) {
	if c.cache == nil {
		return nil, false
	}
	var points []models.TimelinePoint
	err := c.cache.Get(ctx, timelineKey(), &points)
	switch {
	case err == nil:
		return points, true
	case errors.Is(err, cache.ErrCacheMiss):
	default:
		c.log.Warn("timeline cache read failed", applogger.Error(err))
	}
	return nil, false
}
