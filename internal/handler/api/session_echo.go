package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"RegimeDash/internal/domain/models"
	svccache "RegimeDash/internal/service/cache"
	svcmetrics "RegimeDash/internal/service/metrics"
	"RegimeDash/internal/services/timeline"
	"RegimeDash/internal/usecase"
	pkgcache "RegimeDash/pkg/cache"
	xhttp "RegimeDash/pkg/http"
	xlogger "RegimeDash/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Session is the controller surface the handler drives.
type Session interface {
	Snapshot() models.Snapshot
	RequestDate(d models.Date) (models.Snapshot, error)
}

// RuleSource lists the regime rules for the strategy guide.
type RuleSource interface {
	All() []models.RegimeRule
}

// TimelineRefresher drops the cached timeline so the next selection refetches it.
type TimelineRefresher interface {
	InvalidateTimeline(ctx context.Context) error
}

// HistorySource lists recently settled snapshots, newest first.
type HistorySource interface {
	Recent(ctx context.Context, n int) ([]models.SnapshotEvent, error)
}

// RenderFunc draws a timeline view as PNG.
type RenderFunc func(view *models.TimelineView, width, height int) ([]byte, error)

// SessionEchoHandler exposes the analysis session over HTTP.
type SessionEchoHandler struct {
	logger    *xlogger.Logger
	session   Session
	rules     RuleSource
	refresher TimelineRefresher
	charts    svccache.BytesCache
	chartTTL  time.Duration
	render    RenderFunc
	stream    echo.HandlerFunc
	limit     echo.MiddlewareFunc
	history   HistorySource
}

// HandlerOption configures SessionEchoHandler.
type HandlerOption func(*SessionEchoHandler)

// WithChartCache caches rendered PNGs.
func WithChartCache(c svccache.BytesCache, ttl time.Duration) HandlerOption {
	return func(h *SessionEchoHandler) {
		h.charts = c
		h.chartTTL = ttl
	}
}

// WithStream mounts the websocket endpoint.
func WithStream(fn echo.HandlerFunc) HandlerOption {
	return func(h *SessionEchoHandler) { h.stream = fn }
}

// WithSelectLimiter guards date selection.
func WithSelectLimiter(mw echo.MiddlewareFunc) HandlerOption {
	return func(h *SessionEchoHandler) { h.limit = mw }
}

// WithHistory mounts GET /api/session/history.
func WithHistory(src HistorySource) HandlerOption {
	return func(h *SessionEchoHandler) { h.history = src }
}

// WithRenderer replaces the chart renderer.
func WithRenderer(fn RenderFunc) HandlerOption {
	return func(h *SessionEchoHandler) {
		if fn != nil {
			h.render = fn
		}
	}
}

func NewSessionEchoHandler(logger *xlogger.Logger, session Session, rules RuleSource, refresher TimelineRefresher, opts ...HandlerOption) *SessionEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	h := &SessionEchoHandler{
		logger:    logger,
		session:   session,
		rules:     rules,
		refresher: refresher,
		render:    timeline.RenderPNG,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *SessionEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	var mws []echo.MiddlewareFunc
	if h.limit != nil {
		mws = append(mws, h.limit)
	}
	g.POST("/session/date", h.SelectDate, mws...)
	g.GET("/session", h.Current)
	if h.stream != nil {
		g.GET("/session/stream", h.stream)
	}
	if h.history != nil {
		g.GET("/session/history", h.History)
	}
	g.GET("/regimes", h.Regimes)
	g.GET("/timeline.png", h.TimelineChart)
	if h.refresher != nil {
		g.POST("/timeline/refresh", h.RefreshTimeline)
	}
}

func (h *SessionEchoHandler) Health(c echo.Context) error {
	s := h.session.Snapshot()
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"status": "ok",
		"phase":  s.Phase,
		"seq":    s.Seq,
	})
}

// SelectDate starts a new fetch sequence. The response carries the Fetching snapshot;
// the committed result arrives on the stream or via GET /api/session.
func (h *SessionEchoHandler) SelectDate(c echo.Context) error {
	req := &models.DateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	d, err := models.ParseDate(req.Date)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}

	snap, err := h.session.RequestDate(d)
	if err != nil {
		if errors.Is(err, usecase.ErrSessionClosed) {
			return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("session is shutting down").WithError(err))
		}
		h.logger.Error("select date error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.AcceptedResponse(c, snap)
}

func (h *SessionEchoHandler) Current(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.SuccessResponse(c, h.session.Snapshot())
}

func (h *SessionEchoHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	events, err := h.history.Recent(c.Request().Context(), req.Limit)
	if err != nil {
		h.logger.Error("history read error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.BadGatewayError("history store unavailable").WithError(err))
	}
	return xhttp.SuccessResponse(c, events)
}

func (h *SessionEchoHandler) Regimes(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=3600")
	return xhttp.SuccessResponse(c, h.rules.All())
}

// TimelineChart renders the committed timeline. Intermediate phases keep
// showing the last committed chart.
func (h *SessionEchoHandler) TimelineChart(c echo.Context) error {
	req := &models.ChartRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	s := h.session.Snapshot()
	if s.Timeline == nil || len(s.Timeline.Points) == 0 {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no timeline committed yet"))
	}

	ctx := c.Request().Context()
	key := chartKey(s, req)
	if h.charts != nil {
		b, ok, err := h.charts.GetBytes(ctx, key)
		if err != nil {
			h.logger.Warn("chart cache get failed", xlogger.String("key", key), xlogger.Error(err))
		}
		if ok {
			svcmetrics.ChartCacheLookups.WithLabelValues("hit").Inc()
			return c.Blob(http.StatusOK, "image/png", b)
		}
		svcmetrics.ChartCacheLookups.WithLabelValues("miss").Inc()
	}

	start := time.Now()
	b, err := h.render(s.Timeline, req.Width, req.Height)
	if err != nil {
		svcmetrics.ChartRenderLatency.WithLabelValues("error").Observe(time.Since(start).Seconds())
		if errors.Is(err, timeline.ErrNothingToRender) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundError("timeline has too few points to draw").WithError(err))
		}
		h.logger.Error("chart render error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("failed to render timeline").WithError(err))
	}
	svcmetrics.ChartRenderLatency.WithLabelValues("ok").Observe(time.Since(start).Seconds())

	if h.charts != nil {
		if err := h.charts.SetBytes(ctx, key, b, h.chartTTL); err != nil {
			h.logger.Warn("chart cache set failed", xlogger.String("key", key), xlogger.Error(err))
		}
	}
	return c.Blob(http.StatusOK, "image/png", b)
}

func (h *SessionEchoHandler) RefreshTimeline(c echo.Context) error {
	if err := h.refresher.InvalidateTimeline(c.Request().Context()); err != nil {
		h.logger.Error("timeline refresh error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("failed to refresh timeline").WithError(err))
	}
	return xhttp.NoContentResponse(c)
}

func chartKey(s models.Snapshot, req *models.ChartRequest) string {
	pts := s.Timeline.Points
	return pkgcache.GenerateKeyWithParams("chart",
		s.ActiveDate.String(),
		pts[0].Date.String(),
		pts[len(pts)-1].Date.String(),
		len(pts),
		req.Width,
		req.Height,
	)
}
