package di

import (
	"context"
	"fmt"
	"time"

	"RegimeDash/internal/domain/models"
	"RegimeDash/internal/domain/repository"
	"RegimeDash/internal/handler/api"
	"RegimeDash/internal/handler/ws"
	mid "RegimeDash/internal/middleware"
	internalrepo "RegimeDash/internal/repository"
	svccache "RegimeDash/internal/service/cache"
	svcmetrics "RegimeDash/internal/service/metrics"
	"RegimeDash/internal/service/ratelimit"
	"RegimeDash/internal/services/backend"
	"RegimeDash/internal/services/guidance"
	"RegimeDash/internal/services/rules"
	"RegimeDash/internal/services/timeline"
	"RegimeDash/internal/usecase"
	pkgcache "RegimeDash/pkg/cache"
	"RegimeDash/pkg/config"
	xhttp "RegimeDash/pkg/http"
	pkgkafka "RegimeDash/pkg/kafka"
	applogger "RegimeDash/pkg/logger"
	"RegimeDash/pkg/metrics"
	"RegimeDash/pkg/queue"
	"RegimeDash/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	svcmetrics.Register()
	return metrics.New()
}

// ProvideRedisCache connects to Redis. It returns nil when Redis is disabled.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	if !cfg.Cache.Redis.Enabled {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rc, err := pkgcache.NewRedisCache(ctx,
		pkgcache.WithRedisAddr(cfg.Cache.Redis.Addr),
		pkgcache.WithRedisPassword(cfg.Cache.Redis.Password),
		pkgcache.WithRedisDB(cfg.Cache.Redis.DB),
		pkgcache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideCache creates the in-process cache, layered over Redis when available.
func ProvideCache(cfg *config.Config, rc *pkgcache.RedisCache) pkgcache.Service {
	if rc == nil {
		return pkgcache.NewMemoryCache(
			pkgcache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize),
			pkgcache.WithMemoryDefaultTTL(cfg.Cache.TimelineTTL),
		)
	}
	return pkgcache.NewLayeredCache(rc,
		pkgcache.WithLayeredMemorySize(cfg.Cache.MemoryMaxSize),
		pkgcache.WithLayeredMemoryTTL(time.Minute),
	)
}

// ProvideRedisQueue creates the Redis journal sharing the cache connection.
// It returns nil when Redis is disabled.
func ProvideRedisQueue(cfg *config.Config, rc *pkgcache.RedisCache, l *applogger.Logger) (*queue.RedisQueue, error) {
	if rc == nil {
		return nil, nil
	}
	q := queue.NewRedisQueue(l, rc.Client(),
		queue.WithKeyPrefix(cfg.Cache.Redis.Prefix+":journal"),
		queue.WithMaxLen(cfg.Cache.Redis.HistorySize),
	)
	if err := q.Start(context.Background()); err != nil {
		return nil, fmt.Errorf("redis queue: %w", err)
	}
	return q, nil
}

// ProvideSnapshotHistory creates the Redis-backed snapshot history. It returns nil without Redis.
func ProvideSnapshotHistory(q *queue.RedisQueue) *internalrepo.RedisSnapshotHistory {
	if q == nil {
		return nil
	}
	return internalrepo.NewRedisSnapshotHistory(q)
}

// ProvideKafkaProducer creates a Kafka producer. It returns nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithAutoCreateTopics(cfg.Kafka.Producer.AutoCreate),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideRuleTable returns the built-in regime rule table.
func ProvideRuleTable() *rules.Table {
	return rules.NewTable()
}

// ProvideGuidanceEngine creates the guidance derivation engine.
func ProvideGuidanceEngine(table *rules.Table, cfg *config.Config) *guidance.Engine {
	return guidance.NewEngine(table, guidance.WithTradingDaysPerYear(cfg.Session.TradingDaysPerYear))
}

// ProvideSegmenter creates the timeline segmenter.
func ProvideSegmenter(table *rules.Table) *timeline.Segmenter {
	return timeline.NewSegmenter(table)
}

// ProvideBackendClient creates the regime service client.
func ProvideBackendClient(cfg *config.Config, l *applogger.Logger, cache pkgcache.Service) *backend.Client {
	base := backend.NewHTTPServiceBase(backend.BaseConfig{
		BaseURL:        cfg.Backend.BaseURL,
		Timeout:        cfg.Backend.Timeout,
		RetryAttempts:  cfg.Backend.RetryAttempts,
		RetryBackoff:   cfg.Backend.RetryBackoff,
		MaxFailures:    cfg.Backend.Breaker.MaxFailures,
		BreakerTimeout: cfg.Backend.Breaker.OpenTimeout,
	}, l)
	return backend.NewClient(base, l,
		backend.WithPaths(backend.Paths{
			Guidance: cfg.Backend.GuidancePath,
			Timeline: cfg.Backend.TimelinePath,
			Quote:    cfg.Backend.QuotePath,
		}),
		backend.WithCache(cache, cfg.Cache.TimelineTTL),
	)
}

// ProvideSnapshotPipeline creates the snapshot fan-out with the Kafka and Redis
// sinks when they are configured.
// The websocket sink is attached by ProvideHub.
func ProvideSnapshotPipeline(
	cfg *config.Config,
	m repository.Metrics,
	l *applogger.Logger,
	producer *pkgkafka.Producer,
	history *internalrepo.RedisSnapshotHistory,
) *mid.SnapshotPipeline {
	var sinks []repository.SnapshotPublisher
	if producer != nil {
		sinks = append(sinks, internalrepo.NewKafkaSnapshotPublisher(producer, cfg.Kafka.SnapshotTopic))
	}
	if history != nil {
		sinks = append(sinks, history)
	}
	return mid.NewSnapshotPipeline(m, sinks,
		mid.WithBufferSize(cfg.Pipeline.BufferSize),
		mid.WithRetry(cfg.Pipeline.MaxRetries, cfg.Pipeline.Backoff),
		mid.WithLogger(l),
	)
}

// ProvideSessionController creates the analysis session controller.
func ProvideSessionController(
	cfg *config.Config,
	client *backend.Client,
	engine *guidance.Engine,
	seg *timeline.Segmenter,
	pipe *mid.SnapshotPipeline,
	m repository.Metrics,
	l *applogger.Logger,
) (*usecase.SessionController, error) {
	persona, err := models.ParsePersona(cfg.Session.Persona)
	if err != nil {
		return nil, fmt.Errorf("session persona: %w", err)
	}
	return usecase.NewSessionController(client, engine, seg, pipe, m, l, usecase.SessionConfig{
		SettleDelay:    cfg.Session.SettleDelay,
		Persona:        persona,
		TimelineWindow: cfg.Session.TimelineWindow,
		FetchTimeout:   cfg.Session.FetchTimeout,
		QuoteTimeout:   cfg.Session.QuoteTimeout,
	}), nil
}

// ProvideHub creates the websocket hub and registers it as a pipeline sink.
func ProvideHub(session *usecase.SessionController, pipe *mid.SnapshotPipeline, l *applogger.Logger) *ws.Hub {
	hub := ws.NewHub(session, l)
	pipe.AddSink(hub)
	return hub
}

// ProvideRateLimiter creates the per-client date selection limiter.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
}

// ProvideHTTPHandler creates the Echo route handler.
func ProvideHTTPHandler(
	cfg *config.Config,
	l *applogger.Logger,
	session *usecase.SessionController,
	table *rules.Table,
	client *backend.Client,
	hub *ws.Hub,
	limiter *ratelimit.Limiter,
	cache pkgcache.Service,
	history *internalrepo.RedisSnapshotHistory,
) xhttp.Handler {
	opts := []api.HandlerOption{
		api.WithStream(hub.Serve),
		api.WithSelectLimiter(limiter.Middleware()),
		api.WithChartCache(svccache.NewServiceBytes(cache), cfg.Cache.ChartTTL),
	}
	if history != nil {
		opts = append(opts, api.WithHistory(history))
	}
	return api.NewSessionEchoHandler(l, session, table, client, opts...)
}

// ProvideHTTPServer creates the HTTP server.
func ProvideHTTPServer(cfg *config.Config, h xhttp.Handler, l *applogger.Logger) *xhttp.Server {
	return xhttp.NewServer(h, l,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithMetrics(cfg.Metrics.Enabled, cfg.Metrics.Path),
	)
}

type closeFunc func() error

func (f closeFunc) Close() error { return f() }

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	session *usecase.SessionController,
	pipe *mid.SnapshotPipeline,
	producer *pkgkafka.Producer,
	cache pkgcache.Service,
	q *queue.RedisQueue,
) *server.App {
	app := server.New(l, srv, session, pipe)

	// Aggregated error logs go to Kafka, or to the Redis journal without it.
	var logPub applogger.Publisher
	switch {
	case producer != nil:
		logPub = internalrepo.NewKafkaLogPublisher(producer)
	case q != nil:
		logPub = q
	}
	if logPub != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Log.CollectInterval,
			CountThreshold: cfg.Log.CollectThreshold,
			Topic:          cfg.Kafka.LogTopic,
			Publisher:      logPub,
		})
		app.AddCloser("log collector", closeFunc(func() error {
			l.RemoveCollector()
			return nil
		}))
	}
	if producer != nil {
		app.AddCloser("kafka producer", producer)
	}
	if q != nil {
		app.AddCloser("redis queue", closeFunc(func() error {
			q.Stop()
			return nil
		}))
	}
	app.AddCloser("cache", cache)

	l.Info("regimedash wired",
		applogger.String("env", cfg.Environment),
		applogger.String("backend", cfg.Backend.BaseURL),
		applogger.Strings("sinks", pipe.Sinks()),
		applogger.Bool("redis", cfg.Cache.Redis.Enabled),
	)
	return app
}
