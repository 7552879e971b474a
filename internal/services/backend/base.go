package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"RegimeDash/internal/domain/models"
	xhttp "RegimeDash/pkg/http"
	applogger "RegimeDash/pkg/logger"

	"github.com/sony/gobreaker"
)

// HTTPServiceBase centralizes client construction, GET handling, retries and the
// circuit breaker shared by every backend endpoint.
type HTTPServiceBase struct {
	baseURL  string
	client   *xhttp.Client
	breaker  *gobreaker.CircuitBreaker
	attempts int
	backoff  time.Duration
	log      *applogger.Logger
}

// BaseConfig holds the connection settings of HTTPServiceBase.
type BaseConfig struct {
	BaseURL        string
	Timeout        time.Duration
	RetryAttempts  int
	RetryBackoff   time.Duration
	MaxFailures    uint32
	BreakerTimeout time.Duration
}

// NewHTTPServiceBase builds an HTTP client with timeout, retry and breaker settings.
func NewHTTPServiceBase(cfg BaseConfig, l *applogger.Logger) *HTTPServiceBase {
	if l == nil {
		l = applogger.Nop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 1
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}

	st := gobreaker.Settings{Name: "regime-backend"}
	st.ReadyToTrip = func(counts gobreaker.Counts) bool { return counts.ConsecutiveFailures >= cfg.MaxFailures }
	st.Interval = 0
	st.Timeout = cfg.BreakerTimeout
	// Only transport failures and 5xx count against the backend.
	st.IsSuccessful = func(err error) bool { return err == nil || !retryable(err) }
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		l.Warn("backend breaker state changed",
			applogger.String("breaker", name),
			applogger.String("from", from.String()),
			applogger.String("to", to.String()),
		)
	}

	return &HTTPServiceBase{
		baseURL:  cfg.BaseURL,
		client:   xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)),
		breaker:  gobreaker.NewCircuitBreaker(st),
		attempts: cfg.RetryAttempts,
		backoff:  cfg.RetryBackoff,
		log:      l,
	}
}

// GetJSON issues a GET to path under baseURL and decodes JSON into dest.
// Errors wrap models.ErrMalformedPayload when the body could not be decoded and
// models.ErrNetworkFailure otherwise.
func (b *HTTPServiceBase) GetJSON(ctx context.Context, path string, query map[string][]string, dest interface{}) error {
	if b.client == nil || b.baseURL == "" {
		return fmt.Errorf("%w: backend http client not initialized", models.ErrNetworkFailure)
	}
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, b.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method:      xhttp.MethodGet,
			URL:         b.baseURL + path,
			Headers:     map[string]string{"Accept": "application/json"},
			QueryParams: query,
		}, dest)
	})
	if err != nil {
		return classify(path, err)
	}
	return nil
}

// GetJSONWithRetry retries transient failures with linear backoff. Malformed
// payloads and 4xx responses are returned immediately.
func (b *HTTPServiceBase) GetJSONWithRetry(ctx context.Context, path string, query map[string][]string, dest interface{}) error {
	var err error
	for i := 1; i <= b.attempts; i++ {
		err = b.GetJSON(ctx, path, query, dest)
		if err == nil || !errors.Is(err, models.ErrNetworkFailure) || !retryable(err) || i == b.attempts {
			return err
		}
		b.log.Warn("backend request failed, retrying",
			applogger.String("path", path),
			applogger.Int("attempt", i),
			applogger.Error(err),
		)
		select {
		case <-time.After(time.Duration(i) * b.backoff):
		case <-ctx.Done():
			return fmt.Errorf("%w: %s: %w", models.ErrNetworkFailure, path, ctx.Err())
		}
	}
	return err
}

func classify(path string, err error) error {
	if errors.Is(err, xhttp.ErrDecode) {
		return fmt.Errorf("%w: get %s: %w", models.ErrMalformedPayload, path, err)
	}
	return fmt.Errorf("%w: get %s: %w", models.ErrNetworkFailure, path, err)
}

func retryable(err error) bool {
	if errors.Is(err, xhttp.ErrDecode) || errors.Is(err, models.ErrMalformedPayload) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= http.StatusInternalServerError || se.StatusCode == http.StatusTooManyRequests
	}
	return true
}
