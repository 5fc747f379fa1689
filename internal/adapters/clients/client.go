package clients

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quotebook/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotebook/internal/platform/config"
	"github.com/jsamuelsen/quotebook/internal/platform/logging"
)

const (
	instrumentationName = "github.com/jsamuelsen/quotebook/internal/adapters/clients"

	defaultTimeout = 30 * time.Second

	resultCircuitOpen = "circuit_open"
	resultError       = "error"
)

// Config configures a Client.
type Config struct {
	// BaseURL is prefixed to every request path.
	BaseURL string

	// ServiceName names the downstream in logs, spans and metrics.
	ServiceName string

	// Timeout bounds a single attempt. Retries and backoff come on top.
	Timeout time.Duration

	Retry     config.RetryConfig
	Circuit   config.CircuitBreakerConfig
	Transport config.TransportConfig

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Client calls one downstream service with retries, a circuit breaker,
// tracing and request metrics. Request and correlation IDs found in the
// context are forwarded as headers.
type Client struct {
	http    *http.Client
	cfg     Config
	baseURL string
	logger  *slog.Logger
	breaker *CircuitBreaker
	tracer  trace.Tracer
	metrics instruments
}

type instruments struct {
	duration metric.Float64Histogram
	total    metric.Int64Counter
}

func newInstruments(meter metric.Meter) (instruments, error) {
	duration, err := meter.Float64Histogram(
		"http.client.request.duration",
		metric.WithDescription("Duration of HTTP client requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return instruments{}, fmt.Errorf("creating duration metric: %w", err)
	}

	total, err := meter.Int64Counter(
		"http.client.request.total",
		metric.WithDescription("Total number of HTTP client requests"),
	)
	if err != nil {
		return instruments{}, fmt.Errorf("creating request counter: %w", err)
	}

	return instruments{duration: duration, total: total}, nil
}

// New creates a Client from cfg. A zero Timeout falls back to 30s.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	if cfg.ServiceName == "" {
		return nil, errors.New("service name is required")
	}

	c := *cfg
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(
		slog.String("component", "clients.Client"),
		slog.String("downstream", c.ServiceName),
	)

	metrics, err := newInstruments(otel.Meter(instrumentationName))
	if err != nil {
		return nil, err
	}

	breaker := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:   c.Circuit.MaxFailures,
		Timeout:       c.Circuit.Timeout,
		HalfOpenLimit: c.Circuit.HalfOpenLimit,
	})
	breaker.OnStateChange(func(from, to State) {
		logger.Warn("circuit breaker state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})

	return &Client{
		http: &http.Client{
			Timeout:   c.Timeout,
			Transport: newTransport(c.Transport),
		},
		cfg:     c,
		baseURL: strings.TrimSuffix(c.BaseURL, "/"),
		logger:  logger,
		breaker: breaker,
		tracer:  otel.Tracer(instrumentationName),
		metrics: metrics,
	}, nil
}

// newTransport builds the pooled transport. Unset fields take the config
// package defaults.
func newTransport(tc config.TransportConfig) *http.Transport {
	orDefault := func(v, def int) int {
		if v > 0 {
			return v
		}
		return def
	}

	idle := tc.IdleConnTimeout
	if idle <= 0 {
		idle = config.DefaultTransportIdleConnTimeout
	}

	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        orDefault(tc.MaxIdleConns, config.DefaultTransportMaxIdleConns),
		MaxIdleConnsPerHost: orDefault(tc.MaxIdleConnsPerHost, config.DefaultTransportMaxIdleConnsPerHost),
		IdleConnTimeout:     idle,
	}
}

// Get sends a GET to path.
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	return c.Do(ctx, req)
}

// Post sends body to path as JSON.
func (c *Client) Post(ctx context.Context, path string, body io.Reader) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}

	return c.Do(ctx, req)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	if body == nil {
		body = http.NoBody
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != http.NoBody {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// Do sends req through the circuit breaker and the retry loop.
//
// Only idempotent methods are retried, on 5xx responses and network
// failures. Once attempts run out the error wraps ErrMaxRetriesExceeded. A
// POST is sent exactly once and a 5xx answer is returned to the caller as
// is. A retried request carrying a body is replayed only when req.GetBody is
// set, which http.NewRequestWithContext does for in-memory readers.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	start := time.Now()
	logger := logging.FromContextOr(ctx, c.logger)
	if logger != c.logger {
		logger = logger.With(slog.String("downstream", c.cfg.ServiceName))
	}
	logger = logger.With(
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
	)

	if !c.breaker.Allow() {
		c.record(ctx, req.Method, 0, time.Since(start), resultCircuitOpen)
		logger.WarnContext(ctx, "request blocked by circuit breaker")

		return nil, ErrCircuitOpen
	}

	ctx, span := c.tracer.Start(ctx, "HTTP "+req.Method+" "+c.cfg.ServiceName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.url", req.URL.String()),
			attribute.String("peer.service", c.cfg.ServiceName),
		),
	)
	defer span.End()

	forwardIDs(ctx, req.Header)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.send(ctx, req, logger)
	elapsed := time.Since(start)

	if err != nil {
		c.breaker.RecordFailure()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.record(ctx, req.Method, 0, elapsed, resultError)
		logger.ErrorContext(ctx, "request failed",
			slog.Duration("duration", elapsed),
			slog.Any("error", err),
		)

		return nil, err
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		c.breaker.RecordFailure()
	} else {
		c.breaker.RecordSuccess()
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, "HTTP "+resp.Status)
	}
	c.record(ctx, req.Method, resp.StatusCode, elapsed, statusClass(resp.StatusCode))

	logger.DebugContext(ctx, "request completed",
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", elapsed),
	)

	return resp, nil
}

// send runs the retry loop for req.
func (c *Client) send(ctx context.Context, req *http.Request, logger *slog.Logger) (*http.Response, error) {
	if !idempotent(req.Method) {
		return c.http.Do(req.WithContext(ctx))
	}

	attempts := max(c.cfg.Retry.MaxAttempts, 1)

	var lastErr error
	for attempt := range attempts {
		if attempt > 0 {
			wait := c.backoff(attempt - 1)
			logger.DebugContext(ctx, "retrying request",
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", wait),
				slog.Any("previous_error", lastErr),
			)

			if err := sleep(ctx, wait); err != nil {
				return nil, err
			}

			if err := rewindBody(req); err != nil {
				return nil, err
			}
		}

		resp, err := c.http.Do(req.WithContext(ctx))
		switch {
		case err != nil && !retryable(ctx, err):
			return nil, err
		case err != nil:
			lastErr = err
		case resp.StatusCode >= http.StatusInternalServerError:
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
		default:
			return resp, nil
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrMaxRetriesExceeded, attempts, lastErr)
}

// backoff returns the wait before retry n (zero based): InitialInterval
// grown by Multiplier per retry, capped at MaxInterval, then spread by
// ±JitterFactor.
func (c *Client) backoff(n int) time.Duration {
	r := c.cfg.Retry
	nominal := math.Min(
		float64(r.InitialInterval)*math.Pow(r.Multiplier, float64(n)),
		float64(r.MaxInterval),
	)

	spread := rand.Float64()*2 - 1 //nolint:gosec // jitter only
	return time.Duration(nominal * (1 + r.JitterFactor*spread))
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// rewindBody restores the request body before a retry attempt.
func rewindBody(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody {
		return nil
	}

	if req.GetBody == nil {
		return errors.New("request body cannot be replayed for retry")
	}

	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("rewinding request body: %w", err)
	}
	req.Body = body

	return nil
}

// idempotent reports whether a request with method may be sent again
// without the downstream applying it twice.
func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}

// retryable reports whether err is a network failure worth another attempt.
// Once ctx itself is done nothing is retried; an attempt that hit the
// per-attempt Timeout is.
func retryable(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func forwardIDs(ctx context.Context, h http.Header) {
	if id := middleware.RequestIDFromContext(ctx); id != "" {
		h.Set(middleware.HeaderRequestID, id)
	}

	if id := middleware.CorrelationIDFromContext(ctx); id != "" {
		h.Set(middleware.HeaderCorrelationID, id)
	}
}

func statusClass(code int) string {
	return fmt.Sprintf("%dxx", code/100)
}

func (c *Client) record(ctx context.Context, method string, status int, elapsed time.Duration, result string) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("peer.service", c.cfg.ServiceName),
		attribute.String("result", result),
	}
	if status > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", status))
	}

	opt := metric.WithAttributes(attrs...)
	c.metrics.duration.Record(ctx, elapsed.Seconds(), opt)
	c.metrics.total.Add(ctx, 1, opt)
}

func (c *Client) url(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return c.baseURL + path
}

// ServiceName returns the downstream service name.
func (c *Client) ServiceName() string {
	return c.cfg.ServiceName
}

// CircuitState returns the breaker's current state.
func (c *Client) CircuitState() State {
	return c.breaker.State()
}
