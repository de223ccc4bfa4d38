package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/stwalsh4118/propsearch/internal/fixture"
	"github.com/stwalsh4118/propsearch/internal/logger"
	"github.com/stwalsh4118/propsearch/internal/metrics"
	"github.com/stwalsh4118/propsearch/internal/reconcile"
)

const (
	// maxErrorBody bounds the response body kept on an HTTP status error.
	maxErrorBody = 4 << 10
	// maxResponseBody bounds the response body read on success.
	maxResponseBody = 10 << 20
)

// ErrorKind classifies executor failures.
type ErrorKind string

const (
	KindTransport  ErrorKind = "transport"
	KindHTTPStatus ErrorKind = "http_status"
	KindDecode     ErrorKind = "decode"
)

// ExecutorError is returned by Execute and ExecuteFixture.
type ExecutorError struct {
	Kind ErrorKind
	// StatusCode and Body are set for KindHTTPStatus.
	StatusCode int
	Body       string
	Err        error
}

func (e *ExecutorError) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		return fmt.Sprintf("upstream returned status %d", e.StatusCode)
	default:
		if e.Err == nil {
			return string(e.Kind) + " error"
		}
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
}

func (e *ExecutorError) Unwrap() error {
	return e.Err
}

// ExecutorConfig configures an Executor. Zero values get defaults.
type ExecutorConfig struct {
	Timeout           time.Duration // Default: 30s
	RequestsPerMinute int           // Default: 60
	BurstSize         int           // Default: 5
	FixtureDelay      time.Duration // Default: 1s; negative disables the delay
	// Fixture is the payload returned by ExecuteFixture. Defaults to the embedded fixture.
	Fixture []byte
}

// Executor performs upstream searches and serves the fixture path.
type Executor struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	config      ExecutorConfig
	log         *logger.Logger
}

// NewExecutor creates an Executor.
func NewExecutor(cfg ExecutorConfig, log *logger.Logger) *Executor {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestsPerMinute == 0 {
		cfg.RequestsPerMinute = 60
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = 5
	}
	if cfg.FixtureDelay == 0 {
		cfg.FixtureDelay = time.Second
	}
	if cfg.Fixture == nil {
		cfg.Fixture = fixture.Default()
	}

	limiter := rate.NewLimiter(
		rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)),
		cfg.BurstSize,
	)

	return &Executor{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		rateLimiter: limiter,
		config:      cfg,
		log:         log,
	}
}

// ExecuteFixture waits the artificial delay and returns the fixture payload.
// Cancellation during the delay is a transport error.
func (e *Executor) ExecuteFixture(ctx context.Context) (reconcile.Value, error) {
	if e.config.FixtureDelay > 0 {
		timer := time.NewTimer(e.config.FixtureDelay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return reconcile.Value{}, &ExecutorError{Kind: KindTransport, Err: ctx.Err()}
		case <-timer.C:
		}
	}

	payload, err := reconcile.Parse(e.config.Fixture)
	if err != nil {
		return reconcile.Value{}, &ExecutorError{Kind: KindDecode, Err: err}
	}

	e.log.Debug("Served fixture payload", map[string]interface{}{
		"delay_ms": e.config.FixtureDelay.Milliseconds(),
	})
	return payload, nil
}

// Execute performs exactly one upstream call for req. There are no retries.
func (e *Executor) Execute(ctx context.Context, req *Request) (reconcile.Value, error) {
	payload, err := e.execute(ctx, req)
	outcome := "ok"
	var execErr *ExecutorError
	if errors.As(err, &execErr) {
		outcome = string(execErr.Kind)
	}
	metrics.UpstreamRequests.WithLabelValues(outcome).Inc()
	return payload, err
}

func (e *Executor) execute(ctx context.Context, req *Request) (reconcile.Value, error) {
	if err := e.rateLimiter.Wait(ctx); err != nil {
		return reconcile.Value{}, &ExecutorError{Kind: KindTransport, Err: fmt.Errorf("rate limiter wait: %w", err)}
	}

	body, err := json.Marshal(req.Body)
	if err != nil {
		return reconcile.Value{}, &ExecutorError{Kind: KindTransport, Err: fmt.Errorf("encode request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader(body))
	if err != nil {
		return reconcile.Value{}, &ExecutorError{Kind: KindTransport, Err: fmt.Errorf("create request: %w", err)}
	}
	for key, values := range req.Headers {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	start := time.Now()
	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		e.log.Warn("Upstream request failed", map[string]interface{}{
			"url":   req.URL,
			"error": err.Error(),
		})
		return reconcile.Value{}, &ExecutorError{Kind: KindTransport, Err: fmt.Errorf("http request: %w", err)}
	}
	defer resp.Body.Close()

	fields := map[string]interface{}{
		"url":         req.URL,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		e.log.Warn("Upstream returned error status", fields)
		return reconcile.Value{}, &ExecutorError{
			Kind:       KindHTTPStatus,
			StatusCode: resp.StatusCode,
			Body:       string(snippet),
		}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody+1))
	if err != nil {
		return reconcile.Value{}, &ExecutorError{Kind: KindTransport, Err: fmt.Errorf("read response: %w", err)}
	}
	if len(raw) > maxResponseBody {
		return reconcile.Value{}, &ExecutorError{Kind: KindDecode, Err: fmt.Errorf("response exceeds %d bytes", maxResponseBody)}
	}

	payload, err := reconcile.Parse(raw)
	if err != nil {
		e.log.Warn("Upstream response is not valid JSON", fields)
		return reconcile.Value{}, &ExecutorError{Kind: KindDecode, Err: fmt.Errorf("decode response: %w", err)}
	}

	e.log.Debug("Upstream request completed", fields)
	return payload, nil
}
