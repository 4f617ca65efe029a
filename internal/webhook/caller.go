// Package webhook sends requests to the workflow-automation backend.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// InternalTokenHeader authenticates this application to the backend.
	InternalTokenHeader = "X-Internal-Token"
	// RequestIDHeader carries a per-call correlation id.
	RequestIDHeader = "X-Request-Id"

	tracerName   = "github.com/praiagrande/sst-portal/internal/webhook"
	errBodyLimit = 4 << 10
)

// Recorder receives upstream call observations.
type Recorder interface {
	ObserveUpstream(operation, outcome string, elapsed time.Duration)
}

// TransportError wraps failures that happened before a response was received.
type TransportError struct {
	Operation string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("webhook %s: %v", e.Operation, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err was raised before the backend answered.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// Caller performs authenticated calls against backend webhooks.
type Caller struct {
	httpClient    *http.Client
	internalToken string
	recorder      Recorder
	tracer        trace.Tracer
}

// NewCaller constructs a Caller. A nil recorder disables metrics.
func NewCaller(internalToken string, timeout time.Duration, recorder Recorder) *Caller {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Caller{
		httpClient:    &http.Client{Timeout: timeout},
		internalToken: internalToken,
		recorder:      recorder,
		tracer:        otel.Tracer(tracerName),
	}
}

// WithHTTPClient swaps the underlying client, mostly for tests.
func (c *Caller) WithHTTPClient(client *http.Client) *Caller {
	if client != nil {
		c.httpClient = client
	}
	return c
}

// Do sends req with the internal token attached. Transport failures are
// returned as *TransportError; any response, whatever its status, is
// returned to the caller who owns closing its body.
func (c *Caller) Do(ctx context.Context, operation string, req *http.Request) (*http.Response, error) {
	if c == nil {
		return nil, &TransportError{Operation: operation, Err: errors.New("caller not configured")}
	}
	ctx, span := c.tracer.Start(ctx, "webhook."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("webhook.operation", operation),
			attribute.String("http.method", req.Method),
			attribute.String("server.address", req.URL.Host),
		),
	)
	defer span.End()

	req = req.WithContext(ctx)
	req.Header.Set(InternalTokenHeader, c.internalToken)
	if req.Header.Get(RequestIDHeader) == "" {
		req.Header.Set(RequestIDHeader, uuid.NewString())
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		c.observe(operation, "transport_error", start)
		return nil, &TransportError{Operation: operation, Err: err}
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= 500 {
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
	}
	c.observe(operation, outcomeFor(resp.StatusCode), start)
	return resp, nil
}

// PostJSON marshals payload and posts it to url.
func (c *Caller) PostJSON(ctx context.Context, operation, url string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("webhook %s: encode payload: %w", operation, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Operation: operation, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	return c.Do(ctx, operation, req)
}

// ReadError drains a bounded prefix of an error response body.
func ReadError(resp *http.Response) string {
	if resp == nil || resp.Body == nil {
		return ""
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, errBodyLimit))
	return strings.TrimSpace(string(data))
}

// Drain discards the rest of the body and closes it.
func Drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, errBodyLimit))
	_ = resp.Body.Close()
}

func (c *Caller) observe(operation, outcome string, start time.Time) {
	if c.recorder == nil {
		return
	}
	c.recorder.ObserveUpstream(operation, outcome, time.Since(start))
}

func outcomeFor(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "ok"
	case status >= 500:
		return "server_error"
	default:
		return "client_error"
	}
}
