package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/chainboard/chainboard/internal/asyncop"
	"github.com/chainboard/chainboard/internal/model"
)

// Result is the discriminated outcome of one request.
type Result[T any] struct {
	Success   bool
	Data      T
	Err       string
	Cancelled bool
}

// APIError represents a non-2xx response from the tool server.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// settings holds option-configurable state shared by all Gateway type
// instantiations.
type settings struct {
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
	csrfHeader string
	csrfToken  string
}

// Option configures a Gateway.
type Option func(*settings)

// WithTimeout sets the default per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *settings) {
		s.httpClient = hc
	}
}

// WithCSRF adds an anti-forgery header to every request.
func WithCSRF(header, token string) Option {
	return func(s *settings) {
		s.csrfHeader = header
		s.csrfToken = token
	}
}

// Gateway issues single-flight JSON requests whose data decodes into T.
type Gateway[T any] struct {
	baseURL string
	set     settings
	op      *asyncop.Operation[T]
}

// New creates a request gateway for the given base URL.
func New[T any](baseURL string, opts ...Option) *Gateway[T] {
	set := settings{
		httpClient: &http.Client{},
		timeout:    30 * time.Second,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(&set)
	}

	return &Gateway[T]{
		baseURL: baseURL,
		set:     set,
		op:      asyncop.New[T](),
	}
}

// Get issues a GET request with the default timeout.
func (g *Gateway[T]) Get(ctx context.Context, path string) Result[T] {
	return g.Do(ctx, http.MethodGet, path, nil, 0)
}

// Post issues a POST request with a JSON body and the default timeout.
func (g *Gateway[T]) Post(ctx context.Context, path string, body any) Result[T] {
	return g.Do(ctx, http.MethodPost, path, body, 0)
}

// Do issues a request, superseding any request still in flight on this
// gateway. A timeout of zero uses the gateway default. The call blocks until
// this request's own outcome is known, even if a newer request replaces it.
func (g *Gateway[T]) Do(ctx context.Context, method, path string, body any, timeout time.Duration) Result[T] {
	if timeout <= 0 {
		timeout = g.set.timeout
	}

	done := g.op.Start(ctx, func(ctx context.Context) (T, error) {
		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return g.roundTrip(reqCtx, method, path, body)
	})

	out := <-done
	switch {
	case out.Cancelled:
		msg := "request cancelled"
		if out.Err != nil {
			msg = out.Err.Error()
		}
		return Result[T]{Err: msg, Cancelled: true}
	case out.Err != nil:
		g.set.logger.Warn("request failed", "method", method, "path", path, "error", out.Err)
		return Result[T]{Err: out.Err.Error()}
	default:
		return Result[T]{Success: true, Data: out.Data}
	}
}

// CancelAll cancels the in-flight request, if any, without altering stored
// results from previously completed requests.
func (g *Gateway[T]) CancelAll() {
	g.op.Cancel()
}

// State returns the async state owned by this gateway.
func (g *Gateway[T]) State() asyncop.State[T] {
	return g.op.Snapshot()
}

// Mutate stores data directly, bypassing the request machinery. Used for
// optimistic local updates.
func (g *Gateway[T]) Mutate(data T) {
	g.op.Mutate(data)
}

// roundTrip performs one HTTP exchange and decodes the response envelope.
func (g *Gateway[T]) roundTrip(ctx context.Context, method, path string, body any) (T, error) {
	var zero T

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return zero, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reqBody)
	if err != nil {
		return zero, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.set.csrfHeader != "" {
		req.Header.Set(g.set.csrfHeader, g.set.csrfToken)
	}

	resp, err := g.set.httpClient.Do(req)
	if err != nil {
		return zero, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return zero, &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       respBody,
		}
	}

	var envelope model.APIResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return zero, fmt.Errorf("decode response envelope: %w", err)
	}

	if !envelope.Success {
		msg := envelope.Error
		if msg == "" {
			msg = "request failed"
		}
		return zero, fmt.Errorf("server error: %s", msg)
	}

	var data T
	if envelope.Data != nil {
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			return zero, fmt.Errorf("decode response data: %w", err)
		}
	}

	return data, nil
}
