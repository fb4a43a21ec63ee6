// Package gateway issues the outbound HTTP calls described by api steps.
//
// The error taxonomy is the contract: 419 is the reserved CSRF/expiry
// signal and unwraps to domain.ErrCsrfExpired, every other non-2xx status
// is an HTTP error carrying status and body, and network failures
// (including the mandatory timeout) are transport errors. The interpreter
// branches on these kinds and they must never be collapsed.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/google/uuid"
)

// StatusCsrfExpired is the reserved session-expiry status code.
const StatusCsrfExpired = 419

// DefaultTimeout bounds every outbound call so a slow backend can never
// hang an identity's worker.
const DefaultTimeout = 10 * time.Second

// ErrorKind classifies gateway failures.
type ErrorKind string

const (
	KindTransport   ErrorKind = "transport"
	KindCsrfExpired ErrorKind = "csrf_expired"
	KindHTTP        ErrorKind = "http"
)

// Error is the failure of one outbound call.
type Error struct {
	Kind   ErrorKind
	Status int    // set for csrf_expired and http kinds
	Body   string // response body for http kind
	Err    error  // underlying cause for transport kind
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindTransport:
		return fmt.Sprintf("gateway: transport failure: %v", e.Err)
	case KindCsrfExpired:
		return "gateway: session expired (419)"
	default:
		return fmt.Sprintf("gateway: http %d: %s", e.Status, e.Body)
	}
}

// Unwrap lets errors.Is(err, domain.ErrCsrfExpired) see through the 419 case.
func (e *Error) Unwrap() error {
	if e.Kind == KindCsrfExpired {
		return domain.ErrCsrfExpired
	}
	return e.Err
}

// Client implements ports.Gateway over net/http.
type Client struct {
	http   *http.Client
	logger *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithTimeout overrides the request timeout. Zero is rejected: a timeout is
// mandatory.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger configures a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient swaps the underlying client (tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// New creates a gateway client with the default timeout.
func New(opts ...Option) *Client {
	c := &Client{
		http:   &http.Client{Timeout: DefaultTimeout},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Invoke performs method+url with the given JSON payload. GET requests carry
// the payload as query parameters; all other methods send a JSON body. A
// non-empty token is attached as a bearer credential. Extra headers are set
// before the fixed ones so they cannot mask the content negotiation.
func (c *Client) Invoke(ctx context.Context, method, rawURL string, payload map[string]any, headers map[string]string, token string) (*domain.APIResult, error) {
	requestID := uuid.NewString()

	req, err := c.buildRequest(ctx, method, rawURL, payload)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Err: err}
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.logger.Debug("invoking api", "method", method, "url", rawURL, "request_id", requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("api transport failure", "url", rawURL, "request_id", requestID, "error", err)
		return nil, &Error{Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &Error{Kind: KindTransport, Err: err}
	}

	switch {
	case resp.StatusCode == StatusCsrfExpired:
		c.logger.Info("api signaled session expiry", "url", rawURL, "request_id", requestID)
		return nil, &Error{Kind: KindCsrfExpired, Status: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.logger.Warn("api error response", "url", rawURL, "status", resp.StatusCode, "request_id", requestID)
		return nil, &Error{Kind: KindHTTP, Status: resp.StatusCode, Body: string(body)}
	}

	result := &domain.APIResult{Status: resp.StatusCode}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &result.Data); err != nil {
			return nil, &Error{Kind: KindTransport, Err: fmt.Errorf("malformed response body: %w", err)}
		}
	}
	return result, nil
}

func (c *Client) buildRequest(ctx context.Context, method, rawURL string, payload map[string]any) (*http.Request, error) {
	if method == http.MethodGet {
		req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
		if err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			query := url.Values{}
			for key, value := range payload {
				query.Set(key, fmt.Sprintf("%v", value))
			}
			req.URL.RawQuery = query.Encode()
		}
		return req, nil
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}
