package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"resty.dev/v3"
)

// Collections exposed by the backend.
const (
	Customers    = "customers"
	Sales        = "sales"
	Payments     = "payments"
	Transactions = "transactions"
	Balances     = "balances"
	Logs         = "logs"
)

// HTTPError is a non-2xx answer from a reachable backend. Message holds the
// server's "error" field, or the raw body when there is none.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, msg)
}

type requestIDKey struct{}

// WithRequestID tags outbound requests made with ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id set by WithRequestID.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Client talks JSON to the backend. The base URL is passed per call because
// it changes when the resolver fails over.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// NewClient creates a client whose requests time out after timeout.
func NewClient(timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http: resty.New().
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
		logger: logger,
	}
}

// Close releases idle connections.
func (c *Client) Close() error {
	return c.http.Close()
}

// Get fetches a collection, optionally filtered by query, and returns the raw body.
func (c *Client) Get(ctx context.Context, baseURL, resource string, query url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodGet, Endpoint(baseURL, resource), query, nil)
}

// Post creates a record in resource and returns the raw response body.
func (c *Client) Post(ctx context.Context, baseURL, resource string, body any) ([]byte, error) {
	return c.do(ctx, http.MethodPost, Endpoint(baseURL, resource), nil, body)
}

// Delete removes resource/key, or the whole collection when key is empty.
func (c *Client) Delete(ctx context.Context, baseURL, resource, key string) error {
	path := resource
	if key != "" {
		path += "/" + url.PathEscape(key)
	}
	_, err := c.do(ctx, http.MethodDelete, Endpoint(baseURL, path), nil, nil)
	return err
}

func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body any) ([]byte, error) {
	req := c.http.R().SetContext(ctx)
	if id := RequestID(ctx); id != "" {
		req.SetHeader("X-Request-ID", id)
	}
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	start := time.Now()
	res, err := req.Execute(method, endpoint)
	if err != nil {
		c.logger.Debug("request failed",
			zap.String("method", method),
			zap.String("url", endpoint),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}

	payload := res.Bytes()
	c.logger.Debug("request completed",
		zap.String("method", method),
		zap.String("url", endpoint),
		zap.Int("status", res.StatusCode()),
		zap.Duration("took", time.Since(start)),
	)

	if res.StatusCode() < 200 || res.StatusCode() >= 300 {
		return nil, &HTTPError{
			Method:     method,
			URL:        endpoint,
			StatusCode: res.StatusCode(),
			Message:    errorMessage(payload),
		}
	}
	return payload, nil
}

// Endpoint joins a base URL and a path.
func Endpoint(baseURL, path string) string {
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

func errorMessage(body []byte) string {
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
		return envelope.Error
	}
	return strings.TrimSpace(string(body))
}
