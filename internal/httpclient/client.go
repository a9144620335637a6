package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// ErrTransport wraps connection failures and timeouts.
var ErrTransport = errors.New("transport error")

// StatusError is returned when a DAV call does not answer 207 Multi-Status.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Snippet    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status: %d", e.Method, e.URL, e.StatusCode)
}

// Timeouts bound individual calls. PROPFIND counts as metadata, REPORT as
// bulk content retrieval.
type Timeouts struct {
	Metadata time.Duration
	Bulk     time.Duration
}

// DefaultTimeouts returns the 10s/30s bounds used for vendor calls.
func DefaultTimeouts() Timeouts {
	return Timeouts{Metadata: 10 * time.Second, Bulk: 30 * time.Second}
}

// maxBodySize caps how much of a response is read into memory.
const maxBodySize = 64 << 20

// snippetSize is how much of an error body is kept for logging.
const snippetSize = 200

// HttpClientWrapper wraps http.Client with CalDAV-specific functionality.
// Both methods return the raw multistatus body.
type HttpClientWrapper interface {
	DoPROPFIND(ctx context.Context, url string, depth int, body []byte) ([]byte, error)
	DoREPORT(ctx context.Context, url string, depth int, body []byte) ([]byte, error)
}

type httpClientWrapper struct {
	client   *http.Client
	baseURL  url.URL
	timeouts Timeouts
	logger   *slog.Logger
}

// resolveURL resolves a URL string against the base URL
func (c *httpClientWrapper) resolveURL(urlStr string) (*url.URL, error) {
	ref, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL %q: %w", urlStr, err)
	}
	return c.baseURL.ResolveReference(ref), nil
}

// NewHttpClientWrapper creates a new client wrapper with timeouts and logging.
// Authentication is the transport's job, see BasicAuthTransport.
func NewHttpClientWrapper(client *http.Client, baseURL url.URL, timeouts Timeouts, logger *slog.Logger) (HttpClientWrapper, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if client == nil {
		client = &http.Client{}
	}
	if timeouts.Metadata <= 0 || timeouts.Bulk <= 0 {
		def := DefaultTimeouts()
		if timeouts.Metadata <= 0 {
			timeouts.Metadata = def.Metadata
		}
		if timeouts.Bulk <= 0 {
			timeouts.Bulk = def.Bulk
		}
	}
	return &httpClientWrapper{client: client, baseURL: baseURL, timeouts: timeouts, logger: logger}, nil
}

// do issues one DAV request bounded by timeout and expects 207.
func (c *httpClientWrapper) do(ctx context.Context, method, urlStr string, depth int, body []byte, timeout time.Duration) ([]byte, error) {
	resolvedURL, err := c.resolveURL(urlStr)
	if err != nil {
		c.logger.Debug("failed to resolve URL", "url", urlStr, "error", err)
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := newRequest(ctx, method, resolvedURL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/xml; charset=utf-8")
	req.Header.Set("Depth", fmt.Sprintf("%d", depth))

	c.logger.Debug("sending request", "method", method, "url", resolvedURL.String(), "depth", depth)
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", method, "error", err)
		return nil, fmt.Errorf("%w: %s %s: %v", ErrTransport, method, resolvedURL.String(), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s response: %v", ErrTransport, method, err)
	}

	if resp.StatusCode != http.StatusMultiStatus {
		c.logger.Debug("unexpected response status",
			"status_code", resp.StatusCode,
			"status", resp.Status)
		snippet := data
		if len(snippet) > snippetSize {
			snippet = snippet[:snippetSize]
		}
		return nil, &StatusError{
			Method:     method,
			URL:        resolvedURL.String(),
			StatusCode: resp.StatusCode,
			Snippet:    string(snippet),
		}
	}

	c.logger.Debug("received multistatus response", "method", method, "bytes", len(data))
	return data, nil
}
