// Package fetch is the capability-checked network helper exposed to tool
// modules under the "host/fetch" specifier. Access to it is gated by the
// network capability; the playground resolver intercepts it eagerly.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Callable is the shape of a permission-sensitive module value: a function
// tool code invokes directly. It is a type alias so interpreted code can
// assert the plain function signature.
type Callable = func(ctx context.Context, arg string) (map[string]any, error)

const (
	defaultTimeout = 60 * time.Second
	maxBodyBytes   = 2 << 20
	userAgent      = "toolsmith/1.0 (+custom tool host)"
)

// Client fetches URLs on behalf of tool modules.
type Client struct {
	http *http.Client
}

// NewClient creates a fetch client with the default timeout.
func NewClient() *Client {
	return &Client{http: &http.Client{Timeout: defaultTimeout}}
}

// Fetch performs a GET request and returns the fixed response shape
// {status, headers, body}. The body is size-limited. The request honors
// ctx: an aborted context fails the in-flight operation immediately.
func (c *Client) Fetch(ctx context.Context, url string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}

	return map[string]any{
		"status":  resp.StatusCode,
		"headers": headers,
		"body":    string(body),
	}, nil
}

// Module returns the value registered under the "host/fetch" specifier.
func (c *Client) Module() Callable {
	return c.Fetch
}
