// Package resource calls a protected resource over its plain HTTP contract,
// with or without a bearer token. It exists for the demonstration call and
// for probing a resource to obtain its WWW-Authenticate challenge.
package resource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Response is the outcome of one resource request.
type Response struct {
	Status    int
	Body      string
	Challenge string // WWW-Authenticate header value, set on a 401
}

// Unauthorized reports whether the resource demanded authentication.
func (r *Response) Unauthorized() bool { return r.Status == http.StatusUnauthorized }

// Client issues GET requests against a protected resource.
type Client struct {
	HTTPClient *http.Client
}

// Get fetches rawURL. A non-empty token is sent as a Bearer credential; an
// empty token makes this an unauthenticated probe, whose 401 response carries
// the challenge the authorization flow needs. Non-2xx statuses are returned
// in the Response, not as errors — the caller decides what a 401 means.
func (c *Client) Get(ctx context.Context, rawURL, token string) (*Response, error) {
	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build resource request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("resource request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read resource response: %w", err)
	}

	return &Response{
		Status:    resp.StatusCode,
		Body:      string(body),
		Challenge: resp.Header.Get("WWW-Authenticate"),
	}, nil
}
