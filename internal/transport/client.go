package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"postern/internal/auth"
	"postern/pkg/logging"
)

// maxResponseSize caps how much of a response body is buffered.
const maxResponseSize = 10 << 20 // 10MB

// Client sends decorated requests. It satisfies the auth package's
// HTTPDoer so token exchanges ride the same transport as regular
// requests.
type Client struct {
	http      *http.Client
	userAgent string
}

// New creates a client with the given per-request timeout.
func New(timeout time.Duration, userAgent string) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http:      &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Do implements auth.HTTPDoer.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" && c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return c.http.Do(req)
}

// Response is a fully buffered HTTP response.
type Response struct {
	Status   int
	Header   http.Header
	Body     []byte
	Duration time.Duration
}

// Send executes a request descriptor and buffers the response.
func (c *Client) Send(ctx context.Context, desc auth.RequestDescriptor) (*Response, error) {
	var body io.Reader
	if len(desc.Body) > 0 {
		body = bytes.NewReader(desc.Body)
	}

	req, err := http.NewRequestWithContext(ctx, desc.Method, desc.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for name, values := range desc.Header {
		for _, value := range values {
			req.Header.Add(name, value)
		}
	}

	start := time.Now()
	resp, err := c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	elapsed := time.Since(start)

	logging.Debug("Transport", "%s %s -> %d (%d bytes, %s)",
		desc.Method, desc.URL, resp.StatusCode, len(data), elapsed.Round(time.Millisecond))

	return &Response{
		Status:   resp.StatusCode,
		Header:   resp.Header,
		Body:     data,
		Duration: elapsed,
	}, nil
}
