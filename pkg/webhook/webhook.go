// Package webhook posts JSON payloads to HTTP endpoints, retrying
// transient failures with exponential backoff.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	defaultMaxRetries = 3
	defaultBackoff    = 500 * time.Millisecond
	maxResponseBytes  = 64 * 1024
)

// Response is the final answer of the endpoint
type Response struct {
	StatusCode int
	Body       string
}

// OK reports whether the endpoint answered with a 2xx status
func (r Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Poster sends JSON payloads
type Poster struct {
	client     *http.Client
	maxRetries uint64
	backoff    time.Duration
	headers    map[string]string
}

// Option configures a Poster
type Option func(*Poster)

// WithHTTPClient replaces the default client
func WithHTTPClient(client *http.Client) Option {
	return func(p *Poster) {
		if client != nil {
			p.client = client
		}
	}
}

// WithRetries sets the number of retries and the initial backoff
func WithRetries(maxRetries uint64, backoff time.Duration) Option {
	return func(p *Poster) {
		p.maxRetries = maxRetries
		p.backoff = backoff
	}
}

// WithHeader adds a header to every request
func WithHeader(key, value string) Option {
	return func(p *Poster) {
		p.headers[key] = value
	}
}

// NewPoster creates a poster
func NewPoster(opts ...Option) *Poster {
	p := &Poster{
		client:     &http.Client{Timeout: 20 * time.Second},
		maxRetries: defaultMaxRetries,
		backoff:    defaultBackoff,
		headers:    map[string]string{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PostJSON posts payload to url. Transport errors and 5xx responses are
// retried; any other response is returned without error.
func (p *Poster) PostJSON(ctx context.Context, url string, payload interface{}) (Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("failed to encode payload: %w", err)
	}

	backoff, err := retry.NewExponential(p.backoff)
	if err != nil {
		return Response{}, fmt.Errorf("failed to create retry mechanism: %w", err)
	}

	var resp Response
	err = retry.Do(ctx, retry.WithMaxRetries(p.maxRetries, backoff), func(ctx context.Context) error {
		// only the last attempt's response counts
		resp = Response{}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range p.headers {
			req.Header.Set(k, v)
		}

		r, err := p.client.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("request %s: %w", url, err))
		}
		defer r.Body.Close()

		raw, _ := io.ReadAll(io.LimitReader(r.Body, maxResponseBytes))
		resp = Response{StatusCode: r.StatusCode, Body: strings.TrimSpace(string(raw))}
		if r.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("server responded with status %d", r.StatusCode))
		}
		return nil
	})
	if err != nil && resp.StatusCode >= 500 {
		// retries exhausted on a server error; the caller decides from the response
		return resp, nil
	}
	return resp, err
}
