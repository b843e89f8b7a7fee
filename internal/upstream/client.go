// Package upstream is the shared JSON client for the bearer-token APIs the
// service calls (CDN and identity provider).
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/oauth2"

	"github.com/sited-io/websites/internal/metrics"
)

// StatusError is a non-2xx upstream response.
type StatusError struct {
	Service    string
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s %s: status %d: %s", e.Service, e.Method, e.Path, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

func retryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// Options tunes a Client.
type Options struct {
	// Timeout bounds one call including its retries.
	Timeout time.Duration
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries uint64
	// InitialInterval is the first backoff delay.
	InitialInterval time.Duration
	// HTTPClient supplies the base transport.
	HTTPClient *http.Client
}

// Client sends JSON requests to one API with a static bearer token. It is
// safe for concurrent use.
type Client struct {
	service string
	baseURL string
	http    *http.Client
	opts    Options
}

// New creates a Client for the API at baseURL. service names the API in
// errors and metrics.
func New(service, baseURL, token string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = 250 * time.Millisecond
	}
	base := http.DefaultTransport
	if opts.HTTPClient != nil && opts.HTTPClient.Transport != nil {
		base = opts.HTTPClient.Transport
	}

	return &Client{
		service: service,
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Transport: &oauth2.Transport{
				Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
				Base:   base,
			},
		},
		opts: opts,
	}
}

// Do sends method path?query with body encoded as JSON and decodes the
// response into out when out is non-nil. 429 and 5xx responses and transport
// errors are retried with exponential backoff; other failures are returned
// immediately.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("%s: encode request: %w", c.service, err)
		}
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	op := func() error {
		return c.attempt(ctx, method, path, target, payload, out)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.opts.InitialInterval
	policy.MaxElapsedTime = 0
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, c.opts.MaxRetries), ctx))

	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.UpstreamRequestsTotal.WithLabelValues(c.service, result).Inc()
	return err
}

func (c *Client) attempt(ctx context.Context, method, path, target string, payload []byte, out any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(fmt.Errorf("%s %s %s: %w", c.service, method, path, err))
		}
		return fmt.Errorf("%s %s %s: %w", c.service, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s %s: read response: %w", c.service, method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{
			Service:    c.service,
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       truncate(strings.TrimSpace(string(raw)), 512),
		}
		if retryable(resp.StatusCode) {
			return se
		}
		return backoff.Permanent(se)
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return backoff.Permanent(fmt.Errorf("%s %s %s: decode response: %w", c.service, method, path, err))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
