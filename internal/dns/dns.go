// Package dns resolves names through a DNS-over-HTTPS JSON resolver.
package dns

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Record types used by the verification predicate.
const (
	TypeA     = 1
	TypeCNAME = 5
	TypeAAAA  = 28
)

// Answer is one resource record of a response.
type Answer struct {
	Name string `json:"name"`
	Type int    `json:"type"`
	TTL  int    `json:"TTL"`
	Data string `json:"data"`
}

// Response is the application/dns-json response body.
type Response struct {
	Status     int      `json:"Status"`
	Answer     []Answer `json:"Answer,omitempty"`
	Authority  []Answer `json:"Authority,omitempty"`
	Additional []Answer `json:"Additional,omitempty"`
}

// Addresses returns the set of A and AAAA record values in the answer
// section.
func (r *Response) Addresses() map[string]struct{} {
	set := make(map[string]struct{})
	for _, a := range r.Answer {
		if a.Type == TypeA || a.Type == TypeAAAA {
			set[a.Data] = struct{}{}
		}
	}
	return set
}

// HasCNAME reports whether the answer section holds a CNAME from name to
// target. Names compare case-insensitively, ignoring a trailing dot.
func (r *Response) HasCNAME(name, target string) bool {
	for _, a := range r.Answer {
		if a.Type == TypeCNAME && SameName(a.Name, name) && SameName(a.Data, target) {
			return true
		}
	}
	return false
}

// SameName compares two DNS names case-insensitively, ignoring a trailing
// dot.
func SameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSuffix(a, "."), strings.TrimSuffix(b, "."))
}

// Resolver looks names up.
type Resolver interface {
	Lookup(ctx context.Context, name string) (*Response, error)
}

// Client is a DNS-over-HTTPS Resolver. It is safe for concurrent use.
type Client struct {
	resolverURL string
	httpClient  *http.Client
	timeout     time.Duration
}

// NewClient creates a Client for the resolver at resolverURL. Each lookup is
// bounded by timeout.
func NewClient(resolverURL string, timeout time.Duration, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		resolverURL: resolverURL,
		httpClient:  httpClient,
		timeout:     timeout,
	}
}

// Lookup resolves name.
func (c *Client) Lookup(ctx context.Context, name string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u, err := url.Parse(c.resolverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid resolver url: %w", err)
	}
	q := u.Query()
	q.Set("name", name)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", "application/dns-json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dns lookup %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("dns lookup %s: resolver returned %d: %s", name, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("dns lookup %s: decode response: %w", name, err)
	}
	return &out, nil
}
