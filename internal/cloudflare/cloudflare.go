// Package cloudflare manages DNS records and SSL-for-SaaS custom hostnames in
// the platform zone through the Cloudflare v4 API.
package cloudflare

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sited-io/websites/internal/upstream"
)

// DNSRecord is a zone DNS record.
type DNSRecord struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Content string `json:"content"`
	Type    string `json:"type"`
	Proxied bool   `json:"proxied"`
	TTL     int    `json:"ttl"`
}

// SSL is the certificate request of a custom hostname.
type SSL struct {
	Method   string `json:"method"`
	Type     string `json:"type"`
	Wildcard bool   `json:"wildcard"`
}

// CustomHostname is an SSL-for-SaaS hostname.
type CustomHostname struct {
	ID       string `json:"id,omitempty"`
	Hostname string `json:"hostname"`
	SSL      *SSL   `json:"ssl,omitempty"`
	Status   string `json:"status,omitempty"`
}

// APIError is one entry of the envelope's errors array.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type envelope[T any] struct {
	Success bool       `json:"success"`
	Errors  []APIError `json:"errors"`
	Result  T          `json:"result"`
}

func (e *envelope[T]) err(op string) error {
	if e.Success {
		return nil
	}
	msgs := make([]string, len(e.Errors))
	for i, ae := range e.Errors {
		msgs[i] = fmt.Sprintf("%d: %s", ae.Code, ae.Message)
	}
	return fmt.Errorf("cloudflare %s: request failed: %s", op, strings.Join(msgs, "; "))
}

// Client is a zone-scoped Cloudflare client.
type Client struct {
	api    *upstream.Client
	zoneID string
}

// New creates a Client for zoneID.
func New(apiURL, zoneID, token string, opts upstream.Options) *Client {
	return &Client{
		api:    upstream.New("cloudflare", apiURL, token, opts),
		zoneID: zoneID,
	}
}

func (c *Client) path(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return "/zones/" + url.PathEscape(c.zoneID) + "/" + strings.Join(escaped, "/")
}

func call[T any](ctx context.Context, c *Client, op, method, path string, query url.Values, body any) (T, error) {
	var env envelope[T]
	if err := c.api.Do(ctx, method, path, query, body, &env); err != nil {
		var zero T
		return zero, err
	}
	if err := env.err(op); err != nil {
		var zero T
		return zero, err
	}
	return env.Result, nil
}

// CreateDNSRecord creates a DNS record.
func (c *Client) CreateDNSRecord(ctx context.Context, rec DNSRecord) (*DNSRecord, error) {
	out, err := call[DNSRecord](ctx, c, "create dns record", http.MethodPost, c.path("dns_records"), nil, rec)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateCNAME points name at target through the proxy with automatic TTL.
func (c *Client) CreateCNAME(ctx context.Context, name, target string) (*DNSRecord, error) {
	return c.CreateDNSRecord(ctx, DNSRecord{
		Name:    name,
		Content: target,
		Type:    "CNAME",
		Proxied: true,
		TTL:     1,
	})
}

// ListDNSRecords lists the records named name.
func (c *Client) ListDNSRecords(ctx context.Context, name string) ([]DNSRecord, error) {
	return call[[]DNSRecord](ctx, c, "list dns records", http.MethodGet, c.path("dns_records"), url.Values{"name": {name}}, nil)
}

// DeleteDNSRecord deletes a record. A missing record is not an error.
func (c *Client) DeleteDNSRecord(ctx context.Context, id string) error {
	_, err := call[struct{}](ctx, c, "delete dns record", http.MethodDelete, c.path("dns_records", id), nil, nil)
	if upstream.IsNotFound(err) {
		return nil
	}
	return err
}

// DeleteDNSRecords deletes every record named name.
func (c *Client) DeleteDNSRecords(ctx context.Context, name string) error {
	recs, err := c.ListDNSRecords(ctx, name)
	if err != nil {
		return err
	}
	for _, r := range recs {
		if err := c.DeleteDNSRecord(ctx, r.ID); err != nil {
			return err
		}
	}
	return nil
}

// CreateCustomHostname requests a custom hostname with an HTTP-validated DV
// certificate.
func (c *Client) CreateCustomHostname(ctx context.Context, hostname string) (*CustomHostname, error) {
	out, err := call[CustomHostname](ctx, c, "create custom hostname", http.MethodPost, c.path("custom_hostnames"), nil, CustomHostname{
		Hostname: hostname,
		SSL:      &SSL{Method: "http", Type: "dv", Wildcard: false},
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListCustomHostnames lists the custom hostnames for hostname.
func (c *Client) ListCustomHostnames(ctx context.Context, hostname string) ([]CustomHostname, error) {
	return call[[]CustomHostname](ctx, c, "list custom hostnames", http.MethodGet, c.path("custom_hostnames"), url.Values{"hostname": {hostname}}, nil)
}

// DeleteCustomHostname deletes a custom hostname. A missing hostname is not
// an error.
func (c *Client) DeleteCustomHostname(ctx context.Context, id string) error {
	_, err := call[struct{}](ctx, c, "delete custom hostname", http.MethodDelete, c.path("custom_hostnames", id), nil, nil)
	if upstream.IsNotFound(err) {
		return nil
	}
	return err
}

// DeleteCustomHostnames deletes every custom hostname for hostname.
func (c *Client) DeleteCustomHostnames(ctx context.Context, hostname string) error {
	hosts, err := c.ListCustomHostnames(ctx, hostname)
	if err != nil {
		return err
	}
	for _, h := range hosts {
		if err := c.DeleteCustomHostname(ctx, h.ID); err != nil {
			return err
		}
	}
	return nil
}
