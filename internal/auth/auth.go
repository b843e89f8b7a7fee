// Package auth verifies bearer tokens issued by the identity provider
// against its remote JWKS.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"

	"github.com/sited-io/websites/internal/status"
)

var validMethods = []string{"RS256", "ES256"}

// Verifier validates JWTs with keys fetched from a JWKS endpoint. Keys are
// cached for the configured TTL and refetched early when a token names an
// unknown key id.
type Verifier struct {
	jwksURL  string
	host     string
	cacheTTL time.Duration
	http     *http.Client
	now      func() time.Time

	mu        sync.Mutex
	keys      *jose.JSONWebKeySet
	fetchedAt time.Time
}

// NewVerifier creates a Verifier. host, when set, overrides the Host header
// of JWKS requests.
func NewVerifier(jwksURL, host string, cacheTTL time.Duration, httpClient *http.Client) *Verifier {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Verifier{
		jwksURL:  jwksURL,
		host:     host,
		cacheTTL: cacheTTL,
		http:     httpClient,
		now:      time.Now,
	}
}

func (v *Verifier) fetch(ctx context.Context) (*jose.JSONWebKeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return nil, err
	}
	if v.host != "" {
		req.Host = v.host
	}
	req.Header.Set("Accept", "application/json")

	resp, err := v.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch jwks: status %d", resp.StatusCode)
	}

	var set jose.JSONWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("decode jwks: %w", err)
	}
	return &set, nil
}

// key returns the public key for kid, refreshing the cache when it expired
// or does not know kid.
func (v *Verifier) key(ctx context.Context, kid string) (any, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	fresh := v.keys != nil && v.now().Sub(v.fetchedAt) < v.cacheTTL
	if fresh {
		if k := lookup(v.keys, kid); k != nil {
			return k, nil
		}
	}

	set, err := v.fetch(ctx)
	if err != nil {
		return nil, err
	}
	v.keys = set
	v.fetchedAt = v.now()

	if k := lookup(set, kid); k != nil {
		return k, nil
	}
	return nil, fmt.Errorf("unknown key id %q", kid)
}

func lookup(set *jose.JSONWebKeySet, kid string) any {
	if kid == "" {
		if len(set.Keys) == 1 {
			return set.Keys[0].Key
		}
		return nil
	}
	for _, k := range set.Key(kid) {
		if k.Use == "" || k.Use == "sig" {
			return k.Key
		}
	}
	return nil
}

// Verify checks token and returns its subject.
func (v *Verifier) Verify(ctx context.Context, token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		return v.key(ctx, kid)
	},
		jwt.WithValidMethods(validMethods),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return "", status.Wrap(status.Unauthenticated, err, "invalid token")
	}
	if claims.Subject == "" {
		return "", status.Unauthenticatedf("token has no subject")
	}
	return claims.Subject, nil
}

// Authenticate verifies the bearer token of r and returns the user id.
func (v *Verifier) Authenticate(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", status.Unauthenticatedf("missing bearer token")
	}
	return v.Verify(r.Context(), strings.TrimSpace(token))
}

type ctxKey struct{}

// WithUserID returns ctx carrying the authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserID returns the authenticated user id of ctx.
func UserID(ctx context.Context) (string, error) {
	id, ok := ctx.Value(ctxKey{}).(string)
	if !ok || id == "" {
		return "", status.Unauthenticatedf("not authenticated")
	}
	return id, nil
}
