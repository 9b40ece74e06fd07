package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gamakdragons/wheretruck/pkg/observability/logger"
	"golang.org/x/sync/singleflight"
)

// ErrKeyNotFound is returned when no published key has the requested kid.
var ErrKeyNotFound = errors.New("signing key not found")

const jwksFetchTimeout = 10 * time.Second

// KeySource resolves a verification key by kid.
type KeySource interface {
	GetKey(ctx context.Context, kid string) (interface{}, error)
}

// JSONWebKey is one entry of a published key set. Only RSA keys are used.
type JSONWebKey struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JSONWebKeySet is the document served at a jwks_uri.
type JSONWebKeySet struct {
	Keys []JSONWebKey `json:"keys"`
}

type keySet struct {
	keys    map[string]*rsa.PublicKey
	expires time.Time
}

// JWKSClient serves keys from a provider's jwks_uri, refetching the set when
// it has expired or a kid is unknown.
type JWKSClient struct {
	url    string
	ttl    time.Duration
	http   *http.Client
	now    func() time.Time
	logger logger.Logger

	current atomic.Pointer[keySet]
	flight  singleflight.Group
}

// JWKSOption configures a JWKSClient.
type JWKSOption func(*JWKSClient)

func WithHTTPClient(client *http.Client) JWKSOption {
	return func(c *JWKSClient) {
		if client != nil {
			c.http = client
		}
	}
}

func WithClock(now func() time.Time) JWKSOption {
	return func(c *JWKSClient) {
		if now != nil {
			c.now = now
		}
	}
}

func NewJWKSClient(url string, ttl time.Duration, log logger.Logger, opts ...JWKSOption) *JWKSClient {
	c := &JWKSClient{
		url:    url,
		ttl:    ttl,
		http:   &http.Client{Timeout: jwksFetchTimeout},
		now:    time.Now,
		logger: log,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// GetKey returns the RSA public key published under kid.
func (c *JWKSClient) GetKey(ctx context.Context, kid string) (interface{}, error) {
	if key, ok := c.lookup(kid); ok {
		return key, nil
	}

	v, err, _ := c.flight.Do(c.url, func() (interface{}, error) {
		if cur := c.current.Load(); cur != nil && c.now().Before(cur.expires) && cur.keys[kid] != nil {
			return cur, nil
		}
		set, err := c.fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.current.Store(set)
		return set, nil
	})
	if err != nil {
		return nil, fmt.Errorf("refresh JWKS: %w", err)
	}

	key, ok := v.(*keySet).keys[kid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, kid)
	}
	return key, nil
}

func (c *JWKSClient) lookup(kid string) (*rsa.PublicKey, bool) {
	set := c.current.Load()
	if set == nil || c.now().After(set.expires) {
		return nil, false
	}
	key, ok := set.keys[kid]
	return key, ok
}

func (c *JWKSClient) fetch(ctx context.Context) (*keySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	var doc JSONWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode JWKS: %w", err)
	}

	set := &keySet{keys: make(map[string]*rsa.PublicKey, len(doc.Keys)), expires: c.now().Add(c.ttl)}
	for _, jwk := range doc.Keys {
		key, err := jwk.rsaPublicKey()
		if err != nil {
			c.logger.Warn("skipping JWK", "kid", jwk.Kid, "error", err)
			continue
		}
		set.keys[jwk.Kid] = key
	}
	if len(set.keys) == 0 {
		return nil, errors.New("JWKS contains no usable keys")
	}
	c.logger.Debug("JWKS refreshed", "url", c.url, "keys", len(set.keys))
	return set, nil
}

func (k JSONWebKey) rsaPublicKey() (*rsa.PublicKey, error) {
	if k.Kty != "RSA" {
		return nil, fmt.Errorf("unsupported key type %q", k.Kty)
	}
	n, err := decodeBigInt(k.N)
	if err != nil {
		return nil, fmt.Errorf("modulus: %w", err)
	}
	e, err := decodeBigInt(k.E)
	if err != nil {
		return nil, fmt.Errorf("exponent: %w", err)
	}
	if !e.IsInt64() || e.Int64() < 3 {
		return nil, errors.New("invalid exponent")
	}
	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}

func decodeBigInt(s string) (*big.Int, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.New("empty value")
	}
	return new(big.Int).SetBytes(raw), nil
}
