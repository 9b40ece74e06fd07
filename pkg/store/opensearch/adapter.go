package opensearch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gamakdragons/wheretruck/pkg/observability/logger"
)

const (
	defaultMaxConns         = 10
	defaultOperationTimeout = 5 * time.Second
	startupPingTimeout      = 5 * time.Second
)

// Config holds the search cluster connection settings shared by every driver.
type Config struct {
	URL              string
	URLs             []string
	Username         string
	Password         string
	APIKey           string
	AWSAuthEnabled   bool
	AWSRegion        string
	AWSService       string
	AWSAccessKeyID   string
	AWSSecretKey     string
	AWSSessionToken  string
	MaxConns         int
	OperationTimeout time.Duration
	// Refresh is forwarded as the refresh parameter on writes ("", "true", "wait_for").
	Refresh string
}

func (c Config) withDefaults() Config {
	if c.MaxConns <= 0 {
		c.MaxConns = defaultMaxConns
	}
	if c.OperationTimeout <= 0 {
		c.OperationTimeout = defaultOperationTimeout
	}
	return c
}

func pooledTransport(maxConns int) *http.Transport {
	return &http.Transport{
		MaxIdleConns:        maxConns,
		MaxIdleConnsPerHost: maxConns,
		MaxConnsPerHost:     maxConns,
		IdleConnTimeout:     90 * time.Second,
	}
}

// Adapter talks to OpenSearch or Elasticsearch over plain HTTP. Requests rotate
// across the configured nodes. Idempotent requests fail over on transport errors
// and 502/503/504; scripted updates fail over only when the connection could not be made.
type Adapter struct {
	documents

	nodes  []url.URL
	next   atomic.Uint64
	client *http.Client
	pool   *http.Transport
	auth   func(*http.Request)
}

// NewAdapter connects to the cluster and pings it once.
func NewAdapter(cfg Config, log logger.Logger) (*Adapter, error) {
	nodes, err := parseNodes(cfg)
	if err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	pool := pooledTransport(cfg.MaxConns)
	var transport http.RoundTripper = pool
	if cfg.AWSAuthEnabled {
		if transport, err = newSigV4Transport(pool, cfg); err != nil {
			return nil, err
		}
	}

	a := &Adapter{
		nodes:  nodes,
		client: &http.Client{Transport: transport, Timeout: cfg.OperationTimeout},
		pool:   pool,
		auth:   headerAuth(cfg),
	}
	a.documents = documents{driver: "search", ex: a, refresh: cfg.Refresh, logger: log}

	ctx, cancel := context.WithTimeout(context.Background(), startupPingTimeout)
	defer cancel()
	if err := a.Ping(ctx); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("ping search cluster: %w", err)
	}

	log.Info("search connection established",
		"nodes", len(nodes),
		"aws_auth_enabled", cfg.AWSAuthEnabled,
		"max_conns", cfg.MaxConns,
		"operation_timeout", cfg.OperationTimeout,
		"refresh", cfg.Refresh,
	)
	return a, nil
}

// Close drops idle connections.
func (a *Adapter) Close() error {
	a.pool.CloseIdleConnections()
	return nil
}

func (a *Adapter) exchange(ctx context.Context, policy resend, method, path string, body []byte) (int, []byte, error) {
	start := int(a.next.Add(1)-1) % len(a.nodes)
	var lastErr error

	for attempt := range len(a.nodes) {
		node := a.nodes[(start+attempt)%len(a.nodes)]
		last := attempt == len(a.nodes)-1

		resp, err := a.send(ctx, node, method, path, body)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil || (policy == resendUnsent && !neverSent(err)) {
				break
			}
			continue
		}

		data, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return 0, nil, fmt.Errorf("read response from %s: %w", node.Host, err)
		}
		if policy == resendSafe && retryable(resp.StatusCode) && !last {
			lastErr = fmt.Errorf("node %s answered %d", node.Host, resp.StatusCode)
			continue
		}
		return resp.StatusCode, data, nil
	}
	return 0, nil, lastErr
}

// neverSent reports whether err happened while dialing, before any byte of the request left.
func neverSent(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

func (a *Adapter) send(ctx context.Context, node url.URL, method, path string, body []byte) (*http.Response, error) {
	rel, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("invalid request path %q: %w", path, err)
	}
	endpoint := node.ResolveReference(rel).String()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "wheretruck")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	a.auth(req)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	return resp, nil
}

// headerAuth picks API key or basic auth. SigV4 signing happens in the transport instead.
func headerAuth(cfg Config) func(*http.Request) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	switch {
	case cfg.AWSAuthEnabled:
	case apiKey != "":
		return func(r *http.Request) { r.Header.Set("Authorization", "ApiKey "+apiKey) }
	case strings.TrimSpace(cfg.Username) != "":
		return func(r *http.Request) { r.SetBasicAuth(cfg.Username, cfg.Password) }
	}
	return func(*http.Request) {}
}

func retryable(status int) bool {
	return status == http.StatusBadGateway || status == http.StatusServiceUnavailable || status == http.StatusGatewayTimeout
}
