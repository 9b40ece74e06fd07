//go:build elasticsearch_sdk

package opensearch

import (
	"context"
	"fmt"
	"net/http"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"

	"github.com/gamakdragons/wheretruck/pkg/observability/logger"
)

// ElasticsearchSDKAdapter runs the document operations through go-elasticsearch.
type ElasticsearchSDKAdapter struct {
	documents

	client *elasticsearch.Client
	pool   *http.Transport
}

// NewElasticsearchSDKAdapter builds the go-elasticsearch client and pings the cluster.
func NewElasticsearchSDKAdapter(cfg Config, log logger.Logger) (*ElasticsearchSDKAdapter, error) {
	addresses, err := nodeAddresses(cfg)
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

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    addresses,
		Username:     cfg.Username,
		Password:     cfg.Password,
		APIKey:       cfg.APIKey,
		Transport:    transport,
		DisableRetry: true, // a resent _update applies its script twice
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	a := &ElasticsearchSDKAdapter{client: client, pool: pool}
	a.documents = documents{driver: "elasticsearch sdk", ex: a, refresh: cfg.Refresh, logger: log}

	ctx, cancel := context.WithTimeout(context.Background(), startupPingTimeout)
	defer cancel()
	if err := a.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping elasticsearch: %w", err)
	}
	log.Info("search connection established", "driver", a.driver, "nodes", len(addresses))
	return a, nil
}

// Close drops idle connections.
func (a *ElasticsearchSDKAdapter) Close() error {
	a.pool.CloseIdleConnections()
	return nil
}

func (a *ElasticsearchSDKAdapter) exchange(ctx context.Context, _ resend, method, path string, body []byte) (int, []byte, error) {
	return performRequest(ctx, a.client.Perform, method, path, body)
}
