//go:build opensearch_sdk

package opensearch

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	opensearchsdk "github.com/opensearch-project/opensearch-go/v4"
	awssigner "github.com/opensearch-project/opensearch-go/v4/signer/awsv2"

	"github.com/gamakdragons/wheretruck/pkg/observability/logger"
)

// OpenSearchSDKAdapter runs the document operations through opensearch-go.
type OpenSearchSDKAdapter struct {
	documents

	client *opensearchsdk.Client
	pool   *http.Transport
}

// NewOpenSearchSDKAdapter builds the opensearch-go client and pings the cluster.
func NewOpenSearchSDKAdapter(cfg Config, log logger.Logger) (*OpenSearchSDKAdapter, error) {
	addresses, err := nodeAddresses(cfg)
	if err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	pool := pooledTransport(cfg.MaxConns)

	clientCfg := opensearchsdk.Config{
		Addresses:    addresses,
		Username:     cfg.Username,
		Password:     cfg.Password,
		Transport:    pool,
		DisableRetry: true, // a resent _update applies its script twice
	}
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		clientCfg.Header = http.Header{"Authorization": []string{"ApiKey " + key}}
	}
	if cfg.AWSAuthEnabled {
		if strings.TrimSpace(cfg.AWSRegion) == "" {
			return nil, fmt.Errorf("aws region is required when AWS auth is enabled")
		}
		creds, err := awsCredentials(context.Background(), cfg)
		if err != nil {
			return nil, err
		}
		service := strings.TrimSpace(cfg.AWSService)
		if service == "" {
			service = defaultAWSService
		}
		if clientCfg.Signer, err = awssigner.NewSignerWithService(aws.Config{Region: cfg.AWSRegion, Credentials: creds}, service); err != nil {
			return nil, fmt.Errorf("create opensearch signer: %w", err)
		}
	}

	client, err := opensearchsdk.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create opensearch client: %w", err)
	}

	a := &OpenSearchSDKAdapter{client: client, pool: pool}
	a.documents = documents{driver: "opensearch sdk", ex: a, refresh: cfg.Refresh, logger: log}

	ctx, cancel := context.WithTimeout(context.Background(), startupPingTimeout)
	defer cancel()
	if err := a.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping opensearch: %w", err)
	}
	log.Info("search connection established", "driver", a.driver, "nodes", len(addresses))
	return a, nil
}

// Close drops idle connections.
func (a *OpenSearchSDKAdapter) Close() error {
	a.pool.CloseIdleConnections()
	return nil
}

func (a *OpenSearchSDKAdapter) exchange(ctx context.Context, _ resend, method, path string, body []byte) (int, []byte, error) {
	return performRequest(ctx, a.client.Perform, method, path, body)
}
