//go:build !elasticsearch_sdk

package opensearch

import (
	"errors"

	"github.com/gamakdragons/wheretruck/pkg/observability/logger"
)

var errElasticsearchSDKDisabled = errors.New("elasticsearch-sdk driver is not compiled in; rebuild with -tags elasticsearch_sdk")

// ElasticsearchSDKAdapter requires the elasticsearch_sdk build tag.
type ElasticsearchSDKAdapter struct {
	documents
}

// NewElasticsearchSDKAdapter always fails without the elasticsearch_sdk build tag.
func NewElasticsearchSDKAdapter(Config, logger.Logger) (*ElasticsearchSDKAdapter, error) {
	return nil, errElasticsearchSDKDisabled
}

// Close is a no-op.
func (a *ElasticsearchSDKAdapter) Close() error { return nil }
