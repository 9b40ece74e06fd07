//go:build !opensearch_sdk

package opensearch

import (
	"errors"

	"github.com/gamakdragons/wheretruck/pkg/observability/logger"
)

var errOpenSearchSDKDisabled = errors.New("opensearch-sdk driver is not compiled in; rebuild with -tags opensearch_sdk")

// OpenSearchSDKAdapter requires the opensearch_sdk build tag.
type OpenSearchSDKAdapter struct {
	documents
}

// NewOpenSearchSDKAdapter always fails without the opensearch_sdk build tag.
func NewOpenSearchSDKAdapter(Config, logger.Logger) (*OpenSearchSDKAdapter, error) {
	return nil, errOpenSearchSDKDisabled
}

// Close is a no-op.
func (a *OpenSearchSDKAdapter) Close() error { return nil }
