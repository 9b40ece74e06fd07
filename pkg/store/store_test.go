package store

import (
	"github.com/gamakdragons/wheretruck/pkg/store/opensearch"
)

var (
	_ SearchAdapter = (*opensearch.Adapter)(nil)
	_ SearchAdapter = (*opensearch.OpenSearchSDKAdapter)(nil)
	_ SearchAdapter = (*opensearch.ElasticsearchSDKAdapter)(nil)
)
