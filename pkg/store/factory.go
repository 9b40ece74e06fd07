package store

import (
	"fmt"
	"strings"

	"github.com/gamakdragons/wheretruck/pkg/config"
	"github.com/gamakdragons/wheretruck/pkg/observability/logger"
	"github.com/gamakdragons/wheretruck/pkg/store/opensearch"
	"github.com/gamakdragons/wheretruck/pkg/store/s3"
)

type searchDriver struct {
	// types lists the search.type values the driver can talk to.
	types []string
	open  func(opensearch.Config, logger.Logger) (SearchAdapter, error)
}

var searchDrivers = map[string]searchDriver{
	config.SearchDriverHTTP: {
		types: []string{config.SearchTypeOpenSearch, config.SearchTypeElasticsearch},
		open: func(c opensearch.Config, l logger.Logger) (SearchAdapter, error) {
			return opensearch.NewAdapter(c, l)
		},
	},
	config.SearchDriverOpenSearchSDK: {
		types: []string{config.SearchTypeOpenSearch},
		open: func(c opensearch.Config, l logger.Logger) (SearchAdapter, error) {
			return opensearch.NewOpenSearchSDKAdapter(c, l)
		},
	},
	config.SearchDriverElasticsearchSDK: {
		types: []string{config.SearchTypeElasticsearch},
		open: func(c opensearch.Config, l logger.Logger) (SearchAdapter, error) {
			return opensearch.NewElasticsearchSDKAdapter(c, l)
		},
	},
}

// NewSearchAdapter connects to the search cluster with the configured driver.
// An empty driver means plain HTTP.
func NewSearchAdapter(cfg config.SearchConfig, log logger.Logger) (SearchAdapter, error) {
	name := normalize(cfg.Driver, config.SearchDriverHTTP)
	driver, ok := searchDrivers[name]
	if !ok {
		return nil, fmt.Errorf("unsupported search.driver %q (supported: http, opensearch-sdk, elasticsearch-sdk)", cfg.Driver)
	}

	kind := normalize(cfg.Type, "")
	if !contains(driver.types, kind) {
		if name == config.SearchDriverHTTP {
			return nil, fmt.Errorf("unsupported search.type %q (supported: opensearch, elasticsearch)", cfg.Type)
		}
		return nil, fmt.Errorf("search.driver %q requires search.type %s", name, strings.Join(driver.types, " or "))
	}

	adapter, err := driver.open(opensearch.Config{
		URL:              cfg.URL,
		URLs:             cfg.URLs,
		Username:         cfg.Username,
		Password:         cfg.Password,
		APIKey:           cfg.APIKey,
		AWSAuthEnabled:   cfg.AWSAuthEnabled,
		AWSRegion:        cfg.AWSRegion,
		AWSService:       cfg.AWSService,
		AWSAccessKeyID:   cfg.AWSAccessKeyID,
		AWSSecretKey:     cfg.AWSSecretKey,
		AWSSessionToken:  cfg.AWSSessionToken,
		MaxConns:         cfg.MaxConns,
		OperationTimeout: cfg.OperationTimeout,
		Refresh:          cfg.Refresh,
	}, log)
	if err != nil {
		return nil, err
	}
	return adapter, nil
}

// NewObjectStorageAdapter returns nil, nil when object storage is disabled.
func NewObjectStorageAdapter(cfg config.ObjectStorageConfig, log logger.Logger) (*s3.Adapter, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if kind := normalize(cfg.Type, config.ObjectStorageTypeS3); kind != config.ObjectStorageTypeS3 {
		return nil, fmt.Errorf("unsupported object_storage.type %q (supported: s3)", cfg.Type)
	}

	c := cfg.S3
	return s3.NewAdapter(s3.Config{
		Bucket:           c.Bucket,
		Region:           c.Region,
		Endpoint:         c.Endpoint,
		AccessKeyID:      c.AccessKeyID,
		SecretAccessKey:  c.SecretAccessKey,
		SessionToken:     c.SessionToken,
		UsePathStyle:     c.UsePathStyle,
		OperationTimeout: c.OperationTimeout,
		PublicBaseURL:    c.PublicBaseURL,
	}, log)
}

func normalize(v, fallback string) string {
	if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
		return v
	}
	return fallback
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
