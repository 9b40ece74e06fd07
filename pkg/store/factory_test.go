package store

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gamakdragons/wheretruck/pkg/config"
	"github.com/gamakdragons/wheretruck/pkg/observability/logger"
)

type mockLogger struct{}

func (m *mockLogger) Debug(string, ...any)                      {}
func (m *mockLogger) Info(string, ...any)                       {}
func (m *mockLogger) Warn(string, ...any)                       {}
func (m *mockLogger) Error(string, ...any)                      {}
func (m *mockLogger) With(...any) logger.Logger                 { return m }
func (m *mockLogger) WithContext(context.Context) logger.Logger { return m }

func TestNewObjectStorageAdapter_Disabled(t *testing.T) {
	adapter, err := NewObjectStorageAdapter(config.ObjectStorageConfig{Enabled: false}, &mockLogger{})
	if err != nil {
		t.Fatalf("expected no error when disabled, got %v", err)
	}
	if adapter != nil {
		t.Fatalf("expected nil adapter when disabled")
	}
}

func TestFactories_RejectInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		open    func() error
		wantErr string
	}{
		{
			name: "object storage type",
			open: func() error {
				_, err := NewObjectStorageAdapter(config.ObjectStorageConfig{Enabled: true, Type: "gcs"}, &mockLogger{})
				return err
			},
			wantErr: "unsupported object_storage.type",
		},
		{
			name: "s3 without bucket",
			open: func() error {
				_, err := NewObjectStorageAdapter(config.ObjectStorageConfig{
					Enabled: true,
					S3:      config.ObjectStorageS3Config{Region: "ap-northeast-2"},
				}, &mockLogger{})
				return err
			},
			wantErr: "bucket",
		},
		{
			name:    "search type",
			open:    searchOpener(config.SearchConfig{Type: "solr", Driver: "http"}),
			wantErr: "unsupported search.type",
		},
		{
			name:    "search driver",
			open:    searchOpener(config.SearchConfig{Type: "opensearch", Driver: "grpc"}),
			wantErr: "unsupported search.driver",
		},
		{
			name:    "opensearch sdk on elasticsearch",
			open:    searchOpener(config.SearchConfig{Type: "elasticsearch", Driver: "opensearch-sdk", URL: "http://localhost:9200"}),
			wantErr: "requires search.type opensearch",
		},
		{
			name:    "elasticsearch sdk on opensearch",
			open:    searchOpener(config.SearchConfig{Type: "opensearch", Driver: "Elasticsearch-SDK", URL: "http://localhost:9200"}),
			wantErr: "requires search.type elasticsearch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.open()
			if err == nil || !strings.Contains(strings.ToLower(err.Error()), strings.ToLower(tt.wantErr)) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func searchOpener(cfg config.SearchConfig) func() error {
	return func() error {
		_, err := NewSearchAdapter(cfg, &mockLogger{})
		return err
	}
}

func TestNewSearchAdapter_HTTPDriver(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	adapter, err := NewSearchAdapter(config.SearchConfig{
		Type:             "elasticsearch",
		URL:              srv.URL,
		MaxConns:         2,
		OperationTimeout: time.Second,
	}, &mockLogger{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer adapter.Close()

	if err := adapter.HealthCheck(context.Background()); err != nil {
		t.Fatalf("health check: %v", err)
	}
}
