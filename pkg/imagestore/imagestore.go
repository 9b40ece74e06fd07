// Package imagestore keeps food images in object storage.
package imagestore

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gamakdragons/wheretruck/pkg/collection"
	"github.com/gamakdragons/wheretruck/pkg/observability/logger"
	"github.com/gamakdragons/wheretruck/pkg/store/s3"
)

// ObjectStore is the subset of the S3 adapter used for images.
type ObjectStore interface {
	Put(ctx context.Context, bucket, key string, payload []byte, contentType string) (s3.Object, error)
	Delete(ctx context.Context, bucket, key string) error
}

// Store implements collection.ResourceStore for images.
type Store struct {
	objects ObjectStore
	logger  logger.Logger
}

var _ collection.ResourceStore = (*Store)(nil)

// New creates an image store.
func New(objects ObjectStore, log logger.Logger) *Store {
	return &Store{objects: objects, logger: log}
}

// Put uploads res as an image and returns its public URL. The content type is
// sniffed when res does not carry one.
func (s *Store) Put(ctx context.Context, bucket, key string, res collection.Resource) (string, error) {
	contentType := strings.TrimSpace(res.ContentType)
	if contentType == "" {
		contentType = http.DetectContentType(res.Data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("unsupported image content type %q", contentType)
	}

	obj, err := s.objects.Put(ctx, bucket, key, res.Data, contentType)
	if err != nil {
		return "", err
	}
	s.logger.WithContext(ctx).Info("image uploaded", "bucket", obj.Bucket, "key", obj.Key, "bytes", len(res.Data))
	return obj.URL, nil
}

// Remove deletes the image at bucket/key.
func (s *Store) Remove(ctx context.Context, bucket, key string) error {
	if err := s.objects.Delete(ctx, bucket, key); err != nil {
		return err
	}
	s.logger.WithContext(ctx).Info("image removed", "bucket", bucket, "key", key)
	return nil
}
