package imagestore

import (
	"context"
	"errors"
	"testing"

	"github.com/gamakdragons/wheretruck/pkg/collection"
	"github.com/gamakdragons/wheretruck/pkg/observability/logger"
	"github.com/gamakdragons/wheretruck/pkg/store/s3"
)

type fakeObjects struct {
	uploaded    map[string]string
	deleted     []string
	uploadErr   error
	deleteErr   error
	contentType string
}

func (f *fakeObjects) Put(_ context.Context, bucket, key string, payload []byte, contentType string) (s3.Object, error) {
	if f.uploadErr != nil {
		return s3.Object{}, f.uploadErr
	}
	if f.uploaded == nil {
		f.uploaded = map[string]string{}
	}
	f.uploaded[bucket+"/"+key] = string(payload)
	f.contentType = contentType
	return s3.Object{Bucket: bucket, Key: key, ETag: "etag", URL: "https://" + bucket + "/" + key}, nil
}

func (f *fakeObjects) Delete(_ context.Context, bucket, key string) error {
	f.deleted = append(f.deleted, bucket+"/"+key)
	return f.deleteErr
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestPut_SniffsContentType(t *testing.T) {
	objects := &fakeObjects{}
	s := New(objects, logger.Nop())

	url, err := s.Put(context.Background(), "food", "t-1/f-1", collection.Resource{Data: pngHeader})
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if url != "https://food/t-1/f-1" {
		t.Fatalf("unexpected url %q", url)
	}
	if objects.contentType != "image/png" {
		t.Fatalf("expected sniffed image/png, got %q", objects.contentType)
	}
}

func TestPut_RejectsNonImages(t *testing.T) {
	objects := &fakeObjects{}
	s := New(objects, logger.Nop())

	if _, err := s.Put(context.Background(), "food", "k", collection.Resource{Data: []byte("hello"), ContentType: "text/plain"}); err == nil {
		t.Fatal("expected content type error")
	}
	if len(objects.uploaded) != 0 {
		t.Fatal("non-image must not be uploaded")
	}
}

func TestPut_PropagatesUploadError(t *testing.T) {
	s := New(&fakeObjects{uploadErr: errors.New("denied")}, logger.Nop())

	if _, err := s.Put(context.Background(), "food", "k", collection.Resource{Data: pngHeader}); err == nil {
		t.Fatal("expected upload error")
	}
}

func TestRemove(t *testing.T) {
	objects := &fakeObjects{}
	s := New(objects, logger.Nop())

	if err := s.Remove(context.Background(), "food", "t-1/f-1"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if len(objects.deleted) != 1 || objects.deleted[0] != "food/t-1/f-1" {
		t.Fatalf("unexpected deletes %v", objects.deleted)
	}

	objects.deleteErr = errors.New("throttled")
	if err := s.Remove(context.Background(), "food", "t-1/f-1"); err == nil {
		t.Fatal("expected delete error")
	}
}
