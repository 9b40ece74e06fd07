package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/gamakdragons/wheretruck/pkg/observability/logger"
)

type mockLogger struct{}

func (m *mockLogger) Debug(string, ...any)                      {}
func (m *mockLogger) Info(string, ...any)                       {}
func (m *mockLogger) Warn(string, ...any)                       {}
func (m *mockLogger) Error(string, ...any)                      {}
func (m *mockLogger) With(...any) logger.Logger                 { return m }
func (m *mockLogger) WithContext(context.Context) logger.Logger { return m }

type mockS3Client struct {
	headBucketFn   func(context.Context, *awss3.HeadBucketInput, ...func(*awss3.Options)) (*awss3.HeadBucketOutput, error)
	putObjectFn    func(context.Context, *awss3.PutObjectInput, ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
	deleteObjectFn func(context.Context, *awss3.DeleteObjectInput, ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error)
}

func (m *mockS3Client) HeadBucket(ctx context.Context, in *awss3.HeadBucketInput, optFns ...func(*awss3.Options)) (*awss3.HeadBucketOutput, error) {
	if m.headBucketFn != nil {
		return m.headBucketFn(ctx, in, optFns...)
	}
	return &awss3.HeadBucketOutput{}, nil
}

func (m *mockS3Client) PutObject(ctx context.Context, in *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error) {
	if m.putObjectFn != nil {
		return m.putObjectFn(ctx, in, optFns...)
	}
	return &awss3.PutObjectOutput{}, nil
}

func (m *mockS3Client) DeleteObject(ctx context.Context, in *awss3.DeleteObjectInput, optFns ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error) {
	if m.deleteObjectFn != nil {
		return m.deleteObjectFn(ctx, in, optFns...)
	}
	return &awss3.DeleteObjectOutput{}, nil
}

func testAdapter(client s3API, cfg Config) *Adapter {
	if cfg.Bucket == "" {
		cfg.Bucket = "default-bucket"
	}
	if cfg.Region == "" {
		cfg.Region = "ap-northeast-2"
	}
	cfg.OperationTimeout = time.Second
	return newAdapter(client, cfg, &mockLogger{})
}

func TestNewAdapter_Validation(t *testing.T) {
	if _, err := NewAdapter(Config{Region: "eu-west-1"}, &mockLogger{}); err == nil {
		t.Fatal("expected bucket validation error")
	}
	if _, err := NewAdapter(Config{Bucket: "b"}, &mockLogger{}); err == nil {
		t.Fatal("expected region validation error")
	}
}

func TestPut_UsesBucketArgumentAndDefault(t *testing.T) {
	var buckets []string
	var body string
	client := &mockS3Client{
		putObjectFn: func(_ context.Context, in *awss3.PutObjectInput, _ ...func(*awss3.Options)) (*awss3.PutObjectOutput, error) {
			buckets = append(buckets, aws.ToString(in.Bucket))
			if aws.ToString(in.ContentType) != "image/png" {
				t.Errorf("unexpected content type %q", aws.ToString(in.ContentType))
			}
			if aws.ToInt64(in.ContentLength) != 3 {
				t.Errorf("unexpected content length %d", aws.ToInt64(in.ContentLength))
			}
			b, _ := io.ReadAll(in.Body)
			body = string(b)
			return &awss3.PutObjectOutput{ETag: aws.String("\"etag-1\"")}, nil
		},
	}
	a := testAdapter(client, Config{})

	obj, err := a.Put(context.Background(), "food-images", "t-1/f-1", []byte("png"), "image/png")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if obj.ETag != "etag-1" || body != "png" {
		t.Fatalf("unexpected object %+v body %q", obj, body)
	}
	if obj.URL != "https://food-images.s3.ap-northeast-2.amazonaws.com/t-1/f-1" {
		t.Fatalf("unexpected url %q", obj.URL)
	}

	obj, err = a.Put(context.Background(), "", "k", []byte("png"), "image/png")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if obj.Bucket != "default-bucket" || buckets[0] != "food-images" || buckets[1] != "default-bucket" {
		t.Fatalf("unexpected buckets %v (object %+v)", buckets, obj)
	}
}

func TestPut_Validation(t *testing.T) {
	a := testAdapter(&mockS3Client{}, Config{})

	if _, err := a.Put(context.Background(), "b", " ", []byte("x"), ""); err == nil {
		t.Fatal("expected key validation error")
	}
	if _, err := a.Put(context.Background(), "b", "k", nil, ""); err == nil {
		t.Fatal("expected payload validation error")
	}
}

func TestDelete_WrapsError(t *testing.T) {
	client := &mockS3Client{
		deleteObjectFn: func(context.Context, *awss3.DeleteObjectInput, ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error) {
			return nil, errors.New("access denied")
		},
	}
	a := testAdapter(client, Config{})

	err := a.Delete(context.Background(), "food-images", "t-1/f-1")
	if err == nil || !strings.Contains(err.Error(), "food-images/t-1/f-1") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestObjectURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"aws virtual host", Config{}, "https://food-images.s3.ap-northeast-2.amazonaws.com/t-1/f%201"},
		{"public base", Config{PublicBaseURL: "https://cdn.example.com/"}, "https://cdn.example.com/t-1/f%201"},
		{"path style endpoint", Config{Endpoint: "http://localhost:9000", UsePathStyle: true}, "http://localhost:9000/food-images/t-1/f%201"},
		{"virtual host endpoint", Config{Endpoint: "https://objects.example.com"}, "https://food-images.objects.example.com/t-1/f%201"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := testAdapter(&mockS3Client{}, tt.cfg)
			if got := a.ObjectURL("food-images", "t-1/f 1"); got != tt.want {
				t.Fatalf("ObjectURL = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHealthCheck(t *testing.T) {
	client := &mockS3Client{
		headBucketFn: func(context.Context, *awss3.HeadBucketInput, ...func(*awss3.Options)) (*awss3.HeadBucketOutput, error) {
			return nil, errors.New("no such bucket")
		},
	}
	if err := testAdapter(client, Config{}).HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check error")
	}
}

func TestClose_RejectsCalls(t *testing.T) {
	a := testAdapter(&mockS3Client{}, Config{})
	_ = a.Close()

	if _, err := a.Put(context.Background(), "b", "k", []byte("x"), ""); err == nil {
		t.Fatal("expected closed adapter error")
	}
	if err := a.Delete(context.Background(), "b", "k"); err == nil {
		t.Fatal("expected closed adapter error")
	}
	if err := a.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected closed adapter to be unhealthy")
	}
}
