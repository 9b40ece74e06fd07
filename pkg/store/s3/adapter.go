// Package s3 stores objects in Amazon S3 or an S3-compatible service.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/gamakdragons/wheretruck/pkg/observability/logger"
)

const (
	defaultOperationTimeout = 10 * time.Second
	healthCheckTimeout      = 2 * time.Second
)

var errClosed = errors.New("s3 adapter is closed")

// Config defines S3 adapter configuration.
type Config struct {
	// Bucket is used when a call passes an empty bucket.
	Bucket           string
	Region           string
	Endpoint         string
	AccessKeyID      string
	SecretAccessKey  string
	SessionToken     string
	UsePathStyle     bool
	OperationTimeout time.Duration
	// PublicBaseURL, when set, prefixes object keys in ObjectURL instead of the S3 host.
	PublicBaseURL string
}

// Object describes a stored object.
type Object struct {
	Bucket string
	Key    string
	ETag   string
	URL    string
}

type s3API interface {
	HeadBucket(ctx context.Context, params *awss3.HeadBucketInput, optFns ...func(*awss3.Options)) (*awss3.HeadBucketOutput, error)
	PutObject(ctx context.Context, params *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *awss3.DeleteObjectInput, optFns ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error)
}

// Adapter reads and writes objects through the S3 API.
type Adapter struct {
	client s3API
	config Config
	urls   urlBuilder
	logger logger.Logger
	closed atomic.Bool
}

// NewAdapter builds an S3 client and checks that the default bucket is reachable.
func NewAdapter(cfg Config, log logger.Logger) (*Adapter, error) {
	switch {
	case strings.TrimSpace(cfg.Bucket) == "":
		return nil, errors.New("s3 bucket is required")
	case strings.TrimSpace(cfg.Region) == "":
		return nil, errors.New("aws region is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	a := newAdapter(client, cfg, log)

	ctx, cancel := a.operationContext(context.Background())
	defer cancel()
	if err := a.ping(ctx); err != nil {
		return nil, err
	}

	log.Info("object storage connected", "bucket", cfg.Bucket, "region", cfg.Region, "endpoint", cfg.Endpoint)
	return a, nil
}

func newAdapter(client s3API, cfg Config, log logger.Logger) *Adapter {
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = defaultOperationTimeout
	}
	return &Adapter{client: client, config: cfg, urls: newURLBuilder(cfg), logger: log}
}

// Put stores payload at bucket/key. An empty bucket means the configured one.
func (a *Adapter) Put(ctx context.Context, bucket, key string, payload []byte, contentType string) (Object, error) {
	bucket, key, err := a.target(bucket, key)
	if err != nil {
		return Object{}, err
	}
	if len(payload) == 0 {
		return Object{}, errors.New("object payload is empty")
	}

	in := &awss3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(payload),
		ContentLength: aws.Int64(int64(len(payload))),
	}
	if ct := strings.TrimSpace(contentType); ct != "" {
		in.ContentType = aws.String(ct)
	}

	ctx, cancel := a.operationContext(ctx)
	defer cancel()
	out, err := a.client.PutObject(ctx, in)
	if err != nil {
		return Object{}, fmt.Errorf("put object %s/%s: %w", bucket, key, err)
	}
	return Object{
		Bucket: bucket,
		Key:    key,
		ETag:   strings.Trim(aws.ToString(out.ETag), "\" "),
		URL:    a.urls.objectURL(bucket, key),
	}, nil
}

// Delete removes bucket/key. S3 reports success for missing keys.
func (a *Adapter) Delete(ctx context.Context, bucket, key string) error {
	bucket, key, err := a.target(bucket, key)
	if err != nil {
		return err
	}

	ctx, cancel := a.operationContext(ctx)
	defer cancel()
	if _, err := a.client.DeleteObject(ctx, &awss3.DeleteObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)}); err != nil {
		return fmt.Errorf("delete object %s/%s: %w", bucket, key, err)
	}
	return nil
}

// ObjectURL returns the public URL of bucket/key.
func (a *Adapter) ObjectURL(bucket, key string) string {
	if strings.TrimSpace(bucket) == "" {
		bucket = a.config.Bucket
	}
	return a.urls.objectURL(bucket, strings.TrimSpace(key))
}

// HealthCheck checks that the default bucket answers within a short timeout.
func (a *Adapter) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	if err := a.ping(ctx); err != nil {
		a.logger.Error("object storage health check failed", "bucket", a.config.Bucket, "error", err)
		return err
	}
	return nil
}

// Close rejects every later call.
func (a *Adapter) Close() error {
	a.closed.Store(true)
	return nil
}

func (a *Adapter) ping(ctx context.Context) error {
	if a.closed.Load() {
		return errClosed
	}
	if _, err := a.client.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: aws.String(a.config.Bucket)}); err != nil {
		return fmt.Errorf("head bucket %s: %w", a.config.Bucket, err)
	}
	return nil
}

func (a *Adapter) target(bucket, key string) (string, string, error) {
	if a.closed.Load() {
		return "", "", errClosed
	}
	if bucket = strings.TrimSpace(bucket); bucket == "" {
		bucket = a.config.Bucket
	}
	if key = strings.TrimSpace(key); key == "" {
		return "", "", errors.New("object key is required")
	}
	return bucket, key, nil
}

func (a *Adapter) operationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.config.OperationTimeout)
}
