package opensearch

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

const defaultAWSService = "es"

// awsCredentials resolves static keys from cfg, or the default AWS chain when none are set.
func awsCredentials(ctx context.Context, cfg Config) (aws.CredentialsProvider, error) {
	keyID := strings.TrimSpace(cfg.AWSAccessKeyID)
	secret := strings.TrimSpace(cfg.AWSSecretKey)
	if keyID != "" || secret != "" {
		if keyID == "" || secret == "" {
			return nil, fmt.Errorf("static AWS credentials need both access key id and secret access key")
		}
		return credentials.NewStaticCredentialsProvider(keyID, secret, cfg.AWSSessionToken), nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	if awsCfg.Credentials == nil {
		return nil, fmt.Errorf("no AWS credentials provider resolved")
	}
	return awsCfg.Credentials, nil
}

// sigV4Transport signs every request for Amazon OpenSearch Service before sending it.
type sigV4Transport struct {
	base    http.RoundTripper
	signer  *v4.Signer
	creds   aws.CredentialsProvider
	region  string
	service string
}

func newSigV4Transport(base http.RoundTripper, cfg Config) (*sigV4Transport, error) {
	if strings.TrimSpace(cfg.AWSRegion) == "" {
		return nil, fmt.Errorf("aws region is required when AWS auth is enabled")
	}
	service := strings.TrimSpace(cfg.AWSService)
	if service == "" {
		service = defaultAWSService
	}
	creds, err := awsCredentials(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	return &sigV4Transport{base: base, signer: v4.NewSigner(), creds: creds, region: cfg.AWSRegion, service: service}, nil
}

// RoundTrip signs a clone of req and hands it to the base transport.
func (t *sigV4Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	signed := req.Clone(ctx)

	var payload []byte
	if req.Body != nil {
		data, err := io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		payload = data
		signed.Body = io.NopCloser(bytes.NewReader(data))
	}

	creds, err := t.creds.Retrieve(ctx)
	if err != nil {
		return nil, fmt.Errorf("retrieve AWS credentials: %w", err)
	}
	sum := sha256.Sum256(payload)
	if err := t.signer.SignHTTP(ctx, creds, signed, hex.EncodeToString(sum[:]), t.service, t.region, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("sign request: %w", err)
	}
	return t.base.RoundTrip(signed)
}
