package config

import "time"

const (
	SearchTypeOpenSearch    = "opensearch"
	SearchTypeElasticsearch = "elasticsearch"
)

// Search drivers. The SDK drivers need the matching build tag.
const (
	SearchDriverHTTP             = "http"
	SearchDriverOpenSearchSDK    = "opensearch-sdk"
	SearchDriverElasticsearchSDK = "elasticsearch-sdk"
)

const ObjectStorageTypeS3 = "s3"

// Config is the root configuration of the wheretruck service.
type Config struct {
	Service       ServiceConfig
	HTTP          HTTPConfig
	Search        SearchConfig
	ObjectStorage ObjectStorageConfig `mapstructure:"object_storage"`
	Auth          AuthConfig
	Observability ObservabilityConfig
	Trucks        TrucksConfig
	Resilience    ResilienceConfig
}

// ServiceConfig configures service identity metadata.
type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// HTTPConfig configures the public API server
type HTTPConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxRequestSize  int64         `mapstructure:"max_request_size"`
}

// SearchConfig configures OpenSearch/Elasticsearch connections.
type SearchConfig struct {
	Type             string        `mapstructure:"type"`   // opensearch, elasticsearch
	Driver           string        `mapstructure:"driver"` // http, opensearch-sdk, elasticsearch-sdk
	URL              string        `mapstructure:"url"`
	URLs             []string      `mapstructure:"urls"`
	Username         string        `mapstructure:"username"`
	Password         string        `mapstructure:"password"`
	APIKey           string        `mapstructure:"api_key"`
	AWSAuthEnabled   bool          `mapstructure:"aws_auth_enabled"`
	AWSRegion        string        `mapstructure:"aws_region"`
	AWSService       string        `mapstructure:"aws_service"`
	AWSAccessKeyID   string        `mapstructure:"aws_access_key_id"`
	AWSSecretKey     string        `mapstructure:"aws_secret_access_key"`
	AWSSessionToken  string        `mapstructure:"aws_session_token"`
	MaxConns         int           `mapstructure:"max_conns"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
	Refresh          string        `mapstructure:"refresh"` // "", true, false, wait_for
}

// ObjectStorageConfig configures object storage backends.
type ObjectStorageConfig struct {
	Enabled bool                  `mapstructure:"enabled"`
	Type    string                `mapstructure:"type"` // s3
	S3      ObjectStorageS3Config `mapstructure:"s3"`
}

// ObjectStorageS3Config configures S3-compatible object storage.
type ObjectStorageS3Config struct {
	Bucket           string        `mapstructure:"bucket"`
	Region           string        `mapstructure:"region"`
	Endpoint         string        `mapstructure:"endpoint"`
	AccessKeyID      string        `mapstructure:"access_key_id"`
	SecretAccessKey  string        `mapstructure:"secret_access_key"`
	SessionToken     string        `mapstructure:"session_token"`
	UsePathStyle     bool          `mapstructure:"use_path_style"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
	PublicBaseURL    string        `mapstructure:"public_base_url"`
}

// AuthConfig configures login providers and the app access token.
type AuthConfig struct {
	TokenSecret string        `mapstructure:"token_secret"`
	TokenIssuer string        `mapstructure:"token_issuer"`
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
	Apple       AppleConfig   `mapstructure:"apple"`
	Kakao       KakaoConfig   `mapstructure:"kakao"`
}

// AppleConfig configures Sign in with Apple identity token verification.
type AppleConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Issuer       string        `mapstructure:"issuer"`
	JWKSUrl      string        `mapstructure:"jwks_url"`
	JWKSCacheTTL time.Duration `mapstructure:"jwks_cache_ttl"`
	Audience     string        `mapstructure:"audience"`
}

// KakaoConfig configures Kakao access token resolution.
type KakaoConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	UserInfoURL string        `mapstructure:"user_info_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// ObservabilityConfig configures logging and metrics.
type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	LogFormat      string `mapstructure:"log_format"` // json, text
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
}

// TrucksConfig names the indices and buckets of the truck domain.
type TrucksConfig struct {
	TruckIndex      string `mapstructure:"truck_index"`
	FavoriteIndex   string `mapstructure:"favorite_index"`
	UserIndex       string `mapstructure:"user_index"`
	RegionIndex     string `mapstructure:"region_index"`
	FoodImageBucket string `mapstructure:"food_image_bucket"`
	MaxImageBytes   int64  `mapstructure:"max_image_bytes"`
}

// ResilienceConfig configures fail-fast behavior towards the search store.
type ResilienceConfig struct {
	Breaker BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig configures the search store circuit breaker.
type BreakerConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxFailures int           `mapstructure:"max_failures"`
	Cooldown    time.Duration `mapstructure:"cooldown"`
}

// DefaultConfig returns a configuration with defaults for local development.
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:        "wheretruck",
			Environment: "production",
		},
		HTTP: HTTPConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxRequestSize:  8 << 20,
		},
		Search: SearchConfig{
			Type:             SearchTypeOpenSearch,
			Driver:           SearchDriverHTTP,
			URL:              "http://localhost:9200",
			AWSService:       "es",
			MaxConns:         10,
			OperationTimeout: 5 * time.Second,
		},
		ObjectStorage: ObjectStorageConfig{
			Type: ObjectStorageTypeS3,
			S3: ObjectStorageS3Config{
				OperationTimeout: 10 * time.Second,
			},
		},
		Auth: AuthConfig{
			TokenIssuer: "wheretruck",
			TokenTTL:    30 * 24 * time.Hour,
			Apple: AppleConfig{
				Issuer:       "https://appleid.apple.com",
				JWKSUrl:      "https://appleid.apple.com/auth/keys",
				JWKSCacheTTL: time.Hour,
			},
			Kakao: KakaoConfig{
				UserInfoURL: "https://kapi.kakao.com/v2/user/me",
				Timeout:     5 * time.Second,
			},
		},
		Observability: ObservabilityConfig{
			LogLevel:       "info",
			LogFormat:      "json",
			MetricsEnabled: true,
		},
		Trucks: TrucksConfig{
			TruckIndex:    "truck",
			FavoriteIndex: "favorite",
			UserIndex:     "user",
			RegionIndex:   "region",
			MaxImageBytes: 5 << 20,
		},
		Resilience: ResilienceConfig{
			Breaker: BreakerConfig{
				Enabled:     true,
				MaxFailures: 5,
				Cooldown:    10 * time.Second,
			},
		},
	}
}
