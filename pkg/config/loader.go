package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultEnvPrefix prefixes every environment variable read by the loader.
const DefaultEnvPrefix = "WHERETRUCK"

// Loader defines the interface for loading configuration
type Loader interface {
	Load() (*Config, error)
	Validate(*Config) error
}

// ViperLoader implements Loader using Viper. Precedence is flags > ENV > file > defaults.
type ViperLoader struct {
	configFile string
	envPrefix  string
	flags      map[string]*pflag.Flag
}

// NewViperLoader creates a new ViperLoader
// configFile: path to configuration file (optional, can be empty)
// envPrefix: prefix for environment variables (defaults to WHERETRUCK)
func NewViperLoader(configFile, envPrefix string) *ViperLoader {
	return &ViperLoader{
		configFile: configFile,
		envPrefix:  envPrefix,
		flags:      map[string]*pflag.Flag{},
	}
}

// WithFlag binds a command-line flag to a configuration key. Unset flags are ignored.
func (l *ViperLoader) WithFlag(key string, flag *pflag.Flag) *ViperLoader {
	if flag != nil {
		l.flags[key] = flag
	}
	return l
}

// envAliases are extra, shorter variable names accepted for some keys.
// Unprefixed names are marked with a leading "!".
var envAliases = map[string][]string{
	"service.environment":             {"ENVIRONMENT"},
	"object_storage.s3.region":        {"!AWS_REGION"},
	"observability.log_level":         {"LOG_LEVEL"},
	"observability.log_format":        {"LOG_FORMAT"},
	"observability.metrics_enabled":   {"METRICS_ENABLED"},
	"resilience.breaker.enabled":      {"BREAKER_ENABLED"},
	"resilience.breaker.max_failures": {"BREAKER_MAX_FAILURES"},
	"resilience.breaker.cooldown":     {"BREAKER_COOLDOWN"},
}

// Load reads defaults, the config file, the environment and changed flags,
// in increasing precedence, then validates the result.
func (l *ViperLoader) Load() (*Config, error) {
	v := viper.New()

	for _, leaf := range leaves(reflect.ValueOf(*DefaultConfig()), "") {
		v.SetDefault(leaf.key, leaf.value)
		if err := v.BindEnv(append([]string{leaf.key}, l.envNames(leaf.key)...)...); err != nil {
			return nil, fmt.Errorf("bind env for %s: %w", leaf.key, err)
		}
	}

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", l.configFile, err)
		}
	}

	for key, flag := range l.flags {
		if !flag.Changed {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", flag.Name, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := l.Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// envNames derives PREFIX_SEARCH_URL style names for key, followed by its aliases.
func (l *ViperLoader) envNames(key string) []string {
	prefix := strings.ToUpper(strings.TrimSpace(l.envPrefix))
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	names := []string{prefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}
	for _, alias := range envAliases[key] {
		if bare, ok := strings.CutPrefix(alias, "!"); ok {
			names = append(names, bare)
			continue
		}
		names = append(names, prefix+"_"+alias)
	}
	return names
}

type leaf struct {
	key   string
	value interface{}
}

// leaves flattens a config struct into dotted keys named after the
// mapstructure tags, falling back to the lower-cased field name.
func leaves(v reflect.Value, prefix string) []leaf {
	var out []leaf
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name, _, _ := strings.Cut(field.Tag.Get("mapstructure"), ",")
		if name == "" {
			name = strings.ToLower(field.Name)
		}
		key := prefix + name

		fv := v.Field(i)
		if fv.Kind() == reflect.Struct {
			out = append(out, leaves(fv, key+".")...)
			continue
		}
		out = append(out, leaf{key: key, value: fv.Interface()})
	}
	return out
}

// Validate validates the configuration and returns every problem found
func (l *ViperLoader) Validate(cfg *Config) error {
	var errs []error

	cfg.Search.URLs = normalizeStringSlice(cfg.Search.URLs)

	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid http.port: %d (must be between 1 and 65535)", cfg.HTTP.Port))
	}
	if cfg.HTTP.MaxRequestSize < 0 {
		errs = append(errs, errors.New("http.max_request_size cannot be negative"))
	}

	validSearchTypes := []string{SearchTypeOpenSearch, SearchTypeElasticsearch}
	if !contains(validSearchTypes, strings.ToLower(cfg.Search.Type)) {
		errs = append(errs, fmt.Errorf("invalid search.type: %s (must be one of: %v)", cfg.Search.Type, validSearchTypes))
	}
	validDrivers := []string{SearchDriverHTTP, SearchDriverOpenSearchSDK, SearchDriverElasticsearchSDK}
	if !contains(validDrivers, strings.ToLower(cfg.Search.Driver)) {
		errs = append(errs, fmt.Errorf("invalid search.driver: %s (must be one of: %v)", cfg.Search.Driver, validDrivers))
	}
	if strings.TrimSpace(cfg.Search.URL) == "" && len(cfg.Search.URLs) == 0 {
		errs = append(errs, errors.New("search.url or search.urls is required"))
	}
	if cfg.Search.AWSAuthEnabled && strings.TrimSpace(cfg.Search.AWSRegion) == "" {
		errs = append(errs, errors.New("search.aws_region is required when search.aws_auth_enabled is true"))
	}
	validRefresh := []string{"", "true", "false", "wait_for"}
	if !contains(validRefresh, cfg.Search.Refresh) {
		errs = append(errs, fmt.Errorf("invalid search.refresh: %s (must be one of: %v)", cfg.Search.Refresh, validRefresh))
	}

	if cfg.ObjectStorage.Enabled {
		if cfg.ObjectStorage.Type != "" && cfg.ObjectStorage.Type != ObjectStorageTypeS3 {
			errs = append(errs, fmt.Errorf("invalid object_storage.type: %s (must be s3)", cfg.ObjectStorage.Type))
		}
		if strings.TrimSpace(cfg.ObjectStorage.S3.Bucket) == "" {
			errs = append(errs, errors.New("object_storage.s3.bucket is required when object storage is enabled"))
		}
		if strings.TrimSpace(cfg.ObjectStorage.S3.Region) == "" {
			errs = append(errs, errors.New("object_storage.s3.region is required when object storage is enabled"))
		}
	}

	if strings.TrimSpace(cfg.Auth.TokenSecret) == "" {
		errs = append(errs, errors.New("auth.token_secret is required"))
	}
	if cfg.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if cfg.Auth.Apple.Enabled {
		if cfg.Auth.Apple.JWKSUrl == "" {
			errs = append(errs, errors.New("auth.apple.jwks_url is required when apple login is enabled"))
		}
		if cfg.Auth.Apple.Audience == "" {
			errs = append(errs, errors.New("auth.apple.audience is required when apple login is enabled"))
		}
	}
	if cfg.Auth.Kakao.Enabled && cfg.Auth.Kakao.UserInfoURL == "" {
		errs = append(errs, errors.New("auth.kakao.user_info_url is required when kakao login is enabled"))
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, cfg.Observability.LogLevel) {
		errs = append(errs, fmt.Errorf("invalid observability.log_level: %s (must be one of: %v)", cfg.Observability.LogLevel, validLogLevels))
	}
	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, cfg.Observability.LogFormat) {
		errs = append(errs, fmt.Errorf("invalid observability.log_format: %s (must be one of: %v)", cfg.Observability.LogFormat, validLogFormats))
	}

	for key, value := range map[string]string{
		"trucks.truck_index":    cfg.Trucks.TruckIndex,
		"trucks.favorite_index": cfg.Trucks.FavoriteIndex,
		"trucks.user_index":     cfg.Trucks.UserIndex,
		"trucks.region_index":   cfg.Trucks.RegionIndex,
	} {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", key))
		}
	}
	if cfg.Trucks.MaxImageBytes <= 0 {
		errs = append(errs, errors.New("trucks.max_image_bytes must be positive"))
	}

	if cfg.Resilience.Breaker.Enabled {
		if cfg.Resilience.Breaker.MaxFailures <= 0 {
			errs = append(errs, errors.New("resilience.breaker.max_failures must be greater than 0 when the breaker is enabled"))
		}
		if cfg.Resilience.Breaker.Cooldown <= 0 {
			errs = append(errs, errors.New("resilience.breaker.cooldown must be positive when the breaker is enabled"))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// contains checks if a string slice contains a specific string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// normalizeStringSlice removes empty strings and trims whitespace
func normalizeStringSlice(values []string) []string {
	result := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
