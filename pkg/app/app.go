// Package app assembles the wheretruck service from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gamakdragons/wheretruck/pkg/api"
	"github.com/gamakdragons/wheretruck/pkg/auth"
	"github.com/gamakdragons/wheretruck/pkg/collection"
	"github.com/gamakdragons/wheretruck/pkg/config"
	"github.com/gamakdragons/wheretruck/pkg/favorite"
	"github.com/gamakdragons/wheretruck/pkg/health"
	"github.com/gamakdragons/wheretruck/pkg/imagestore"
	"github.com/gamakdragons/wheretruck/pkg/observability/logger"
	"github.com/gamakdragons/wheretruck/pkg/observability/metrics"
	"github.com/gamakdragons/wheretruck/pkg/region"
	"github.com/gamakdragons/wheretruck/pkg/repository/document"
	"github.com/gamakdragons/wheretruck/pkg/resilience"
	"github.com/gamakdragons/wheretruck/pkg/store"
	"github.com/gamakdragons/wheretruck/pkg/truck"
	"github.com/gamakdragons/wheretruck/pkg/user"
	"github.com/gamakdragons/wheretruck/pkg/version"
)

// Health check names.
const (
	CheckSearch        = "search"
	CheckSearchBreaker = "search_breaker"
	CheckObjectStorage = "object_storage"
)

// App is a fully wired service.
type App struct {
	Handler http.Handler
	Health  *health.Registry
	Metrics *metrics.Registry
	Version version.Info

	logger  logger.Logger
	closers []func() error
}

// New connects to the configured stores and builds every service and the HTTP handler.
func New(cfg *config.Config, log logger.Logger) (*App, error) {
	a := &App{
		Health:  health.NewRegistry(),
		Metrics: metrics.NewRegistry(),
		Version: version.Current(cfg.Service.Name),
		logger:  log,
	}

	search, err := store.NewSearchAdapter(cfg.Search, log)
	if err != nil {
		return nil, fmt.Errorf("create search adapter: %w", err)
	}
	a.closers = append(a.closers, search.Close)
	a.Health.Register(health.NewAdapterChecker(CheckSearch, search, cfg.Search.OperationTimeout))

	var breaker *resilience.CircuitBreaker
	if b := cfg.Resilience.Breaker; b.Enabled {
		breaker = document.NewBreaker(b.MaxFailures, b.Cooldown)
		a.Health.Register(health.NewBreakerChecker(CheckSearchBreaker, breaker))
		a.Metrics.MustRegister(breakerGauge(breaker))
	}
	docs := document.NewSearchStore(search, breaker)

	objects, err := store.NewObjectStorageAdapter(cfg.ObjectStorage, log)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("create object storage adapter: %w", err)
	}

	var foodOpts []collection.Option
	if objects != nil {
		a.closers = append(a.closers, objects.Close)
		a.Health.Register(health.NewAdapterChecker(CheckObjectStorage, objects, cfg.ObjectStorage.S3.OperationTimeout))
		foodOpts = append(foodOpts, collection.WithResourceStore(imagestore.New(objects, log)))
	}

	handler, err := a.buildHandler(cfg, log, docs, foodOpts)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Handler = handler
	return a, nil
}

func (a *App) buildHandler(cfg *config.Config, log logger.Logger, docs document.Store, foodOpts []collection.Option) (http.Handler, error) {
	foods, err := collection.NewService(collection.Config{
		ParentIndexName:    cfg.Trucks.TruckIndex,
		ResourceBucketName: cfg.Trucks.FoodImageBucket,
	}, collection.NewDispatcher(docs, log, a.Metrics), log, foodOpts...)
	if err != nil {
		return nil, fmt.Errorf("create food service: %w", err)
	}

	trucks, err := truck.NewService(docs, cfg.Trucks.TruckIndex, log)
	if err != nil {
		return nil, fmt.Errorf("create truck service: %w", err)
	}
	regions, err := region.NewService(docs, cfg.Trucks.RegionIndex, log)
	if err != nil {
		return nil, fmt.Errorf("create region service: %w", err)
	}
	favorites, err := favorite.NewService(docs, cfg.Trucks.FavoriteIndex, trucks, log, nil)
	if err != nil {
		return nil, fmt.Errorf("create favorite service: %w", err)
	}

	tokens, err := auth.NewTokenIssuer(cfg.Auth.TokenSecret, cfg.Auth.TokenIssuer, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("create token issuer: %w", err)
	}
	users, err := user.NewService(docs, cfg.Trucks.UserIndex, loginProviders(cfg.Auth, log), tokens, log)
	if err != nil {
		return nil, fmt.Errorf("create user service: %w", err)
	}

	var metricsHandler http.Handler
	if cfg.Observability.MetricsEnabled {
		metricsHandler = a.Metrics.Handler()
	}

	return api.NewRouter(api.Deps{
		Logger:         log,
		Tokens:         tokens,
		Metrics:        a.Metrics,
		MetricsHandler: metricsHandler,
		Health:         a.Health,
		Version:        a.Version,
		Trucks:         trucks,
		Foods:          foods,
		Remover:        collection.NewOrchestrator(foods),
		Regions:        regions,
		Favorites:      favorites,
		Users:          users,
		MaxImageBytes:  int(cfg.Trucks.MaxImageBytes),
		MaxRequestSize: cfg.HTTP.MaxRequestSize,
	}), nil
}

// Close releases the store connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Run serves the app until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	a, err := New(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error("failed to close stores", "error", err)
		}
	}()

	log.Info("application version metadata", a.Version.Fields()...)
	return api.NewServer(cfg.HTTP, a.Handler, log).Start(ctx)
}

// CheckDependencies runs every dependency health check once and fails when any is unhealthy.
func CheckDependencies(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	a, err := New(cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	result := a.Health.Check(ctx)
	for _, check := range result.Checks {
		log.Info("dependency checked", "name", check.Name, "status", check.Status, "error", check.Error)
	}
	if result.Status == health.StatusUnhealthy {
		return fmt.Errorf("dependencies unhealthy")
	}
	return nil
}

func loginProviders(cfg config.AuthConfig, log logger.Logger) auth.Providers {
	var providers []auth.IdentityProvider
	if cfg.Apple.Enabled {
		providers = append(providers, auth.NewAppleProvider(cfg.Apple.JWKSUrl, cfg.Apple.JWKSCacheTTL, cfg.Apple.Issuer, cfg.Apple.Audience, log))
	}
	if cfg.Kakao.Enabled {
		providers = append(providers, auth.NewKakaoProvider(cfg.Kakao.UserInfoURL, cfg.Kakao.Timeout, log))
	}
	return auth.NewProviders(providers...)
}

// breakerGauge exposes the breaker state as 0 (closed), 1 (half-open) or 2 (open).
func breakerGauge(cb *resilience.CircuitBreaker) prometheus.Collector {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metrics.Namespace,
		Name:      "search_circuit_breaker_state",
		Help:      "Search store circuit breaker state: 0 closed, 1 half-open, 2 open",
	}, func() float64 {
		switch cb.State() {
		case resilience.StateOpen:
			return 2
		case resilience.StateHalfOpen:
			return 1
		default:
			return 0
		}
	})
}
