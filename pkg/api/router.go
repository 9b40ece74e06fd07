// Package api exposes the wheretruck services over HTTP with gin.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gamakdragons/wheretruck/pkg/observability/logger"
	"github.com/gamakdragons/wheretruck/pkg/version"
)

// Deps are the services and infrastructure the router is built from.
type Deps struct {
	Logger  logger.Logger
	Tokens  TokenVerifier
	Metrics HTTPRecorder
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
	Health         HealthChecker
	Version        version.Info

	Trucks    TruckService
	Foods     FoodService
	Remover   FoodRemover
	Regions   RegionService
	Favorites FavoriteService
	Users     UserService

	MaxImageBytes  int
	MaxRequestSize int64
}

// NewRouter builds the gin engine serving every route.
func NewRouter(d Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.NoRoute(func(c *gin.Context) {
		Error(c, NewNotFoundError("route.not_found", "route not found"))
	})
	engine.NoMethod(func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusMethodNotAllowed, ErrorResponse{
			Error:     "method_not_allowed",
			Message:   "method not allowed",
			RequestID: logger.RequestIDFromContext(c.Request.Context()),
		})
	})

	engine.Use(RequestID(), Logging(d.Logger), Recovery(d.Logger))
	if d.Metrics != nil {
		engine.Use(Metrics(d.Metrics))
	}
	engine.Use(BodyLimit(d.MaxRequestSize))

	NewOpsHandler(d.Health, d.MetricsHandler, d.Version).Register(engine)

	requireUser := RequireUser(d.Tokens)
	root := engine.Group("/api")

	users := NewUserHandler(d.Users)
	users.RegisterAuth(root.Group("/auth"))
	users.RegisterUser(root.Group("/user", requireUser))

	NewTruckHandler(d.Trucks).Register(root.Group("/truck"), root.Group("/truck", requireUser))
	NewFoodHandler(d.Foods, d.Remover, d.MaxImageBytes).Register(root.Group("/food", requireUser))
	NewRegionHandler(d.Regions).Register(root.Group("/region"))
	NewFavoriteHandler(d.Favorites).Register(root.Group("/favorite"), root.Group("/favorite", requireUser))

	return engine
}
