package api

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gamakdragons/wheretruck/pkg/region"
	"github.com/gamakdragons/wheretruck/pkg/repository/document"
)

// RegionService queries permitted truck regions.
type RegionService interface {
	FindAll(ctx context.Context) ([]region.Region, error)
	FindByAddress(ctx context.Context, address string) ([]region.Region, error)
	FindByLocation(ctx context.Context, center document.GeoPoint, distanceKm float64) ([]region.Region, error)
}

// RegionHandler serves /api/region.
type RegionHandler struct {
	regions RegionService
}

// NewRegionHandler creates a region handler.
func NewRegionHandler(regions RegionService) *RegionHandler {
	return &RegionHandler{regions: regions}
}

// Register mounts the region routes on g.
func (h *RegionHandler) Register(g gin.IRoutes) {
	g.GET("", h.all)
	g.GET("/address", h.byAddress)
	g.GET("/geo", h.byLocation)
}

func (h *RegionHandler) all(c *gin.Context) {
	regions, err := h.regions.FindAll(c.Request.Context())
	h.respond(c, regions, err)
}

func (h *RegionHandler) byAddress(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		Error(c, NewValidationError(CodeValidationFailed, "q is required"))
		return
	}
	regions, err := h.regions.FindByAddress(c.Request.Context(), q)
	h.respond(c, regions, err)
}

func (h *RegionHandler) byLocation(c *gin.Context) {
	center, distance, err := geoQuery(c)
	if err != nil {
		Error(c, err)
		return
	}
	regions, err := h.regions.FindByLocation(c.Request.Context(), center, distance)
	h.respond(c, regions, err)
}

func (h *RegionHandler) respond(c *gin.Context, regions []region.Region, err error) {
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, regions)
}
