package api

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gamakdragons/wheretruck/pkg/repository/document"
	"github.com/gamakdragons/wheretruck/pkg/truck"
)

// TruckService reads and writes trucks.
type TruckService interface {
	Get(ctx context.Context, id string) (truck.Truck, error)
	Save(ctx context.Context, t truck.Truck) (string, error)
	Delete(ctx context.Context, id string) error
	FindByLocation(ctx context.Context, center truck.GeoPoint, distanceKm float64) ([]truck.Truck, error)
	FindByUserID(ctx context.Context, userID string) ([]truck.Truck, error)
}

// TruckRequest is the body of a truck create request.
type TruckRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Opened      bool              `json:"opened"`
	GeoLocation document.GeoPoint `json:"geoLocation"`
}

// TruckHandler serves /api/truck.
type TruckHandler struct {
	trucks TruckService
}

// NewTruckHandler creates a truck handler.
func NewTruckHandler(trucks TruckService) *TruckHandler {
	return &TruckHandler{trucks: trucks}
}

// Register mounts the public truck routes on public and the authenticated ones on private.
func (h *TruckHandler) Register(public, private gin.IRoutes) {
	public.GET("/geo", h.findByLocation)
	public.GET("/:id", h.get)
	private.GET("/my", h.mine)
	private.POST("", h.create)
	private.DELETE("/:id", h.delete)
}

func (h *TruckHandler) get(c *gin.Context) {
	t, err := h.trucks.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, t)
}

func (h *TruckHandler) findByLocation(c *gin.Context) {
	center, distance, err := geoQuery(c)
	if err != nil {
		Error(c, err)
		return
	}
	trucks, err := h.trucks.FindByLocation(c.Request.Context(), center, distance)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, trucks)
}

func (h *TruckHandler) mine(c *gin.Context) {
	trucks, err := h.trucks.FindByUserID(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, trucks)
}

func (h *TruckHandler) create(c *gin.Context) {
	var req TruckRequest
	if !bindJSON(c, &req) {
		return
	}
	id, err := h.trucks.Save(c.Request.Context(), truck.Truck{
		Name:        req.Name,
		Description: req.Description,
		UserID:      CurrentUserID(c),
		Opened:      req.Opened,
		GeoLocation: req.GeoLocation,
	})
	if err != nil {
		Error(c, err)
		return
	}
	Created(c, gin.H{"id": id})
}

// delete removes a truck owned by the caller.
func (h *TruckHandler) delete(c *gin.Context) {
	ctx := c.Request.Context()
	t, err := h.trucks.Get(ctx, c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}
	if t.UserID != CurrentUserID(c) {
		Error(c, NewForbiddenError("truck belongs to another user"))
		return
	}
	if err := h.trucks.Delete(ctx, t.ID); err != nil {
		Error(c, err)
		return
	}
	Success(c, gin.H{"id": t.ID})
}

// geoQuery reads the lat, lon and distance (km) query parameters.
func geoQuery(c *gin.Context) (document.GeoPoint, float64, error) {
	lat, err := floatQuery(c, "lat")
	if err != nil {
		return document.GeoPoint{}, 0, err
	}
	lon, err := floatQuery(c, "lon")
	if err != nil {
		return document.GeoPoint{}, 0, err
	}
	distance, err := floatQuery(c, "distance")
	if err != nil {
		return document.GeoPoint{}, 0, err
	}
	return document.GeoPoint{Lat: lat, Lon: lon}, distance, nil
}

func floatQuery(c *gin.Context, name string) (float64, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return 0, NewValidationError(CodeValidationFailed, name+" is required")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, NewValidationError(CodeValidationFailed, name+" must be a number")
	}
	return v, nil
}
