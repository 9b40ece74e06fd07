package api

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gamakdragons/wheretruck/pkg/collection"
)

// DefaultMaxImageBytes bounds decoded food images when no limit is configured.
const DefaultMaxImageBytes = 5 << 20

// FoodService performs the collection operations on a truck's menu.
type FoodService interface {
	AddItem(ctx context.Context, parentKey string, fields collection.ItemFields) (collection.Outcome, error)
	UpdateItem(ctx context.Context, parentKey, id string, fields collection.ItemFields) (collection.Outcome, error)
	ReorderItems(ctx context.Context, parentKey string, ids []string) (collection.Outcome, error)
}

// FoodRemover removes a food and releases its image.
type FoodRemover interface {
	RemoveItem(ctx context.Context, parentKey, id string) (collection.RemovalResult, error)
}

// ImagePayload is a base64 encoded image sent inline with a food.
type ImagePayload struct {
	Data        string `json:"data"`
	ContentType string `json:"contentType"`
}

// FoodRequest is the body of food create and update requests.
type FoodRequest struct {
	Name        string        `json:"name"`
	Cost        int           `json:"cost"`
	Description string        `json:"description"`
	ImageURL    string        `json:"imageUrl"`
	Image       *ImagePayload `json:"image"`
}

// SortRequest is the body of a food reorder request.
type SortRequest struct {
	IDs []string `json:"ids"`
}

// FoodResult is the response body of food operations.
type FoodResult struct {
	Status        string `json:"status"`
	TruckID       string `json:"truckId"`
	FoodID        string `json:"foodId,omitempty"`
	Version       int64  `json:"version,omitempty"`
	ImageReleased *bool  `json:"imageReleased,omitempty"`
}

// FoodHandler serves /api/food.
type FoodHandler struct {
	foods         FoodService
	remover       FoodRemover
	maxImageBytes int
}

// NewFoodHandler creates a food handler. A non-positive maxImageBytes uses DefaultMaxImageBytes.
func NewFoodHandler(foods FoodService, remover FoodRemover, maxImageBytes int) *FoodHandler {
	if maxImageBytes <= 0 {
		maxImageBytes = DefaultMaxImageBytes
	}
	return &FoodHandler{foods: foods, remover: remover, maxImageBytes: maxImageBytes}
}

// Register mounts the food routes on g.
func (h *FoodHandler) Register(g gin.IRoutes) {
	g.POST("/:truckId", h.add)
	g.PUT("/:truckId/sort", h.sort)
	g.PUT("/:truckId/:id", h.update)
	g.DELETE("/:truckId/:id", h.remove)
}

func (h *FoodHandler) add(c *gin.Context) {
	fields, ok := h.bindFields(c)
	if !ok {
		return
	}
	out, err := h.foods.AddItem(c.Request.Context(), c.Param("truckId"), fields)
	h.respond(c, out, err, nil)
}

func (h *FoodHandler) update(c *gin.Context) {
	fields, ok := h.bindFields(c)
	if !ok {
		return
	}
	out, err := h.foods.UpdateItem(c.Request.Context(), c.Param("truckId"), c.Param("id"), fields)
	h.respond(c, out, err, nil)
}

func (h *FoodHandler) remove(c *gin.Context) {
	res, err := h.remover.RemoveItem(c.Request.Context(), c.Param("truckId"), c.Param("id"))
	var released *bool
	if err == nil && res.Outcome.Succeeded() {
		r := res.Release.Released()
		released = &r
	}
	h.respond(c, res.Outcome, err, released)
}

func (h *FoodHandler) sort(c *gin.Context) {
	var req SortRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.IDs == nil {
		Error(c, NewValidationError(CodeValidationFailed, "ids is required"))
		return
	}
	out, err := h.foods.ReorderItems(c.Request.Context(), c.Param("truckId"), req.IDs)
	h.respond(c, out, err, nil)
}

func (h *FoodHandler) respond(c *gin.Context, out collection.Outcome, err error, released *bool) {
	if err != nil {
		Error(c, err)
		return
	}
	if appErr := outcomeError(out); appErr != nil {
		Error(c, appErr)
		return
	}
	Respond(c, outcomeHTTPStatus(out), FoodResult{
		Status:        out.Status.String(),
		TruckID:       out.ParentKey,
		FoodID:        out.ItemID,
		Version:       out.Version,
		ImageReleased: released,
	})
}

func (h *FoodHandler) bindFields(c *gin.Context) (collection.ItemFields, bool) {
	var req FoodRequest
	if !bindJSON(c, &req) {
		return collection.ItemFields{}, false
	}
	fields := collection.ItemFields{
		Name:        req.Name,
		Cost:        req.Cost,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	}
	if req.Image != nil {
		res, err := h.decodeImage(*req.Image)
		if err != nil {
			Error(c, err)
			return collection.ItemFields{}, false
		}
		fields.Image = res
	}
	return fields, true
}

func (h *FoodHandler) decodeImage(img ImagePayload) (*collection.Resource, error) {
	if base64.StdEncoding.DecodedLen(len(img.Data)) > h.maxImageBytes+2 {
		return nil, NewValidationError(CodeInvalidImage, fmt.Sprintf("image exceeds %d bytes", h.maxImageBytes))
	}
	data, err := base64.StdEncoding.DecodeString(img.Data)
	if err != nil {
		return nil, NewValidationError(CodeInvalidImage, "image is not valid base64")
	}
	if len(data) == 0 {
		return nil, NewValidationError(CodeInvalidImage, "image is empty")
	}
	if len(data) > h.maxImageBytes {
		return nil, NewValidationError(CodeInvalidImage, fmt.Sprintf("image exceeds %d bytes", h.maxImageBytes))
	}

	contentType := strings.TrimSpace(img.ContentType)
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, NewValidationError(CodeInvalidImage, "content type "+contentType+" is not an image")
	}
	return &collection.Resource{Data: data, ContentType: contentType}, nil
}
