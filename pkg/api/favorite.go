package api

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/gamakdragons/wheretruck/pkg/favorite"
	"github.com/gamakdragons/wheretruck/pkg/truck"
)

// FavoriteService stores favorites.
type FavoriteService interface {
	Save(ctx context.Context, f favorite.Favorite) (string, error)
	Get(ctx context.Context, id string) (favorite.Favorite, error)
	Delete(ctx context.Context, id string) error
	CountByTruckID(ctx context.Context, truckID string) (int64, error)
	FindByUserID(ctx context.Context, userID string) ([]truck.Truck, error)
}

// FavoriteRequest is the body of a favorite create request.
type FavoriteRequest struct {
	TruckID string `json:"truckId"`
}

// FavoriteHandler serves /api/favorite.
type FavoriteHandler struct {
	favorites FavoriteService
}

// NewFavoriteHandler creates a favorite handler.
func NewFavoriteHandler(favorites FavoriteService) *FavoriteHandler {
	return &FavoriteHandler{favorites: favorites}
}

// Register mounts the public favorite routes on public and the authenticated ones on private.
func (h *FavoriteHandler) Register(public, private gin.IRoutes) {
	public.GET("/count/:truckId", h.count)
	private.POST("", h.save)
	private.GET("/my", h.mine)
	private.DELETE("/:id", h.delete)
}

func (h *FavoriteHandler) save(c *gin.Context) {
	var req FavoriteRequest
	if !bindJSON(c, &req) {
		return
	}
	id, err := h.favorites.Save(c.Request.Context(), favorite.Favorite{TruckID: req.TruckID, UserID: CurrentUserID(c)})
	if err != nil {
		Error(c, err)
		return
	}
	Created(c, gin.H{"id": id})
}

// delete removes a favorite owned by the caller.
func (h *FavoriteHandler) delete(c *gin.Context) {
	ctx := c.Request.Context()
	f, err := h.favorites.Get(ctx, c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}
	if f.UserID != CurrentUserID(c) {
		Error(c, NewForbiddenError("favorite belongs to another user"))
		return
	}
	if err := h.favorites.Delete(ctx, f.ID); err != nil {
		Error(c, err)
		return
	}
	Success(c, gin.H{"id": f.ID})
}

func (h *FavoriteHandler) mine(c *gin.Context) {
	trucks, err := h.favorites.FindByUserID(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, trucks)
}

func (h *FavoriteHandler) count(c *gin.Context) {
	n, err := h.favorites.CountByTruckID(c.Request.Context(), c.Param("truckId"))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, gin.H{"truckId": c.Param("truckId"), "count": n})
}
