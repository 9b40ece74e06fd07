package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gamakdragons/wheretruck/pkg/user"
)

// UserService logs users in and manages their profile.
type UserService interface {
	Login(ctx context.Context, provider string, req user.LoginRequest) (user.LoginResult, error)
	Get(ctx context.Context, id string) (user.User, error)
	UpdateNickName(ctx context.Context, id, nickName string) (user.User, error)
	Delete(ctx context.Context, id string) error
}

// LoginRequest is the body of a login request. NickName and Role apply to first logins only.
type LoginRequest struct {
	Token    string `json:"token"`
	NickName string `json:"nickName"`
	Role     string `json:"role"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	User        user.User `json:"user"`
	AccessToken string    `json:"accessToken"`
}

// NickNameRequest is the body of a nick name change.
type NickNameRequest struct {
	NickName string `json:"nickName"`
}

// UserHandler serves /api/auth and /api/user.
type UserHandler struct {
	users UserService
}

// NewUserHandler creates a user handler.
func NewUserHandler(users UserService) *UserHandler {
	return &UserHandler{users: users}
}

// RegisterAuth mounts the login route on g.
func (h *UserHandler) RegisterAuth(g gin.IRoutes) {
	g.POST("/login/:provider", h.login)
}

// RegisterUser mounts the authenticated profile routes on g.
func (h *UserHandler) RegisterUser(g gin.IRoutes) {
	g.GET("/me", h.me)
	g.PUT("/me/nickname", h.updateNickName)
	g.DELETE("/me", h.delete)
}

func (h *UserHandler) login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Token == "" {
		Error(c, NewValidationError(CodeValidationFailed, "token is required"))
		return
	}

	res, err := h.users.Login(c.Request.Context(), c.Param("provider"), user.LoginRequest{
		Token:    req.Token,
		NickName: req.NickName,
		Role:     user.Role(req.Role),
	})
	if err != nil {
		Error(c, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	Respond(c, status, LoginResponse{User: res.User, AccessToken: res.AccessToken})
}

func (h *UserHandler) me(c *gin.Context) {
	u, err := h.users.Get(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, u)
}

func (h *UserHandler) updateNickName(c *gin.Context) {
	var req NickNameRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.users.UpdateNickName(c.Request.Context(), CurrentUserID(c), req.NickName)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, u)
}

func (h *UserHandler) delete(c *gin.Context) {
	id := CurrentUserID(c)
	if err := h.users.Delete(c.Request.Context(), id); err != nil {
		Error(c, err)
		return
	}
	Success(c, gin.H{"id": id})
}
