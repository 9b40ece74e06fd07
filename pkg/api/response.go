package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gamakdragons/wheretruck/pkg/observability/logger"
)

// SuccessResponse represents a successful response with data.
type SuccessResponse struct {
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id,omitempty"`
}

// Success sends data with HTTP 200.
func Success(c *gin.Context, data interface{}) {
	Respond(c, http.StatusOK, data)
}

// Created sends data with HTTP 201.
func Created(c *gin.Context, data interface{}) {
	Respond(c, http.StatusCreated, data)
}

// Respond wraps data in a SuccessResponse and writes it with status.
func Respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, SuccessResponse{
		Data:      data,
		RequestID: logger.RequestIDFromContext(c.Request.Context()),
	})
}

// Error records err on the context and writes the mapped error response.
func Error(c *gin.Context, err error) {
	status, resp := MapError(c.Request.Context(), err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, resp)
}

// bindJSON decodes the request body into dst and writes the error response on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		Error(c, newPayloadTooLargeError(maxBytesErr.Limit))
		return false
	}
	Error(c, NewValidationError(CodeValidationFailed, "invalid request body"))
	return false
}
