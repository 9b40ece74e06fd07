package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gamakdragons/wheretruck/pkg/auth"
	"github.com/gamakdragons/wheretruck/pkg/collection"
	"github.com/gamakdragons/wheretruck/pkg/favorite"
	"github.com/gamakdragons/wheretruck/pkg/observability/logger"
	"github.com/gamakdragons/wheretruck/pkg/region"
	"github.com/gamakdragons/wheretruck/pkg/repository/document"
	"github.com/gamakdragons/wheretruck/pkg/resilience"
	"github.com/gamakdragons/wheretruck/pkg/truck"
	"github.com/gamakdragons/wheretruck/pkg/user"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeValidationFailed    = "validation.failed"
	CodeInvalidImage        = "validation.invalid_image"
	CodeRequestTooLarge     = "request.too_large"
	CodeUnsupportedProvider = "validation.unsupported_provider"
	CodeTruckNotFound       = "truck.not_found"
	CodeFoodNotFound        = "food.not_found"
	CodeFavoriteNotFound    = "favorite.not_found"
	CodeUserNotFound        = "user.not_found"
	CodeUnauthorized        = "auth.unauthorized"
	CodeForbidden           = "auth.forbidden"
	CodeStoreUnavailable    = "store.unavailable"
	CodeInternal            = "internal.error"
)

// AppError is an error that already knows its HTTP rendering.
type AppError struct {
	Status  int
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return e.Code + ": " + e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// NewValidationError creates a 400 error.
func NewValidationError(code, message string) *AppError {
	return &AppError{Status: http.StatusBadRequest, Code: code, Message: message}
}

// NewNotFoundError creates a 404 error.
func NewNotFoundError(code, message string) *AppError {
	return &AppError{Status: http.StatusNotFound, Code: code, Message: message}
}

// NewUnauthorizedError creates a 401 error.
func NewUnauthorizedError(message string) *AppError {
	return &AppError{Status: http.StatusUnauthorized, Code: CodeUnauthorized, Message: message}
}

// NewForbiddenError creates a 403 error.
func NewForbiddenError(message string) *AppError {
	return &AppError{Status: http.StatusForbidden, Code: CodeForbidden, Message: message}
}

// ErrorResponse represents the consistent error response format.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// MapError maps service errors to HTTP responses.
func MapError(ctx context.Context, err error) (int, ErrorResponse) {
	status, code, message := classify(err)
	return status, ErrorResponse{
		Error:     errorCategory(status, code),
		Code:      code,
		Message:   message,
		RequestID: logger.RequestIDFromContext(ctx),
	}
}

func classify(err error) (int, string, string) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status, appErr.Code, appErr.Message
	}

	switch {
	case errors.Is(err, collection.ErrInvalidArgument),
		errors.Is(err, truck.ErrInvalidTruck),
		errors.Is(err, favorite.ErrInvalidFavorite),
		errors.Is(err, user.ErrInvalidUser),
		errors.Is(err, region.ErrInvalidQuery),
		errors.Is(err, document.ErrInvalidQuery):
		return http.StatusBadRequest, CodeValidationFailed, err.Error()
	case errors.Is(err, auth.ErrUnsupportedProvider):
		return http.StatusBadRequest, CodeUnsupportedProvider, err.Error()
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, CodeUnauthorized, "invalid or expired token"
	case errors.Is(err, truck.ErrTruckNotFound):
		return http.StatusNotFound, CodeTruckNotFound, "truck not found"
	case errors.Is(err, favorite.ErrFavoriteNotFound):
		return http.StatusNotFound, CodeFavoriteNotFound, "favorite not found"
	case errors.Is(err, user.ErrUserNotFound):
		return http.StatusNotFound, CodeUserNotFound, "user not found"
	case errors.Is(err, resilience.ErrCircuitBreakerOpen):
		return http.StatusServiceUnavailable, CodeStoreUnavailable, "search store is temporarily unavailable"
	default:
		return http.StatusInternalServerError, CodeInternal, "an unexpected error occurred"
	}
}

// outcomeError renders a failed collection outcome. It returns nil for successful outcomes.
func outcomeError(out collection.Outcome) *AppError {
	switch out.Status {
	case collection.StatusParentNotFound:
		return NewNotFoundError(CodeTruckNotFound, "truck not found")
	case collection.StatusItemNotFound:
		return NewNotFoundError(CodeFoodNotFound, "food not found")
	case collection.StatusStoreError:
		return &AppError{Status: http.StatusBadGateway, Code: CodeStoreUnavailable, Message: out.Message}
	}
	if out.Succeeded() {
		return nil
	}
	return &AppError{Status: http.StatusInternalServerError, Code: CodeInternal, Message: "unexpected outcome " + out.Status.String()}
}

// outcomeHTTPStatus returns the status code of a successful outcome.
func outcomeHTTPStatus(out collection.Outcome) int {
	if out.Status == collection.StatusCreated {
		return http.StatusCreated
	}
	return http.StatusOK
}

func errorCategory(status int, code string) string {
	if strings.HasPrefix(strings.ToLower(code), "validation.") {
		return "validation_error"
	}

	switch status {
	case http.StatusBadRequest:
		return "validation_error"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusRequestEntityTooLarge:
		return "request_too_large"
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return "service_unavailable"
	default:
		if status >= 500 {
			return "internal_server_error"
		}
		return "application_error"
	}
}

func newPayloadTooLargeError(maxBytes int64) *AppError {
	return &AppError{
		Status:  http.StatusRequestEntityTooLarge,
		Code:    CodeRequestTooLarge,
		Message: fmt.Sprintf("request body exceeds maximum allowed size of %d bytes", maxBytes),
	}
}
