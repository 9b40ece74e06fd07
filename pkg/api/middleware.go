package api

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gamakdragons/wheretruck/pkg/auth"
	"github.com/gamakdragons/wheretruck/pkg/observability/logger"
)

// RequestIDHeader is the HTTP header name for request ID.
const RequestIDHeader = "X-Request-ID"

// unmatchedRoute labels metrics of requests that matched no route.
const unmatchedRoute = "unmatched"

const userIDKey = "user_id"

// HTTPRecorder records HTTP request metrics.
type HTTPRecorder interface {
	RecordHTTP(method, path string, status int, duration time.Duration)
	IncInFlight()
	DecInFlight()
}

// TokenVerifier verifies app access tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// RequestID keeps the caller's X-Request-ID or generates one, and stores it in the
// request context and the response header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)
		c.Request = c.Request.WithContext(logger.ContextWithRequestID(c.Request.Context(), requestID))
		c.Next()
	}
}

// Logging logs one line per request.
func Logging(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []any{
			"request_id", logger.RequestIDFromContext(c.Request.Context()),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"remote_addr", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "error", c.Errors.String())
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			log.Error("request failed", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("request failed", fields...)
		default:
			log.Info("request completed", fields...)
		}
	}
}

// Recovery turns a handler panic into a 500 response and logs the stack.
func Recovery(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				requestID := logger.RequestIDFromContext(c.Request.Context())
				log.Error("panic recovered",
					"request_id", requestID,
					"panic", r,
					"stack", string(debug.Stack()),
				)
				if !c.Writer.Written() {
					c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
						Error:     "internal_server_error",
						Code:      CodeInternal,
						Message:   "an unexpected error occurred",
						RequestID: requestID,
					})
					return
				}
				c.Abort()
			}
		}()
		c.Next()
	}
}

// Metrics records request duration, count and in-flight requests by route template.
func Metrics(rec HTTPRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec.IncInFlight()
		defer rec.DecInFlight()

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = unmatchedRoute
		}
		rec.RecordHTTP(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

// RequireUser rejects requests without a valid Bearer access token. The verified
// claims are stored in the request context and the user id in the gin context.
func RequireUser(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			Error(c, NewUnauthorizedError("missing bearer token"))
			return
		}
		claims, err := tokens.Verify(raw)
		if err != nil {
			Error(c, err)
			return
		}
		c.Request = c.Request.WithContext(auth.WithClaims(c.Request.Context(), claims))
		c.Set(userIDKey, claims.Subject)
		c.Next()
	}
}

// CurrentUserID returns the id of the authenticated caller.
func CurrentUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// BodyLimit rejects request bodies larger than maxBytes. A non-positive maxBytes disables it.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 || c.Request.Body == nil {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			Error(c, newPayloadTooLargeError(maxBytes))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
