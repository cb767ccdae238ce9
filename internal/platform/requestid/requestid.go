package requestid

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"libdesk/internal/platform/logging"
)

type requestIDContextKey struct{}

const Header = "X-Request-Id"

// Middleware propagates an incoming request id or generates one when absent.
// The id goes to the response header, the request context and a child logger.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 上流から来た ID があればそれを引き継ぐ
		id := strings.TrimSpace(c.GetHeader(Header))
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(Header, id)

		ctx := context.WithValue(c.Request.Context(), requestIDContextKey{}, id)
		ctx = logging.ContextWithLogger(ctx, slog.Default().With("request_id", id))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// AccessLog emits one structured line per request.
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logging.FromContext(c.Request.Context()).Info(
			"http_request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"errors", c.Errors.ByType(gin.ErrorTypeAny).String(),
		)
	}
}

// FromContext returns the request id stored by Middleware.
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}
