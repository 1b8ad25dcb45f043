package logger

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	headerRequestID = "X-Request-Id"
	ginLoggerKey    = "logger"
)

// Middleware tags each request with a request_id, makes the tagged logger
// reachable from both the gin and the request context, and logs one summary
// line per request. Paths in skip are served but not summarized.
func Middleware(l *slog.Logger, skip ...string) gin.HandlerFunc {
	quiet := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		quiet[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()

		rid := c.GetHeader(headerRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Writer.Header().Set(headerRequestID, rid)

		reqLogger := l.With("request_id", rid)
		Enrich(c, reqLogger)

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		if _, ok := quiet[path]; ok {
			return
		}

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"client_ip", c.ClientIP(),
			"duration_ms", float64(time.Since(start).Microseconds()) / 1000,
		}
		switch {
		case len(c.Errors) > 0:
			attrs = append(attrs, "errors", c.Errors.String())
			reqLogger.Error("request", attrs...)
		case status >= http.StatusInternalServerError:
			reqLogger.Error("request", attrs...)
		case status >= http.StatusBadRequest:
			reqLogger.Warn("request", attrs...)
		default:
			reqLogger.Info("request", attrs...)
		}
	}
}

// Enrich replaces the request-scoped logger on both the gin and the request
// context.
func Enrich(c *gin.Context, l *slog.Logger) {
	c.Set(ginLoggerKey, l)
	c.Request = c.Request.WithContext(With(c.Request.Context(), l))
}

// FromGin pulls the request-scoped logger from Gin context.
func FromGin(c *gin.Context) *slog.Logger {
	if v, ok := c.Get(ginLoggerKey); ok {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return From(c.Request.Context())
}
