package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/reviewgate-backend/internal/platform/ctxutil"
	"github.com/yungbote/reviewgate-backend/internal/platform/logger"
)

// RequestLogger logs one line per request, leveled by status class.
func RequestLogger(baseLog *logger.Logger) gin.HandlerFunc {
	if baseLog == nil {
		return func(c *gin.Context) { c.Next() }
	}
	log := baseLog.With("Middleware", "RequestLogger")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		ctx := c.Request.Context()
		fields := []interface{}{
			"method", strings.ToUpper(c.Request.Method),
			"route", route,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		fields = append(fields, ctxutil.TraceFields(ctx)...)
		if rd := ctxutil.GetRequestData(ctx); rd != nil {
			fields = append(fields, "user_id", rd.UserID.String())
			if rd.Tier != "" {
				fields = append(fields, "tier", rd.Tier)
			}
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate); len(errs) > 0 {
			fields = append(fields, "error", errs.String())
		}

		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}
