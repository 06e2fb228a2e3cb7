package middleware

import (
	"log/slog"

	"notebook/utils"

	"github.com/gin-gonic/gin"
)

func EnhancedRecoveryMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic while serving request",
					"panic", err,
					"path", c.Request.URL.Path,
					"request_id", c.GetString(requestIDKey),
				)
				utils.InternalError(c, "Internal server error")
			}
		}()
		c.Next()
	}
}
