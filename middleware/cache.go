package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// CacheControlMiddleware marks responses cacheable by the client only.
// Locators are never reused, so a served image never changes.
func CacheControlMiddleware(maxAge time.Duration) gin.HandlerFunc {
	header := "private, max-age=" + strconv.Itoa(int(maxAge.Seconds()))
	return func(c *gin.Context) {
		c.Header("Cache-Control", header)
		c.Next()
	}
}
