package main

import (
	"log/slog"
	"time"

	"notebook/handler"
	"notebook/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const imageCacheMaxAge = time.Hour

func init() {
	// The terminal belongs to the TUI; no gin debug output.
	gin.SetMode(gin.ReleaseMode)
}

// setupRouter serves the URLs handed out by the image stores, a health
// check and the prometheus metrics.
func setupRouter(backend *Backend, logger *slog.Logger) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestTracingMiddleware(logger))
	router.Use(middleware.EnhancedRecoveryMiddleware(logger))
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.CORSMiddleware())

	images := handler.NewImagesHandler(backend.Images, logger)
	health := handler.NewHealthHandler(backend.Kind, backend, logger)

	router.GET("/images/*locator", middleware.CacheControlMiddleware(imageCacheMaxAge), images.GetImage)
	router.GET("/healthz", health.GetHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
