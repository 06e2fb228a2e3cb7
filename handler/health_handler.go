package handler

import (
	"context"
	"log/slog"
	"time"

	"notebook/utils"

	"github.com/gin-gonic/gin"
)

const pingTimeout = 2 * time.Second

// Pinger reports whether the note store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthStatus struct {
	Backend string `json:"backend"`
	Store   string `json:"store"`
	utils.HostStats
}

type HealthHandler struct {
	backend string
	store   Pinger
	logger  *slog.Logger
	stats   func() utils.HostStats
}

func NewHealthHandler(backend string, store Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		backend: backend,
		store:   store,
		logger:  logger,
		stats:   utils.GetHostStats,
	}
}

// GetHealth handles GET /healthz.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
	defer cancel()

	status := HealthStatus{
		Backend:   h.backend,
		Store:     "ok",
		HostStats: h.stats(),
	}
	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", "backend", h.backend, "error", err)
		status.Store = "unreachable"
		utils.ServiceUnavailable(c, "Store unreachable", status)
		return
	}
	utils.Success(c, status)
}
