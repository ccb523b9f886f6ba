package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/logging"
)

const serviceName = "taproom-admin"

// BuildVersion is set at build time with -ldflags "-X .../handlers.BuildVersion=...".
var BuildVersion = "dev"

var startTime = time.Now()

// readyTimeout bounds the upstream ping done by the readiness probe.
const readyTimeout = 2 * time.Second

// Health handles GET /health
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
	})
}

// Ready handles GET /ready. The UI is only useful while the taproom API
// answers, so readiness pings its stock endpoint.
func (h *Handlers) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	if _, err := h.client.ListStock(ctx); err != nil {
		h.logger.Warn("Readiness check failed", logging.Fields{"error": err.Error()})
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "not ready",
			"service": serviceName,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ready",
		"service": serviceName,
	})
}

// Live handles GET /live
func (h *Handlers) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

// Version handles GET /version
func (h *Handlers) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":        BuildVersion,
		"service":        serviceName,
		"go_version":     runtime.Version(),
		"started_at":     startTime.Format(time.RFC3339),
		"uptime_seconds": int64(time.Since(startTime).Seconds()),
	})
}
