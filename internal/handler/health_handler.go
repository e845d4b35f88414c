package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ndvi-gateway/internal/dto"
	"github.com/noah-isme/ndvi-gateway/internal/models"
	"github.com/noah-isme/ndvi-gateway/internal/service"
	appErrors "github.com/noah-isme/ndvi-gateway/pkg/errors"
)

type backendHealth interface {
	Health(ctx context.Context) (*models.HealthStatus, error)
}

// HealthHandler exposes liveness, readiness and metrics endpoints.
type HealthHandler struct {
	backend backendHealth
	metrics *service.MetricsService
}

// NewHealthHandler constructs a health handler.
func NewHealthHandler(backend backendHealth, metrics *service.MetricsService) *HealthHandler {
	return &HealthHandler{backend: backend, metrics: metrics}
}

// Health godoc
// @Summary Gateway liveness
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready godoc
// @Summary Backend readiness
// @Description Reports the NDVI backend health. When the backend cannot be reached the gateway runs in demo mode and answers 503.
// @Tags Health
// @Produce json
// @Success 200 {object} dto.ReadyResponse
// @Failure 503 {object} dto.ReadyResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	status, err := h.backend.Health(c.Request.Context())
	if err != nil {
		appErr := appErrors.FromError(err)
		_ = c.Error(err)
		resp := dto.ReadyResponse{Status: "degraded", Message: appErr.Message}
		if appErr.Code == appErrors.CodeOffline {
			resp.Status = "demo_mode"
			resp.DemoMode = true
		}
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, dto.ReadyResponse{Status: "ready", Backend: status})
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *HealthHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}
