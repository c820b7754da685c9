package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/CSYE6225NCLOUD/webapp/internal/usecase/health"
	"github.com/CSYE6225NCLOUD/webapp/pkg/logger"
)

// HealthHandler serves /healthz.
type HealthHandler struct {
	checker health.Checker
	log     *zap.Logger
}

// NewHealthHandler creates a new HealthHandler instance
func NewHealthHandler(checker health.Checker, log *zap.Logger) *HealthHandler {
	return &HealthHandler{checker: checker, log: log}
}

// Healthz handles GET /healthz. It never writes a body.
func (h *HealthHandler) Healthz(c *gin.Context) {
	if hasArguments(c.Request) {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	if err := h.checker.Check(c.Request.Context()); err != nil {
		logger.WithContext(c.Request.Context(), h.log).Warn("health check failed", zap.Error(err))
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	}

	c.Status(http.StatusOK)
}
