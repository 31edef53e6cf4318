package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/subsync/subsync/internal/api/dto"
	"github.com/subsync/subsync/internal/logger"
	"github.com/subsync/subsync/internal/postgres"
)

const healthTimeout = 2 * time.Second

type HealthHandler struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewHealthHandler(db postgres.IClient, logger *logger.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: logger}
}

// @Summary Health check
// @Description Reports whether the service and its database are reachable
// @Tags Health
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Failure 503 {object} dto.HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.WithContext(ctx).Warnw("health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, dto.HealthResponse{Status: "unavailable"})
		return
	}

	c.JSON(http.StatusOK, dto.HealthResponse{Status: "ok"})
}
