package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/subsync/subsync/internal/logger"
	"github.com/subsync/subsync/internal/service"
	"github.com/subsync/subsync/internal/types"
)

type PlanHandler struct {
	service service.PlanService
	log     *logger.Logger
}

func NewPlanHandler(service service.PlanService, log *logger.Logger) *PlanHandler {
	return &PlanHandler{service: service, log: log}
}

// @Summary Get a plan
// @Tags Plans
// @Produce json
// @Param id path string true "Plan ID"
// @Success 200 {object} dto.PlanResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /plans/{id} [get]
func (h *PlanHandler) GetPlan(c *gin.Context) {
	id, ok := pathParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.service.GetPlan(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Get plans
// @Tags Plans
// @Produce json
// @Param filter query types.PlanFilter false "Filter"
// @Success 200 {object} dto.ListPlansResponse
// @Router /plans [get]
func (h *PlanHandler) GetPlans(c *gin.Context) {
	filter := types.NewPlanFilter()
	if !bindQuery(c, filter) {
		return
	}

	resp, err := h.service.GetPlans(c.Request.Context(), filter)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Import plans
// @Description Imports every active processor price as a plan
// @Tags Plans
// @Produce json
// @Success 200 {object} dto.SyncPlansResponse
// @Router /plans/sync [post]
func (h *PlanHandler) SyncPlans(c *gin.Context) {
	resp, err := h.service.SyncFromProcessor(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
