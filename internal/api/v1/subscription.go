package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/subsync/subsync/internal/api/dto"
	"github.com/subsync/subsync/internal/logger"
	"github.com/subsync/subsync/internal/service"
	"github.com/subsync/subsync/internal/types"
)

type SubscriptionHandler struct {
	service       service.SubscriptionService
	refundService service.RefundService
	log           *logger.Logger
}

func NewSubscriptionHandler(
	service service.SubscriptionService,
	refundService service.RefundService,
	log *logger.Logger,
) *SubscriptionHandler {
	return &SubscriptionHandler{
		service:       service,
		refundService: refundService,
		log:           log,
	}
}

// @Summary Create subscription
// @Description Attaches the payment method, creates the processor subscription and records it once paid
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param subscription body dto.CreateSubscriptionRequest true "Subscription request"
// @Success 201 {object} dto.CreateSubscriptionResponse
// @Success 200 {object} dto.CreateSubscriptionResponse "Payment needs a follow-up, nothing was recorded"
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /subscriptions [post]
func (h *SubscriptionHandler) CreateSubscription(c *gin.Context) {
	var req dto.CreateSubscriptionRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.service.CreateSubscription(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	status := http.StatusOK
	if resp.Persisted() {
		status = http.StatusCreated
	}
	c.JSON(status, resp)
}

// @Summary Get subscription
// @Description Get a subscription by local or processor id
// @Tags Subscriptions
// @Produce json
// @Param id path string true "Subscription ID"
// @Success 200 {object} dto.SubscriptionResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /subscriptions/{id} [get]
func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	id, ok := pathParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.service.GetSubscription(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary List subscriptions
// @Tags Subscriptions
// @Produce json
// @Param filter query types.SubscriptionFilter false "Filter"
// @Success 200 {object} dto.ListSubscriptionsResponse
// @Router /subscriptions [get]
func (h *SubscriptionHandler) ListSubscriptions(c *gin.Context) {
	filter := types.NewSubscriptionFilter()
	if !bindQuery(c, filter) {
		return
	}

	resp, err := h.service.ListSubscriptions(c.Request.Context(), filter)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Get the active subscription of a customer
// @Tags Subscriptions
// @Produce json
// @Param customerId path string true "Processor customer ID"
// @Success 200 {object} dto.SubscriptionResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /subscriptions/customer/{customerId}/active [get]
func (h *SubscriptionHandler) GetActiveSubscription(c *gin.Context) {
	customerID, ok := pathParam(c, "customerId")
	if !ok {
		return
	}

	resp, err := h.service.GetActiveSubscription(c.Request.Context(), customerID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Upgrade subscription
// @Description Switches the price immediately and invoices the proration
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param id path string true "Subscription ID"
// @Param request body dto.ChangePriceRequest true "New price"
// @Success 200 {object} dto.SubscriptionResponse
// @Router /subscriptions/upgrade/{id} [patch]
func (h *SubscriptionHandler) UpgradeSubscription(c *gin.Context) {
	id, ok := pathParam(c, "id")
	if !ok {
		return
	}

	var req dto.ChangePriceRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.service.UpgradeSubscription(c.Request.Context(), id, req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Schedule downgrade
// @Description Schedules the new price to start at the end of the current period
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param id path string true "Subscription ID"
// @Param request body dto.ChangePriceRequest true "New price"
// @Success 200 {object} dto.SubscriptionResponse
// @Router /subscriptions/downgrade/{id} [patch]
func (h *SubscriptionHandler) ScheduleDowngrade(c *gin.Context) {
	id, ok := pathParam(c, "id")
	if !ok {
		return
	}

	var req dto.ChangePriceRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.service.ScheduleDowngrade(c.Request.Context(), id, req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Cancel subscription
// @Description Cancels immediately and refunds the unused part of the period
// @Tags Subscriptions
// @Produce json
// @Param id path string true "Subscription ID"
// @Success 200 {object} dto.CancelSubscriptionResponse
// @Router /subscriptions/cancel/{id} [patch]
func (h *SubscriptionHandler) CancelSubscription(c *gin.Context) {
	id, ok := pathParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.service.CancelSubscription(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary List refunds of a subscription
// @Tags Subscriptions
// @Produce json
// @Param id path string true "Subscription ID"
// @Success 200 {object} dto.ListRefundsResponse
// @Router /subscriptions/{id}/refunds [get]
func (h *SubscriptionHandler) ListRefunds(c *gin.Context) {
	id, ok := pathParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.refundService.ListBySubscription(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
