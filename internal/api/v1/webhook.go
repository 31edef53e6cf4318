package v1

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/subsync/subsync/internal/config"
	ierr "github.com/subsync/subsync/internal/errors"
	"github.com/subsync/subsync/internal/logger"
)

const stripeSignatureHeader = "Stripe-Signature"

// EventRouter handles one raw processor webhook delivery
type EventRouter interface {
	Handle(ctx context.Context, payload []byte, signature string) error
}

type WebhookHandler struct {
	router   EventRouter
	maxBytes int64
	logger   *logger.Logger
}

func NewWebhookHandler(router EventRouter, cfg *config.Configuration, logger *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		router:   router,
		maxBytes: cfg.Server.MaxWebhookBytes,
		logger:   logger,
	}
}

// @Summary Handle Stripe webhook events
// @Description Verifies the signature over the raw body and applies the event. Non 2xx responses ask Stripe to retry.
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Stripe webhook signature"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ierr.ErrorResponse
// @Router /webhook/stripe [post]
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			_ = c.Error(ierr.WithError(err).
				WithHintf("Webhook body exceeds %d bytes", h.maxBytes).
				Mark(ierr.ErrValidation))
			return
		}
		h.logger.WithContext(c.Request.Context()).Errorw("failed to read webhook body", "error", err)
		_ = c.Error(ierr.WithError(err).
			WithHint("Failed to read request body").
			Mark(ierr.ErrValidation))
		return
	}

	signature := c.GetHeader(stripeSignatureHeader)
	if signature == "" {
		_ = c.Error(ierr.NewError("missing signature header").
			WithHint("Missing Stripe-Signature header").
			Mark(ierr.ErrInvalidSignature))
		return
	}

	if err := h.router.Handle(c.Request.Context(), body, signature); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
