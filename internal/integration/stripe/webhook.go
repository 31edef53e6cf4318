package stripe

import (
	"github.com/stripe/stripe-go/v82/webhook"
	"github.com/subsync/subsync/internal/domain/processor"
	ierr "github.com/subsync/subsync/internal/errors"
)

// ConstructEvent verifies the Stripe-Signature header against the raw body and parses the event
func (c *Client) ConstructEvent(payload []byte, signature string) (*processor.Event, error) {
	if c.config.WebhookSecret == "" {
		return nil, ierr.NewError("webhook secret is not configured").
			WithHint("Webhook endpoint is not configured").
			Mark(ierr.ErrInvalidSignature)
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, c.config.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		c.logger.Warnw("stripe webhook verification failed", "error", err)
		return nil, ierr.WithError(err).
			WithHint("Invalid webhook signature").
			Mark(ierr.ErrInvalidSignature)
	}

	out := &processor.Event{
		ID:      event.ID,
		Type:    string(event.Type),
		Created: event.Created,
	}
	if event.Data != nil {
		out.Object = event.Data.Raw
	}
	return out, nil
}
