package notification

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/subsync/subsync/internal/config"
	ierr "github.com/subsync/subsync/internal/errors"
	"github.com/subsync/subsync/internal/logger"
	"github.com/subsync/subsync/internal/observability"
	"github.com/subsync/subsync/internal/pubsub"
	"github.com/subsync/subsync/internal/pubsub/router"
)

// Sender delivers a rendered email
type Sender interface {
	Send(ctx context.Context, to, subject, html string) (string, error)
}

// Consumer renders queued notifications and hands them to the Sender
type Consumer struct {
	sender  Sender
	topic   string
	timeout time.Duration
	metrics *observability.Metrics
	logger  *logger.Logger
}

func NewConsumer(sender Sender, cfg *config.Configuration, metrics *observability.Metrics, logger *logger.Logger) *Consumer {
	return &Consumer{
		sender:  sender,
		topic:   cfg.Notification.Topic,
		timeout: cfg.Email.Timeout,
		metrics: metrics,
		logger:  logger,
	}
}

// RegisterHandler subscribes the consumer to the notification topic
func (c *Consumer) RegisterHandler(r *router.Router, subscriber pubsub.Subscriber) {
	r.AddNoPublishHandler("notification_email", c.topic, subscriber, c.Handle)
	c.logger.Infow("registered notification handler", "topic", c.topic)
}

// Handle is the watermill handler. Malformed payloads are dropped; send failures are returned for retry.
func (c *Consumer) Handle(msg *message.Message) error {
	n, err := decode(msg.Payload)
	if err != nil {
		c.logger.Errorw("dropping malformed notification", "message_uuid", msg.UUID, "error", err)
		c.metrics.IncNotification("unknown", "dropped")
		return nil
	}

	return c.Deliver(msg.Context(), n)
}

// Deliver renders and sends one notification
func (c *Consumer) Deliver(ctx context.Context, n Notification) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	id, err := c.sender.Send(ctx, n.To, n.Kind.Subject(), n.Kind.Body(n.Name))
	if err != nil {
		c.metrics.IncNotification(n.Kind.Name(), "failed")
		return ierr.WithError(err).
			WithHintf("Failed to send %s notification", n.Kind.Name()).
			WithReportableDetails(map[string]any{"subscription_id": n.SubscriptionID}).
			Mark(ierr.ErrInternal)
	}

	c.metrics.IncNotification(n.Kind.Name(), "sent")
	c.logger.Infow("notification sent",
		"kind", n.Kind.Name(),
		"subscription_id", n.SubscriptionID,
		"message_id", id,
	)
	return nil
}
