package notification

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/subsync/subsync/internal/config"
	"github.com/subsync/subsync/internal/logger"
	"github.com/subsync/subsync/internal/observability"
	"github.com/subsync/subsync/internal/pubsub"
	"github.com/subsync/subsync/internal/types"
)

// Notifier queues notifications. It never fails the caller; problems are logged and counted.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

type publisher struct {
	pubsub  pubsub.Publisher
	topic   string
	metrics *observability.Metrics
	logger  *logger.Logger
}

func NewNotifier(ps pubsub.PubSub, cfg *config.Configuration, metrics *observability.Metrics, logger *logger.Logger) Notifier {
	return &publisher{
		pubsub:  ps,
		topic:   cfg.Notification.Topic,
		metrics: metrics,
		logger:  logger,
	}
}

func (p *publisher) Notify(ctx context.Context, n Notification) {
	if n.To == "" {
		p.logger.Warnw("no email on file, skipping notification",
			"kind", n.Kind.Name(),
			"subscription_id", n.SubscriptionID,
		)
		p.metrics.IncNotification(n.Kind.Name(), "skipped")
		return
	}

	data, err := encode(n)
	if err != nil {
		p.logger.Errorw("failed to encode notification", "kind", n.Kind.Name(), "error", err)
		p.metrics.IncNotification(n.Kind.Name(), "publish_failed")
		return
	}

	msg := message.NewMessage(uuid.NewString(), data)
	if requestID := types.GetRequestID(ctx); requestID != "" {
		msg.Metadata.Set("request_id", requestID)
	}

	if err := p.pubsub.Publish(ctx, p.topic, msg); err != nil {
		p.logger.Errorw("failed to queue notification",
			"kind", n.Kind.Name(),
			"subscription_id", n.SubscriptionID,
			"error", err,
		)
		p.metrics.IncNotification(n.Kind.Name(), "publish_failed")
		return
	}

	p.logger.Debugw("queued notification",
		"kind", n.Kind.Name(),
		"subscription_id", n.SubscriptionID,
		"message_uuid", msg.UUID,
	)
}
