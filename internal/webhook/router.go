package webhook

import (
	"context"
	"encoding/json"
	"time"

	"github.com/subsync/subsync/internal/domain/processor"
	ierr "github.com/subsync/subsync/internal/errors"
	"github.com/subsync/subsync/internal/idempotency"
	"github.com/subsync/subsync/internal/logger"
	"github.com/subsync/subsync/internal/observability"
	"github.com/subsync/subsync/internal/sentry"
	"github.com/subsync/subsync/internal/service"
	"github.com/subsync/subsync/internal/types"
)

const (
	outcomeProcessed = "processed"
	outcomeDuplicate = "duplicate"
	outcomeUnhandled = "unhandled"
	outcomeFailed    = "failed"

	capabilityUnknown = "unknown"
)

// Router verifies inbound processor events, drops the ones already seen and
// dispatches the rest by capability.
type Router struct {
	table         Table
	processor     processor.Client
	store         idempotency.Store
	synchronizer  service.Synchronizer
	planService   service.PlanService
	userService   service.UserService
	refundService service.RefundService
	logger        *logger.Logger
	metrics       *observability.Metrics
	sentry        *sentry.Service
}

func NewRouter(
	table Table,
	client processor.Client,
	store idempotency.Store,
	synchronizer service.Synchronizer,
	planService service.PlanService,
	userService service.UserService,
	refundService service.RefundService,
	logger *logger.Logger,
	metrics *observability.Metrics,
	sentry *sentry.Service,
) *Router {
	return &Router{
		table:         table,
		processor:     client,
		store:         store,
		synchronizer:  synchronizer,
		planService:   planService,
		userService:   userService,
		refundService: refundService,
		logger:        logger,
		metrics:       metrics,
		sentry:        sentry,
	}
}

// Handle processes one raw webhook delivery. A nil error acknowledges the event;
// any error asks the sender to retry.
func (r *Router) Handle(ctx context.Context, payload []byte, signature string) error {
	event, err := r.processor.ConstructEvent(payload, signature)
	if err != nil {
		r.logger.WithContext(ctx).Warnw("rejected webhook", "error", err)
		r.metrics.IncWebhookEvent(capabilityUnknown, outcomeFailed)
		return err
	}

	ctx = types.WithEventID(ctx, event.ID)
	log := r.logger.WithContext(ctx).With("event_type", event.Type)

	capability, known := r.table.Lookup(event.Type)
	label := string(capability)
	if !known {
		label = capabilityUnknown
	}

	processed, err := r.store.HasProcessed(ctx, event.ID)
	if err != nil {
		log.Errorw("failed to check processed events", "error", err)
		r.metrics.IncWebhookEvent(label, outcomeFailed)
		return ierr.WithError(err).
			WithHint("Failed to check event status").
			Mark(ierr.ErrPersistence)
	}
	if processed {
		log.Infow("skipping duplicate event")
		r.metrics.IncWebhookEvent(label, outcomeDuplicate)
		return nil
	}

	// marked before dispatch: a failed handler is not retried for the same event id
	if err := r.store.MarkProcessed(ctx, event.ID, event.Type); err != nil {
		if ierr.IsDuplicateEvent(err) {
			log.Infow("event claimed by a concurrent delivery")
			r.metrics.IncWebhookEvent(label, outcomeDuplicate)
			return nil
		}
		log.Errorw("failed to mark event as processed", "error", err)
		r.metrics.IncWebhookEvent(label, outcomeFailed)
		return ierr.WithError(err).
			WithHint("Failed to record event").
			Mark(ierr.ErrPersistence)
	}

	if !known {
		log.Infow("unhandled event type")
		r.metrics.IncWebhookEvent(label, outcomeUnhandled)
		return nil
	}

	span, ctx := r.sentry.MonitorEventProcessing(ctx, event.Type, time.Unix(event.Created, 0), map[string]interface{}{
		"event_id":   event.ID,
		"capability": label,
	})
	defer sentry.FinishSpan(span)

	if err := r.dispatch(ctx, capability, event); err != nil {
		log.Errorw("failed to handle event", "capability", label, "error", err)
		r.sentry.CaptureException(err)
		r.metrics.IncWebhookEvent(label, outcomeFailed)
		return err
	}

	log.Debugw("event handled", "capability", label)
	r.metrics.IncWebhookEvent(label, outcomeProcessed)
	return nil
}

func (r *Router) dispatch(ctx context.Context, capability types.EventCapability, event *processor.Event) error {
	switch capability {
	case types.EventCapabilitySynchronize:
		return r.synchronize(ctx, event)
	case types.EventCapabilityUpsertPlan:
		return r.upsertPlan(ctx, event)
	case types.EventCapabilityUpsertUser:
		var customer processor.Customer
		if err := decodeObject(event, &customer); err != nil {
			return err
		}
		_, err := r.userService.UpsertFromCustomer(ctx, &customer)
		return err
	case types.EventCapabilityUpsertRefund:
		var refund processor.Refund
		if err := decodeObject(event, &refund); err != nil {
			return err
		}
		_, err := r.refundService.UpsertFromProcessor(ctx, &refund)
		return err
	case types.EventCapabilityIgnore:
		r.logger.WithContext(ctx).Infow("ignoring event", "event_type", event.Type)
		return nil
	}
	return nil
}

func (r *Router) synchronize(ctx context.Context, event *processor.Event) error {
	externalID, err := r.subscriptionID(ctx, event)
	if err != nil {
		return err
	}
	if externalID == "" {
		r.logger.WithContext(ctx).Warnw("event carries no subscription id", "event_type", event.Type)
		return nil
	}

	_, err = r.synchronizer.SyncByExternalID(ctx, externalID)
	return err
}

// subscriptionID finds the processor subscription an event object refers to
func (r *Router) subscriptionID(ctx context.Context, event *processor.Event) (string, error) {
	var obj processor.EventObject
	if err := decodeObject(event, &obj); err != nil {
		return "", err
	}

	switch obj.Object {
	case processor.ObjectSubscription:
		return obj.ID, nil
	case processor.ObjectInvoice:
		return processor.InvoiceObject{
			ID:           obj.ID,
			Subscription: obj.Subscription,
			Parent:       obj.Parent,
		}.SubscriptionID(), nil
	case processor.ObjectCheckoutSession, processor.ObjectSubscriptionSchedule:
		return obj.Subscription.ID(), nil
	case processor.ObjectInvoicePayment:
		if obj.Invoice.IsEmpty() {
			return "", nil
		}
		inv, err := obj.Invoice.Resolve(ctx, r.fetchInvoice)
		if err != nil {
			return "", err
		}
		return inv.SubscriptionID(), nil
	}
	return "", nil
}

func (r *Router) fetchInvoice(ctx context.Context, id string) (processor.InvoiceObject, error) {
	inv, err := r.processor.RetrieveInvoice(ctx, id)
	if err != nil {
		return processor.InvoiceObject{}, err
	}
	return processor.InvoiceObject{
		ID:           inv.ID,
		Subscription: types.RefID[processor.ObjectRef](inv.SubscriptionID),
	}, nil
}

func (r *Router) upsertPlan(ctx context.Context, event *processor.Event) error {
	switch event.Type {
	case types.EventProductCreated, types.EventProductUpdated, types.EventProductDeleted:
		var product processor.Product
		if err := decodeObject(event, &product); err != nil {
			return err
		}
		if event.Type == types.EventProductDeleted {
			product.Deleted = true
		}
		return r.planService.ApplyProduct(ctx, &product)
	case types.EventPriceDeleted:
		var price processor.Price
		if err := decodeObject(event, &price); err != nil {
			return err
		}
		return r.planService.DeactivatePrice(ctx, price.ID)
	default:
		var price processor.Price
		if err := decodeObject(event, &price); err != nil {
			return err
		}
		_, err := r.planService.UpsertFromPrice(ctx, &price)
		return err
	}
}

func decodeObject(event *processor.Event, v any) error {
	if err := json.Unmarshal(event.Object, v); err != nil {
		return ierr.WithError(err).
			WithHintf("Malformed %s payload", event.Type).
			WithReportableDetails(map[string]any{"event_id": event.ID}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
