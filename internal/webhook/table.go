package webhook

import (
	"github.com/subsync/subsync/internal/types"
)

// Table maps a processor event type to the capability that handles it.
// Types missing from the table are logged and dropped.
type Table map[string]types.EventCapability

// NewTable builds the dispatch table used by the router
func NewTable() Table {
	t := Table{}
	t.register(types.EventCapabilityUpsertPlan,
		types.EventProductCreated,
		types.EventProductUpdated,
		types.EventProductDeleted,
		types.EventPriceCreated,
		types.EventPriceUpdated,
		types.EventPriceDeleted,
	)
	t.register(types.EventCapabilityUpsertUser,
		types.EventCustomerCreated,
		types.EventCustomerUpdated,
	)
	t.register(types.EventCapabilitySynchronize,
		types.EventSubscriptionCreated,
		types.EventSubscriptionUpdated,
		types.EventSubscriptionDeleted,
		types.EventSubscriptionPaused,
		types.EventSubscriptionResumed,
		types.EventSubscriptionPendingUpdateApplied,
		types.EventSubscriptionPendingUpdateExpired,
		types.EventSubscriptionTrialWillEnd,
		types.EventInvoicePaymentSucceeded,
		types.EventInvoicePaymentFailed,
		types.EventInvoiceFinalized,
		types.EventInvoiceMarkedUncollectible,
		types.EventInvoiceVoided,
		types.EventInvoicePaid,
		types.EventInvoiceUpcoming,
		types.EventInvoiceSent,
		types.EventInvoicePaymentActionRequired,
		types.EventInvoiceUpdated,
		types.EventCheckoutSessionCompleted,
		types.EventInvoicePaymentPaid,
		types.EventScheduleCanceled,
		types.EventScheduleCompleted,
		types.EventScheduleReleased,
		types.EventScheduleUpdated,
		types.EventScheduleAborted,
	)
	t.register(types.EventCapabilityUpsertRefund,
		types.EventRefundCreated,
		types.EventRefundUpdated,
	)
	t.register(types.EventCapabilityIgnore,
		types.EventCreditNoteCreated,
		types.EventChargeRefunded,
	)
	return t
}

func (t Table) register(capability types.EventCapability, eventTypes ...string) {
	for _, eventType := range eventTypes {
		t[eventType] = capability
	}
}

// Lookup returns the capability for an event type
func (t Table) Lookup(eventType string) (types.EventCapability, bool) {
	c, ok := t[eventType]
	return c, ok
}
