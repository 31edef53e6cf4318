package types

// EventCapability is the action a processor event type resolves to
type EventCapability string

const (
	EventCapabilitySynchronize  EventCapability = "synchronize"
	EventCapabilityUpsertRefund EventCapability = "upsert_refund"
	EventCapabilityUpsertPlan   EventCapability = "upsert_plan"
	EventCapabilityUpsertUser   EventCapability = "upsert_user"
	EventCapabilityIgnore       EventCapability = "ignore"
)

// Processor event types handled by the webhook router
const (
	EventProductCreated = "product.created"
	EventProductUpdated = "product.updated"
	EventProductDeleted = "product.deleted"
	EventPriceCreated   = "price.created"
	EventPriceUpdated   = "price.updated"
	EventPriceDeleted   = "price.deleted"

	EventCustomerCreated = "customer.created"
	EventCustomerUpdated = "customer.updated"

	EventSubscriptionCreated              = "customer.subscription.created"
	EventSubscriptionUpdated              = "customer.subscription.updated"
	EventSubscriptionDeleted              = "customer.subscription.deleted"
	EventSubscriptionPaused               = "customer.subscription.paused"
	EventSubscriptionResumed              = "customer.subscription.resumed"
	EventSubscriptionPendingUpdateApplied = "customer.subscription.pending_update_applied"
	EventSubscriptionPendingUpdateExpired = "customer.subscription.pending_update_expired"
	EventSubscriptionTrialWillEnd         = "customer.subscription.trial_will_end"

	EventInvoicePaymentSucceeded      = "invoice.payment_succeeded"
	EventInvoicePaymentFailed         = "invoice.payment_failed"
	EventInvoiceFinalized             = "invoice.finalized"
	EventInvoiceMarkedUncollectible   = "invoice.marked_uncollectible"
	EventInvoiceVoided                = "invoice.voided"
	EventInvoicePaid                  = "invoice.paid"
	EventInvoiceUpcoming              = "invoice.upcoming"
	EventInvoiceSent                  = "invoice.sent"
	EventInvoicePaymentActionRequired = "invoice.payment_action_required"
	EventInvoiceUpdated               = "invoice.updated"

	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventInvoicePaymentPaid       = "invoice_payment.paid"

	EventScheduleCanceled  = "subscription_schedule.canceled"
	EventScheduleCompleted = "subscription_schedule.completed"
	EventScheduleReleased  = "subscription_schedule.released"
	EventScheduleUpdated   = "subscription_schedule.updated"
	EventScheduleAborted   = "subscription_schedule.aborted"

	EventRefundCreated = "refund.created"
	EventRefundUpdated = "refund.updated"

	EventCreditNoteCreated = "credit_note.created"
	EventChargeRefunded    = "charge.refunded"
)
