package types

import (
	"github.com/samber/lo"
	ierr "github.com/subsync/subsync/internal/errors"
)

// SubscriptionStatus mirrors the processor's subscription status vocabulary verbatim
type SubscriptionStatus string

const (
	SubscriptionStatusIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	SubscriptionStatusTrialing          SubscriptionStatus = "trialing"
	SubscriptionStatusActive            SubscriptionStatus = "active"
	SubscriptionStatusPastDue           SubscriptionStatus = "past_due"
	SubscriptionStatusUnpaid            SubscriptionStatus = "unpaid"
	SubscriptionStatusPaused            SubscriptionStatus = "paused"
	// SubscriptionStatusCancelled is written locally on cancellation; the processor spells it "canceled"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusCanceled  SubscriptionStatus = "canceled"
)

// InForceStatuses are the statuses that count toward the one-subscription-per-customer rule
var InForceStatuses = []SubscriptionStatus{
	SubscriptionStatusActive,
	SubscriptionStatusTrialing,
}

func (s SubscriptionStatus) String() string {
	return string(s)
}

// IsInForce reports whether the subscription currently entitles the customer
func (s SubscriptionStatus) IsInForce() bool {
	return lo.Contains(InForceStatuses, s)
}

// IsTerminal reports whether no further transitions are expected
func (s SubscriptionStatus) IsTerminal() bool {
	return s == SubscriptionStatusCancelled || s == SubscriptionStatusCanceled ||
		s == SubscriptionStatusIncompleteExpired
}

// Validate only rejects the empty status; unknown processor values are stored as received
func (s SubscriptionStatus) Validate() error {
	if s == "" {
		return ierr.NewError("subscription status is required").
			WithHint("Subscription status is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ProrationBehavior controls how the processor charges for a mid-period price change
type ProrationBehavior string

const (
	ProrationBehaviorAlwaysInvoice    ProrationBehavior = "always_invoice"
	ProrationBehaviorCreateProrations ProrationBehavior = "create_prorations"
	ProrationBehaviorNone             ProrationBehavior = "none"
)

// ScheduleEndBehavior is what the processor does with a subscription once its last phase ends
type ScheduleEndBehavior string

const (
	ScheduleEndBehaviorRelease ScheduleEndBehavior = "release"
	ScheduleEndBehaviorCancel  ScheduleEndBehavior = "cancel"
)

// PaymentOutcome is the result of the first invoice of a new subscription
type PaymentOutcome string

const (
	PaymentOutcomePaid                  PaymentOutcome = "paid"
	PaymentOutcomeRequiresAction        PaymentOutcome = "requires_action"
	PaymentOutcomeRequiresPaymentMethod PaymentOutcome = "requires_payment_method"
)

// InvoiceStatus mirrors the processor invoice status
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "draft"
	InvoiceStatusOpen          InvoiceStatus = "open"
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusUncollectible InvoiceStatus = "uncollectible"
	InvoiceStatusVoid          InvoiceStatus = "void"
)

// PaymentIntentStatus mirrors the processor payment intent status
type PaymentIntentStatus string

const (
	PaymentIntentStatusSucceeded             PaymentIntentStatus = "succeeded"
	PaymentIntentStatusProcessing            PaymentIntentStatus = "processing"
	PaymentIntentStatusRequiresAction        PaymentIntentStatus = "requires_action"
	PaymentIntentStatusRequiresPaymentMethod PaymentIntentStatus = "requires_payment_method"
	PaymentIntentStatusRequiresConfirmation  PaymentIntentStatus = "requires_confirmation"
	PaymentIntentStatusCanceled              PaymentIntentStatus = "canceled"
)
