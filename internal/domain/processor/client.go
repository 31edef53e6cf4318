package processor

import (
	"context"

	"github.com/subsync/subsync/internal/types"
)

// Client is the set of payment processor operations the service consumes.
// Errors are marked with ierr.ErrProcessor, and additionally with ierr.ErrInvalidRequest
// for rejected requests, ierr.ErrNotFound for missing objects and ierr.ErrInvalidSignature
// for webhook verification failures.
type Client interface {
	CreateCustomer(ctx context.Context, params CreateCustomerParams) (*Customer, error)
	UpdateCustomer(ctx context.Context, params UpdateCustomerParams) (*Customer, error)
	AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error
	SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error

	// CreateSubscription returns the subscription with its latest invoice and payment intent expanded
	CreateSubscription(ctx context.Context, params CreateSubscriptionParams) (*Subscription, error)
	RetrieveSubscription(ctx context.Context, id string, expandInvoice bool) (*Subscription, error)
	UpdateSubscriptionItem(ctx context.Context, params UpdateSubscriptionItemParams) (*Subscription, error)
	// CancelSubscription cancels immediately and is never retried
	CancelSubscription(ctx context.Context, id string) (*Subscription, error)

	RetrieveInvoice(ctx context.Context, id string) (*Invoice, error)
	RetrievePaymentIntent(ctx context.Context, id string) (*PaymentIntent, error)
	CreateRefund(ctx context.Context, params CreateRefundParams) (*Refund, error)

	CreateScheduleFromSubscription(ctx context.Context, subscriptionID string) (*Schedule, error)
	RetrieveSchedule(ctx context.Context, id string) (*Schedule, error)
	UpdateSchedule(ctx context.Context, params UpdateScheduleParams) (*Schedule, error)

	ListPrices(ctx context.Context, params ListPricesParams) ([]*Price, error)
	RetrieveProduct(ctx context.Context, id string) (*Product, error)

	ConstructEvent(payload []byte, signature string) (*Event, error)
}

type CreateCustomerParams struct {
	Email          string
	Name           string
	IdempotencyKey string
}

type UpdateCustomerParams struct {
	ID    string
	Email string
	Name  string
}

type CreateSubscriptionParams struct {
	CustomerID     string
	PriceID        string
	IdempotencyKey string
}

type UpdateSubscriptionItemParams struct {
	SubscriptionID    string
	ItemID            string
	PriceID           string
	ProrationBehavior types.ProrationBehavior
}

type CreateRefundParams struct {
	ChargeID       string
	Amount         int64
	Reason         string
	Metadata       map[string]string
	IdempotencyKey string
}

// UpdateScheduleParams replaces the full phase list; phases omitted here are dropped by the processor
type UpdateScheduleParams struct {
	ScheduleID  string
	Phases      []Phase
	EndBehavior types.ScheduleEndBehavior
	// StartNow makes the first phase start immediately instead of at Phases[0].StartDate
	StartNow bool
}

type ListPricesParams struct {
	ActiveOnly bool
	ProductID  string
}

// RefundReasonRequestedByCustomer is the processor refund reason used on cancellation
const RefundReasonRequestedByCustomer = "requested_by_customer"
