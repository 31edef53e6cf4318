package dto

import (
	"github.com/subsync/subsync/internal/domain/refund"
	"github.com/subsync/subsync/internal/domain/subscription"
	"github.com/subsync/subsync/internal/types"
	"github.com/subsync/subsync/internal/validator"
)

// CreateSubscriptionRequest starts a paid subscription for an existing processor customer
type CreateSubscriptionRequest struct {
	CustomerID      string `json:"customerId" validate:"required"`
	PriceID         string `json:"priceId" validate:"required"`
	PaymentMethodID string `json:"paymentMethodId" validate:"required"`
}

func (r *CreateSubscriptionRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// ChangePriceRequest is the body of both the upgrade and the downgrade endpoints
type ChangePriceRequest struct {
	NewPriceID string `json:"newPriceId" validate:"required"`
}

func (r *ChangePriceRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// CreateSubscriptionResponse summarises the first payment of a new subscription.
// Outcome is requires_action or requires_payment_method when nothing was persisted.
type CreateSubscriptionResponse struct {
	Message                string                   `json:"message"`
	Outcome                types.PaymentOutcome     `json:"outcome"`
	SubscriptionID         string                   `json:"subscription_id,omitempty"`
	ExternalSubscriptionID string                   `json:"external_subscription_id"`
	Status                 types.SubscriptionStatus `json:"status"`
	InvoiceStatus          types.InvoiceStatus      `json:"invoice_status,omitempty"`
	ChargeID               string                   `json:"charge_id,omitempty"`
	ClientSecret           string                   `json:"client_secret,omitempty"`
}

// Persisted reports whether a local record was written
func (r *CreateSubscriptionResponse) Persisted() bool {
	return r.Outcome == types.PaymentOutcomePaid
}

type SubscriptionResponse struct {
	*subscription.Subscription
}

// ListSubscriptionsResponse represents the response for listing subscriptions
type ListSubscriptionsResponse = types.ListResponse[*SubscriptionResponse]

// CancelSubscriptionResponse carries the cancelled mirror and the refund decision
type CancelSubscriptionResponse struct {
	Message      string                     `json:"message"`
	Subscription *subscription.Subscription `json:"subscription"`
	RefundID     string                     `json:"refund_id,omitempty"`
	RefundAmount int64                      `json:"refund_amount"`
	Currency     string                     `json:"currency,omitempty"`
	DaysTotal    int64                      `json:"days_total"`
	DaysUsed     int64                      `json:"days_used"`
	DaysUnused   int64                      `json:"days_unused"`
}

type RefundResponse struct {
	*refund.Refund
}

type ListRefundsResponse struct {
	Items []*RefundResponse `json:"items"`
}
