package processor

import (
	"github.com/subsync/subsync/internal/types"
)

// EventObject decodes the fields of a webhook data.object that point at a subscription
type EventObject struct {
	ID     string `json:"id"`
	Object string `json:"object"`

	// checkout.session, subscription_schedule and pre 2025 invoices
	Subscription types.Reference[ObjectRef] `json:"subscription"`
	// invoice_payment
	Invoice types.Reference[InvoiceObject] `json:"invoice"`
	// invoices on current API versions
	Parent *InvoiceParent `json:"parent"`
}

type InvoiceParent struct {
	SubscriptionDetails *struct {
		Subscription types.Reference[ObjectRef] `json:"subscription"`
	} `json:"subscription_details"`
}

// InvoiceObject is the part of an invoice needed to find its subscription
type InvoiceObject struct {
	ID           string                     `json:"id"`
	Subscription types.Reference[ObjectRef] `json:"subscription"`
	Parent       *InvoiceParent             `json:"parent"`
}

func (i InvoiceObject) GetID() string { return i.ID }

// SubscriptionID returns the subscription an invoice belongs to
func (i InvoiceObject) SubscriptionID() string {
	if i.Parent != nil && i.Parent.SubscriptionDetails != nil {
		if id := i.Parent.SubscriptionDetails.Subscription.ID(); id != "" {
			return id
		}
	}
	return i.Subscription.ID()
}

const (
	ObjectSubscription         = "subscription"
	ObjectInvoice              = "invoice"
	ObjectInvoicePayment       = "invoice_payment"
	ObjectCheckoutSession      = "checkout.session"
	ObjectSubscriptionSchedule = "subscription_schedule"
)
