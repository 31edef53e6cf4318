package refund

import (
	"github.com/subsync/subsync/internal/types"
)

const (
	ReasonSubscriptionCancelled = "Subscription cancelled"

	// metadata keys written on processor refunds so refund events can be attributed
	MetadataCustomerID     = "customer_id"
	MetadataSubscriptionID = "subscription_id"
)

// Refund is an audit record. One row is written per cancellation even when nothing was refunded.
type Refund struct {
	ID string `db:"id" json:"id"`
	// ExternalRefundID is the processor refund id when a refund was issued
	ExternalRefundID *string `db:"external_refund_id" json:"external_refund_id,omitempty"`
	CustomerID       string  `db:"customer_id" json:"customer_id"`
	SubscriptionID   *string `db:"subscription_id" json:"subscription_id,omitempty"`
	Amount           int64   `db:"amount" json:"amount"`
	// AmountPaid is what the refunded invoice collected
	AmountPaid int64          `db:"amount_paid" json:"amount_paid"`
	Currency   string         `db:"currency" json:"currency"`
	ChargeRef  *string        `db:"charge_ref" json:"charge_ref,omitempty"`
	Reason     string         `db:"reason" json:"reason"`
	Status     string         `db:"status" json:"status"`
	Metadata   types.Metadata `db:"metadata" json:"metadata"`

	types.BaseModel
}

func NewRefund(customerID string) *Refund {
	return &Refund{
		ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_REFUND),
		CustomerID: customerID,
		Metadata:   types.Metadata{},
		BaseModel:  types.GetDefaultBaseModel(),
	}
}
