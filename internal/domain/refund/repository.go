package refund

import "context"

type Repository interface {
	Create(ctx context.Context, r *Refund) error
	// UpsertByExternalID is keyed by ExternalRefundID. Attribution fields already stored are kept.
	UpsertByExternalID(ctx context.Context, r *Refund) (*Refund, error)
	ListBySubscription(ctx context.Context, subscriptionID string) ([]*Refund, error)
}
