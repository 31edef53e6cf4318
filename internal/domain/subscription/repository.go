package subscription

import (
	"context"

	"github.com/subsync/subsync/internal/types"
)

// Repository is the persistence contract for subscriptions.
// Lookups return an error marked ierr.ErrNotFound when nothing matches.
type Repository interface {
	Get(ctx context.Context, id string) (*Subscription, error)
	GetByExternalID(ctx context.Context, externalSubscriptionID string) (*Subscription, error)
	// GetInForceByCustomer returns the customer's active or trialing subscription
	GetInForceByCustomer(ctx context.Context, customerID string) (*Subscription, error)
	List(ctx context.Context, filter *types.SubscriptionFilter) ([]*Subscription, error)
	Count(ctx context.Context, filter *types.SubscriptionFilter) (int, error)

	// Upsert writes every column keyed by ExternalSubscriptionID and returns the stored row
	Upsert(ctx context.Context, sub *Subscription) (*Subscription, error)
	// SyncUpsert writes processor derived columns keyed by ExternalSubscriptionID, following MergeSynced
	SyncUpsert(ctx context.Context, sub *Subscription) (*Subscription, error)
	// Update writes every column keyed by ID and returns the stored row
	Update(ctx context.Context, sub *Subscription) (*Subscription, error)
}
