package testutil

import (
	"context"

	"github.com/samber/lo"
	"github.com/subsync/subsync/internal/domain/subscription"
	ierr "github.com/subsync/subsync/internal/errors"
	"github.com/subsync/subsync/internal/types"
)

var _ subscription.Repository = (*InMemorySubscriptionStore)(nil)

// InMemorySubscriptionStore implements subscription.Repository. Rows are keyed by local id.
type InMemorySubscriptionStore struct {
	*InMemoryStore[*subscription.Subscription]
}

func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		InMemoryStore: NewInMemoryStore[*subscription.Subscription](),
	}
}

// subscriptionFilterFn implements filtering logic for subscriptions
func subscriptionFilterFn(ctx context.Context, sub *subscription.Subscription, filter interface{}) bool {
	if sub == nil {
		return false
	}

	f, ok := filter.(*types.SubscriptionFilter)
	if !ok || f == nil {
		return true
	}

	if f.CustomerID != "" && sub.CustomerID != f.CustomerID {
		return false
	}

	if len(f.Statuses) > 0 && !lo.Contains(f.Statuses, sub.Status) {
		return false
	}

	return true
}

// subscriptionSortFn orders newest first
func subscriptionSortFn(i, j *subscription.Subscription) bool {
	if i == nil || j == nil {
		return false
	}
	if i.CreatedAt.Equal(j.CreatedAt) {
		return i.ID > j.ID
	}
	return i.CreatedAt.After(j.CreatedAt)
}

func copySubscription(sub *subscription.Subscription) *subscription.Subscription {
	if sub == nil {
		return nil
	}
	c := *sub
	return &c
}

func subscriptionNotFound(field, value string) error {
	return ierr.NewError("subscription not found").
		WithHintf("Subscription with %s %s was not found", field, value).
		WithReportableDetails(map[string]any{field: value}).
		Mark(ierr.ErrNotFound)
}

func (s *InMemorySubscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	sub, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, subscriptionNotFound("id", id)
	}
	return copySubscription(sub), nil
}

func (s *InMemorySubscriptionStore) GetByExternalID(ctx context.Context, externalSubscriptionID string) (*subscription.Subscription, error) {
	sub, ok := s.Find(func(item *subscription.Subscription) bool {
		return item.ExternalSubscriptionID == externalSubscriptionID
	})
	if !ok {
		return nil, subscriptionNotFound("external_subscription_id", externalSubscriptionID)
	}
	return copySubscription(sub), nil
}

func (s *InMemorySubscriptionStore) GetInForceByCustomer(ctx context.Context, customerID string) (*subscription.Subscription, error) {
	filter := &types.SubscriptionFilter{
		CustomerID: customerID,
		Statuses:   types.InForceStatuses,
	}
	subs, err := s.InMemoryStore.List(ctx, filter, subscriptionFilterFn, subscriptionSortFn)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, subscriptionNotFound("customer_id", customerID)
	}
	return copySubscription(subs[0]), nil
}

func (s *InMemorySubscriptionStore) List(ctx context.Context, filter *types.SubscriptionFilter) ([]*subscription.Subscription, error) {
	if filter == nil {
		filter = types.NewSubscriptionFilter()
	}
	subs, err := s.InMemoryStore.List(ctx, filter, subscriptionFilterFn, subscriptionSortFn)
	if err != nil {
		return nil, err
	}
	return lo.Map(subs, func(sub *subscription.Subscription, _ int) *subscription.Subscription {
		return copySubscription(sub)
	}), nil
}

func (s *InMemorySubscriptionStore) Count(ctx context.Context, filter *types.SubscriptionFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, filter, subscriptionFilterFn)
}

func (s *InMemorySubscriptionStore) Upsert(ctx context.Context, sub *subscription.Subscription) (*subscription.Subscription, error) {
	return s.upsert(sub, func(existing *subscription.Subscription) *subscription.Subscription {
		stored := copySubscription(sub)
		stored.ID = existing.ID
		stored.CreatedAt = existing.CreatedAt
		return stored
	})
}

func (s *InMemorySubscriptionStore) SyncUpsert(ctx context.Context, sub *subscription.Subscription) (*subscription.Subscription, error) {
	return s.upsert(sub, func(existing *subscription.Subscription) *subscription.Subscription {
		return subscription.MergeSynced(existing, sub)
	})
}

// upsert keys on the external id; merge decides the stored row when one exists
func (s *InMemorySubscriptionStore) upsert(
	sub *subscription.Subscription,
	merge func(existing *subscription.Subscription) *subscription.Subscription,
) (*subscription.Subscription, error) {
	if sub == nil {
		return nil, ierr.NewError("subscription cannot be nil").Mark(ierr.ErrValidation)
	}

	var stored *subscription.Subscription
	err := s.Mutate(func(items map[string]*subscription.Subscription) error {
		for _, existing := range items {
			if existing.ExternalSubscriptionID == sub.ExternalSubscriptionID {
				stored = merge(existing)
				items[stored.ID] = stored
				return nil
			}
		}
		stored = copySubscription(sub)
		items[stored.ID] = stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return copySubscription(stored), nil
}

func (s *InMemorySubscriptionStore) Update(ctx context.Context, sub *subscription.Subscription) (*subscription.Subscription, error) {
	if sub == nil {
		return nil, ierr.NewError("subscription cannot be nil").Mark(ierr.ErrValidation)
	}
	if err := s.InMemoryStore.Update(ctx, sub.ID, copySubscription(sub)); err != nil {
		return nil, subscriptionNotFound("id", sub.ID)
	}
	return copySubscription(sub), nil
}
