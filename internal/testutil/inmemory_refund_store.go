package testutil

import (
	"context"
	"sort"

	"github.com/samber/lo"
	"github.com/subsync/subsync/internal/domain/refund"
)

var _ refund.Repository = (*InMemoryRefundStore)(nil)

// InMemoryRefundStore implements refund.Repository
type InMemoryRefundStore struct {
	*InMemoryStore[*refund.Refund]
}

func NewInMemoryRefundStore() *InMemoryRefundStore {
	return &InMemoryRefundStore{
		InMemoryStore: NewInMemoryStore[*refund.Refund](),
	}
}

func copyRefund(r *refund.Refund) *refund.Refund {
	c := *r
	return &c
}

func (s *InMemoryRefundStore) Create(ctx context.Context, r *refund.Refund) error {
	return s.InMemoryStore.Create(ctx, r.ID, copyRefund(r))
}

func (s *InMemoryRefundStore) UpsertByExternalID(ctx context.Context, r *refund.Refund) (*refund.Refund, error) {
	var stored *refund.Refund
	err := s.Mutate(func(items map[string]*refund.Refund) error {
		for id, existing := range items {
			if existing.ExternalRefundID == nil || lo.FromPtr(existing.ExternalRefundID) != lo.FromPtr(r.ExternalRefundID) {
				continue
			}
			updated := copyRefund(existing)
			updated.Amount = r.Amount
			updated.Currency = r.Currency
			updated.Status = r.Status
			updated.Metadata = r.Metadata
			updated.UpdatedAt = r.UpdatedAt
			if r.ChargeRef != nil {
				updated.ChargeRef = r.ChargeRef
			}
			if updated.SubscriptionID == nil {
				updated.SubscriptionID = r.SubscriptionID
			}
			items[id] = updated
			stored = updated
			return nil
		}
		stored = copyRefund(r)
		items[stored.ID] = stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return copyRefund(stored), nil
}

func (s *InMemoryRefundStore) ListBySubscription(ctx context.Context, subscriptionID string) ([]*refund.Refund, error) {
	refunds, err := s.InMemoryStore.List(ctx, nil, func(_ context.Context, r *refund.Refund, _ interface{}) bool {
		return lo.FromPtr(r.SubscriptionID) == subscriptionID
	}, nil)
	if err != nil {
		return nil, err
	}
	sort.Slice(refunds, func(i, j int) bool { return refunds[i].CreatedAt.Before(refunds[j].CreatedAt) })
	return refunds, nil
}
