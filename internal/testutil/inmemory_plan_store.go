package testutil

import (
	"context"
	"time"

	"github.com/subsync/subsync/internal/domain/plan"
	ierr "github.com/subsync/subsync/internal/errors"
	"github.com/subsync/subsync/internal/types"
)

var _ plan.Repository = (*InMemoryPlanStore)(nil)

// InMemoryPlanStore implements plan.Repository
type InMemoryPlanStore struct {
	*InMemoryStore[*plan.Plan]
}

// NewInMemoryPlanStore creates a new in-memory plan store
func NewInMemoryPlanStore() *InMemoryPlanStore {
	return &InMemoryPlanStore{
		InMemoryStore: NewInMemoryStore[*plan.Plan](),
	}
}

// planFilterFn implements filtering logic for plans
func planFilterFn(ctx context.Context, p *plan.Plan, filter interface{}) bool {
	if p == nil {
		return false
	}

	f, ok := filter.(*types.PlanFilter)
	if !ok || f == nil {
		return true
	}

	if f.ProductID != "" && p.ProductID != f.ProductID {
		return false
	}

	if f.ActiveOnly && !p.Active {
		return false
	}

	return true
}

// planSortFn orders by amount, cheapest first
func planSortFn(i, j *plan.Plan) bool {
	if i == nil || j == nil {
		return false
	}
	if i.Amount == j.Amount {
		return i.CreatedAt.Before(j.CreatedAt)
	}
	return i.Amount < j.Amount
}

func copyPlan(p *plan.Plan) *plan.Plan {
	c := *p
	return &c
}

func (s *InMemoryPlanStore) Get(ctx context.Context, id string) (*plan.Plan, error) {
	p, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copyPlan(p), nil
}

func (s *InMemoryPlanStore) GetByPriceID(ctx context.Context, priceID string) (*plan.Plan, error) {
	p, ok := s.Find(func(item *plan.Plan) bool { return item.PriceID == priceID })
	if !ok {
		return nil, ierr.NewError("plan not found").
			WithHintf("Plan for price %s was not found", priceID).
			Mark(ierr.ErrNotFound)
	}
	return copyPlan(p), nil
}

func (s *InMemoryPlanStore) List(ctx context.Context, filter *types.PlanFilter) ([]*plan.Plan, error) {
	if filter == nil {
		filter = types.NewPlanFilter()
	}
	return s.InMemoryStore.List(ctx, filter, planFilterFn, planSortFn)
}

func (s *InMemoryPlanStore) Count(ctx context.Context, filter *types.PlanFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, filter, planFilterFn)
}

func (s *InMemoryPlanStore) Upsert(ctx context.Context, p *plan.Plan) (*plan.Plan, error) {
	var stored *plan.Plan
	err := s.Mutate(func(items map[string]*plan.Plan) error {
		for _, existing := range items {
			if existing.PriceID == p.PriceID {
				stored = copyPlan(p)
				stored.ID = existing.ID
				stored.CreatedAt = existing.CreatedAt
				items[stored.ID] = stored
				return nil
			}
		}
		stored = copyPlan(p)
		items[stored.ID] = stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return copyPlan(stored), nil
}

func (s *InMemoryPlanStore) UpdateProduct(ctx context.Context, productID, name, description string, active bool) (int64, error) {
	var touched int64
	err := s.Mutate(func(items map[string]*plan.Plan) error {
		for id, existing := range items {
			if existing.ProductID != productID {
				continue
			}
			updated := copyPlan(existing)
			updated.Name = name
			updated.Description = description
			updated.Active = active
			updated.UpdatedAt = time.Now().UTC()
			items[id] = updated
			touched++
		}
		return nil
	})
	return touched, err
}

func (s *InMemoryPlanStore) DeactivatePrice(ctx context.Context, priceID string) error {
	return s.Mutate(func(items map[string]*plan.Plan) error {
		for id, existing := range items {
			if existing.PriceID == priceID {
				updated := copyPlan(existing)
				updated.Active = false
				updated.UpdatedAt = time.Now().UTC()
				items[id] = updated
			}
		}
		return nil
	})
}
