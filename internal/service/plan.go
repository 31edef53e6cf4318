package service

import (
	"context"
	"sync/atomic"

	"github.com/samber/lo"
	"github.com/sourcegraph/conc/pool"
	"github.com/subsync/subsync/internal/api/dto"
	"github.com/subsync/subsync/internal/cache"
	"github.com/subsync/subsync/internal/domain/plan"
	"github.com/subsync/subsync/internal/domain/processor"
	ierr "github.com/subsync/subsync/internal/errors"
	"github.com/subsync/subsync/internal/types"
)

// planSyncWorkers bounds concurrent plan upserts during a full import
const planSyncWorkers = 4

type PlanService interface {
	GetPlan(ctx context.Context, id string) (*dto.PlanResponse, error)
	GetPlans(ctx context.Context, filter *types.PlanFilter) (*dto.ListPlansResponse, error)
	// SyncFromProcessor imports every active processor price
	SyncFromProcessor(ctx context.Context) (*dto.SyncPlansResponse, error)
	UpsertFromPrice(ctx context.Context, price *processor.Price) (*plan.Plan, error)
	DeactivatePrice(ctx context.Context, priceID string) error
	// ApplyProduct copies product fields onto its plans; a deleted product deactivates them
	ApplyProduct(ctx context.Context, product *processor.Product) error
}

type planService struct {
	ServiceParams
}

func NewPlanService(params ServiceParams) PlanService {
	return &planService{ServiceParams: params}
}

func (s *planService) GetPlan(ctx context.Context, id string) (*dto.PlanResponse, error) {
	if id == "" {
		return nil, ierr.NewError("plan ID is required").
			WithHint("Please provide a valid plan ID").
			Mark(ierr.ErrValidation)
	}

	key := cache.GenerateKey(cache.PrefixPlan, id)
	if s.Cache != nil {
		if cached, ok := s.Cache.Get(ctx, key); ok {
			if p, ok := cached.(*plan.Plan); ok {
				return dto.NewPlanResponse(p), nil
			}
		}
	}

	p, err := s.PlanRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.Cache != nil {
		s.Cache.Set(ctx, key, p, 0)
	}
	return dto.NewPlanResponse(p), nil
}

func (s *planService) GetPlans(ctx context.Context, filter *types.PlanFilter) (*dto.ListPlansResponse, error) {
	if filter == nil {
		filter = types.NewPlanFilter()
	}

	if err := filter.Validate(); err != nil {
		return nil, err
	}

	plans, err := s.PlanRepo.List(ctx, filter)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to retrieve plans").
			Mark(ierr.ErrDatabase)
	}

	total, err := s.PlanRepo.Count(ctx, filter)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to count plans").
			Mark(ierr.ErrDatabase)
	}

	resp := types.NewListResponse(lo.Map(plans, func(p *plan.Plan, _ int) *dto.PlanResponse {
		return dto.NewPlanResponse(p)
	}), total, filter.GetLimit(), filter.GetOffset())
	return &resp, nil
}

func (s *planService) SyncFromProcessor(ctx context.Context) (*dto.SyncPlansResponse, error) {
	prices, err := s.Processor.ListPrices(ctx, processor.ListPricesParams{ActiveOnly: true})
	if err != nil {
		return nil, err
	}

	var synced atomic.Int64
	p := pool.New().WithContext(ctx).WithMaxGoroutines(planSyncWorkers)
	for _, price := range prices {
		p.Go(func(ctx context.Context) error {
			if _, err := s.UpsertFromPrice(ctx, price); err != nil {
				return err
			}
			synced.Add(1)
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		s.Logger.WithContext(ctx).Errorw("plan sync stopped early",
			"synced", synced.Load(),
			"total", len(prices),
			"error", err,
		)
		return nil, err
	}

	s.Logger.WithContext(ctx).Infow("plans synced from processor", "synced", synced.Load())
	return &dto.SyncPlansResponse{
		Message: "Plans synced successfully",
		Synced:  int(synced.Load()),
	}, nil
}

func (s *planService) UpsertFromPrice(ctx context.Context, price *processor.Price) (*plan.Plan, error) {
	if price == nil || price.ID == "" {
		return nil, ierr.NewError("price id is required").
			WithHint("Price payload is missing its id").
			Mark(ierr.ErrValidation)
	}

	product, err := price.Product.Resolve(ctx, func(ctx context.Context, id string) (processor.Product, error) {
		p, err := s.Processor.RetrieveProduct(ctx, id)
		if err != nil {
			return processor.Product{}, err
		}
		return *p, nil
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	p := &plan.Plan{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PLAN),
		ProductID:   product.ID,
		PriceID:     price.ID,
		Name:        lo.CoalesceOrEmpty(product.Name, price.Nickname),
		Description: product.Description,
		Amount:      price.UnitAmount,
		Currency:    price.Currency,
		Active:      price.Active && !price.Deleted,
		Type:        price.Type,
		BaseModel:   types.BaseModel{CreatedAt: now, UpdatedAt: now},
	}
	if price.Recurring != nil {
		p.Interval = price.Recurring.Interval
		p.TrialPeriodDays = price.Recurring.TrialPeriodDays
	}

	stored, err := s.PlanRepo.Upsert(ctx, p)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to save plan").
			Mark(ierr.ErrPersistence)
	}
	s.invalidate(ctx)

	s.Logger.WithContext(ctx).Debugw("plan upserted from price",
		"plan_id", stored.ID,
		"price_id", stored.PriceID,
		"product_id", stored.ProductID,
	)
	return stored, nil
}

func (s *planService) DeactivatePrice(ctx context.Context, priceID string) error {
	if err := s.PlanRepo.DeactivatePrice(ctx, priceID); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to deactivate plan").
			Mark(ierr.ErrPersistence)
	}
	s.invalidate(ctx)

	s.Logger.WithContext(ctx).Infow("plan deactivated", "price_id", priceID)
	return nil
}

func (s *planService) ApplyProduct(ctx context.Context, product *processor.Product) error {
	if product == nil || product.ID == "" {
		return ierr.NewError("product id is required").
			WithHint("Product payload is missing its id").
			Mark(ierr.ErrValidation)
	}

	active := product.Active && !product.Deleted
	rows, err := s.PlanRepo.UpdateProduct(ctx, product.ID, product.Name, product.Description, active)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update plans").
			Mark(ierr.ErrPersistence)
	}
	s.invalidate(ctx)

	if rows == 0 {
		// prices of a new product arrive as their own events
		s.Logger.WithContext(ctx).Debugw("no plans for product yet", "product_id", product.ID)
		return nil
	}

	s.Logger.WithContext(ctx).Infow("plans updated from product",
		"product_id", product.ID,
		"plans", rows,
		"active", active,
	)
	return nil
}

func (s *planService) invalidate(ctx context.Context) {
	if s.Cache != nil {
		s.Cache.DeleteByPrefix(ctx, cache.PrefixPlan)
	}
}
