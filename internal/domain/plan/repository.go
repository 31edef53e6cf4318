package plan

import (
	"context"

	"github.com/subsync/subsync/internal/types"
)

type Repository interface {
	Get(ctx context.Context, id string) (*Plan, error)
	GetByPriceID(ctx context.Context, priceID string) (*Plan, error)
	List(ctx context.Context, filter *types.PlanFilter) ([]*Plan, error)
	Count(ctx context.Context, filter *types.PlanFilter) (int, error)
	// Upsert is keyed by PriceID
	Upsert(ctx context.Context, p *Plan) (*Plan, error)
	// UpdateProduct copies product level fields onto every plan of the product and returns the rows touched
	UpdateProduct(ctx context.Context, productID, name, description string, active bool) (int64, error)
	DeactivatePrice(ctx context.Context, priceID string) error
}
