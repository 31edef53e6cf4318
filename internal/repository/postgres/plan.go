package postgres

import (
	"context"
	"time"

	"github.com/subsync/subsync/internal/domain/plan"
	"github.com/subsync/subsync/internal/logger"
	"github.com/subsync/subsync/internal/postgres"
	"github.com/subsync/subsync/internal/types"
)

type planRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewPlanRepository(db *postgres.DB, logger *logger.Logger) plan.Repository {
	return &planRepository{db: db, logger: logger}
}

const planColumns = `id, product_id, price_id, name, description, interval, amount, currency,
	trial_period_days, active, type, created_at, updated_at`

func (r *planRepository) Get(ctx context.Context, id string) (*plan.Plan, error) {
	return r.getOne(ctx, "id", id)
}

func (r *planRepository) GetByPriceID(ctx context.Context, priceID string) (*plan.Plan, error) {
	return r.getOne(ctx, "price_id", priceID)
}

func (r *planRepository) getOne(ctx context.Context, column, value string) (*plan.Plan, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	var p plan.Plan
	query := `SELECT ` + planColumns + ` FROM plans WHERE ` + column + ` = $1`
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &p, query, value); err != nil {
		return nil, wrapError(err, "Plan", map[string]any{column: value})
	}
	return &p, nil
}

func (r *planRepository) filter(filter *types.PlanFilter) *whereBuilder {
	w := &whereBuilder{}
	if filter == nil {
		return w
	}
	if filter.ProductID != "" {
		w.add("product_id = ?", filter.ProductID)
	}
	if filter.ActiveOnly {
		w.add("active = ?", true)
	}
	return w
}

func (r *planRepository) List(ctx context.Context, filter *types.PlanFilter) ([]*plan.Plan, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	if filter == nil {
		filter = types.NewPlanFilter()
	}
	w := r.filter(filter)
	query := `SELECT ` + planColumns + ` FROM plans` + w.String() + ` ORDER BY amount ASC, created_at ASC`
	query += w.page(filter.GetLimit(), filter.GetOffset())

	plans := make([]*plan.Plan, 0)
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &plans, query, w.args...); err != nil {
		return nil, wrapError(err, "Plan", nil)
	}
	return plans, nil
}

func (r *planRepository) Count(ctx context.Context, filter *types.PlanFilter) (int, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	w := r.filter(filter)
	var count int
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &count, `SELECT COUNT(*) FROM plans`+w.String(), w.args...); err != nil {
		return 0, wrapError(err, "Plan", nil)
	}
	return count, nil
}

func (r *planRepository) Upsert(ctx context.Context, p *plan.Plan) (*plan.Plan, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = p.UpdatedAt
	}

	query := `INSERT INTO plans (` + planColumns + `) VALUES (
			:id, :product_id, :price_id, :name, :description, :interval, :amount, :currency,
			:trial_period_days, :active, :type, :created_at, :updated_at)
		ON CONFLICT (price_id) DO UPDATE SET
			product_id = EXCLUDED.product_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			interval = EXCLUDED.interval,
			amount = EXCLUDED.amount,
			currency = EXCLUDED.currency,
			trial_period_days = EXCLUDED.trial_period_days,
			active = EXCLUDED.active,
			type = EXCLUDED.type,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + planColumns

	var stored plan.Plan
	if err := namedGet(ctx, r.db.GetQuerier(ctx), &stored, query, p); err != nil {
		r.logger.Errorw("failed to upsert plan", "price_id", p.PriceID, "error", err)
		return nil, wrapError(err, "Plan", map[string]any{"price_id": p.PriceID})
	}
	return &stored, nil
}

func (r *planRepository) UpdateProduct(ctx context.Context, productID, name, description string, active bool) (int64, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	query := `UPDATE plans SET name = $1, description = $2, active = $3, updated_at = $4 WHERE product_id = $5`
	res, err := r.db.GetQuerier(ctx).ExecContext(ctx, query, name, description, active, time.Now().UTC(), productID)
	if err != nil {
		return 0, wrapError(err, "Plan", map[string]any{"product_id": productID})
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrapError(err, "Plan", map[string]any{"product_id": productID})
	}
	return n, nil
}

func (r *planRepository) DeactivatePrice(ctx context.Context, priceID string) error {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	query := `UPDATE plans SET active = FALSE, updated_at = $1 WHERE price_id = $2`
	if _, err := r.db.GetQuerier(ctx).ExecContext(ctx, query, time.Now().UTC(), priceID); err != nil {
		return wrapError(err, "Plan", map[string]any{"price_id": priceID})
	}
	return nil
}
