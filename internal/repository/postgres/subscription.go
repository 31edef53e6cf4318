package postgres

import (
	"context"
	"time"

	"github.com/samber/lo"
	"github.com/subsync/subsync/internal/domain/subscription"
	"github.com/subsync/subsync/internal/logger"
	"github.com/subsync/subsync/internal/postgres"
	"github.com/subsync/subsync/internal/types"
)

type subscriptionRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewSubscriptionRepository(db *postgres.DB, logger *logger.Logger) subscription.Repository {
	return &subscriptionRepository{db: db, logger: logger}
}

const subscriptionColumns = `id, customer_id, external_subscription_id, price_id, status, cancel_at_period_end,
	current_period_start, current_period_end, scheduled_downgrade_price_id, scheduled_downgrade_date,
	schedule_id, started_at, ended_at, cancellation_date, canceled_at, metadata, created_at, updated_at`

const subscriptionValues = `:id, :customer_id, :external_subscription_id, :price_id, :status, :cancel_at_period_end,
	:current_period_start, :current_period_end, :scheduled_downgrade_price_id, :scheduled_downgrade_date,
	:schedule_id, :started_at, :ended_at, :cancellation_date, :canceled_at, :metadata, :created_at, :updated_at`

func (r *subscriptionRepository) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	return r.getOne(ctx, "get", "id", id)
}

func (r *subscriptionRepository) GetByExternalID(ctx context.Context, externalSubscriptionID string) (*subscription.Subscription, error) {
	return r.getOne(ctx, "get_by_external_id", "external_subscription_id", externalSubscriptionID)
}

func (r *subscriptionRepository) getOne(ctx context.Context, op, column, value string) (*subscription.Subscription, error) {
	finish, ctx := r.db.StartSpan(ctx, "subscription", op, map[string]interface{}{column: value})
	defer finish()
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	var sub subscription.Subscription
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE ` + column + ` = $1`
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &sub, query, value); err != nil {
		return nil, wrapError(err, "Subscription", map[string]any{column: value})
	}
	return &sub, nil
}

func (r *subscriptionRepository) GetInForceByCustomer(ctx context.Context, customerID string) (*subscription.Subscription, error) {
	finish, ctx := r.db.StartSpan(ctx, "subscription", "get_in_force_by_customer", map[string]interface{}{"customer_id": customerID})
	defer finish()
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	w := &whereBuilder{}
	w.add("customer_id = ?", customerID)
	w.in("status", lo.Map(types.InForceStatuses, func(s types.SubscriptionStatus, _ int) string { return string(s) }))

	var sub subscription.Subscription
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions` + w.String() + ` ORDER BY created_at DESC LIMIT 1`
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &sub, query, w.args...); err != nil {
		return nil, wrapError(err, "Subscription", map[string]any{"customer_id": customerID})
	}
	return &sub, nil
}

func (r *subscriptionRepository) filter(filter *types.SubscriptionFilter) *whereBuilder {
	w := &whereBuilder{}
	if filter == nil {
		return w
	}
	if filter.CustomerID != "" {
		w.add("customer_id = ?", filter.CustomerID)
	}
	w.in("status", lo.Map(filter.Statuses, func(s types.SubscriptionStatus, _ int) string { return string(s) }))
	return w
}

func (r *subscriptionRepository) List(ctx context.Context, filter *types.SubscriptionFilter) ([]*subscription.Subscription, error) {
	finish, ctx := r.db.StartSpan(ctx, "subscription", "list", nil)
	defer finish()
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	if filter == nil {
		filter = types.NewSubscriptionFilter()
	}
	w := r.filter(filter)
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions` + w.String() + ` ORDER BY created_at DESC`
	query += w.page(filter.GetLimit(), filter.GetOffset())

	subs := make([]*subscription.Subscription, 0)
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &subs, query, w.args...); err != nil {
		return nil, wrapError(err, "Subscription", nil)
	}
	return subs, nil
}

func (r *subscriptionRepository) Count(ctx context.Context, filter *types.SubscriptionFilter) (int, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	w := r.filter(filter)
	var count int
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &count, `SELECT COUNT(*) FROM subscriptions`+w.String(), w.args...); err != nil {
		return 0, wrapError(err, "Subscription", nil)
	}
	return count, nil
}

func (r *subscriptionRepository) Upsert(ctx context.Context, sub *subscription.Subscription) (*subscription.Subscription, error) {
	query := `INSERT INTO subscriptions (` + subscriptionColumns + `) VALUES (` + subscriptionValues + `)
		ON CONFLICT (external_subscription_id) DO UPDATE SET
			customer_id = EXCLUDED.customer_id,
			price_id = EXCLUDED.price_id,
			status = EXCLUDED.status,
			cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end = EXCLUDED.current_period_end,
			scheduled_downgrade_price_id = EXCLUDED.scheduled_downgrade_price_id,
			scheduled_downgrade_date = EXCLUDED.scheduled_downgrade_date,
			schedule_id = EXCLUDED.schedule_id,
			started_at = EXCLUDED.started_at,
			ended_at = EXCLUDED.ended_at,
			cancellation_date = EXCLUDED.cancellation_date,
			canceled_at = EXCLUDED.canceled_at,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + subscriptionColumns
	return r.write(ctx, "upsert", query, sub)
}

// SyncUpsert applies processor derived columns. The schedule id always follows the processor;
// downgrade bookkeeping is kept only while that id is unchanged.
func (r *subscriptionRepository) SyncUpsert(ctx context.Context, sub *subscription.Subscription) (*subscription.Subscription, error) {
	query := `INSERT INTO subscriptions (` + subscriptionColumns + `) VALUES (` + subscriptionValues + `)
		ON CONFLICT (external_subscription_id) DO UPDATE SET
			customer_id = EXCLUDED.customer_id,
			price_id = EXCLUDED.price_id,
			status = EXCLUDED.status,
			cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end = EXCLUDED.current_period_end,
			started_at = EXCLUDED.started_at,
			ended_at = EXCLUDED.ended_at,
			canceled_at = EXCLUDED.canceled_at,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at,
			schedule_id = NULLIF(EXCLUDED.schedule_id, ''),
			scheduled_downgrade_price_id = CASE
				WHEN COALESCE(EXCLUDED.schedule_id, '') = '' THEN NULL
				WHEN subscriptions.schedule_id IS DISTINCT FROM EXCLUDED.schedule_id THEN NULL
				ELSE subscriptions.scheduled_downgrade_price_id
			END,
			scheduled_downgrade_date = CASE
				WHEN COALESCE(EXCLUDED.schedule_id, '') = '' THEN NULL
				WHEN subscriptions.schedule_id IS DISTINCT FROM EXCLUDED.schedule_id THEN NULL
				ELSE subscriptions.scheduled_downgrade_date
			END
		RETURNING ` + subscriptionColumns
	return r.write(ctx, "sync_upsert", query, sub)
}

func (r *subscriptionRepository) Update(ctx context.Context, sub *subscription.Subscription) (*subscription.Subscription, error) {
	query := `UPDATE subscriptions SET
			customer_id = :customer_id,
			external_subscription_id = :external_subscription_id,
			price_id = :price_id,
			status = :status,
			cancel_at_period_end = :cancel_at_period_end,
			current_period_start = :current_period_start,
			current_period_end = :current_period_end,
			scheduled_downgrade_price_id = :scheduled_downgrade_price_id,
			scheduled_downgrade_date = :scheduled_downgrade_date,
			schedule_id = :schedule_id,
			started_at = :started_at,
			ended_at = :ended_at,
			cancellation_date = :cancellation_date,
			canceled_at = :canceled_at,
			metadata = :metadata,
			updated_at = :updated_at
		WHERE id = :id
		RETURNING ` + subscriptionColumns
	return r.write(ctx, "update", query, sub)
}

func (r *subscriptionRepository) write(ctx context.Context, op, query string, sub *subscription.Subscription) (*subscription.Subscription, error) {
	finish, ctx := r.db.StartSpan(ctx, "subscription", op, map[string]interface{}{
		"subscription_id":          sub.ID,
		"external_subscription_id": sub.ExternalSubscriptionID,
	})
	defer finish()
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	if sub.UpdatedAt.IsZero() {
		sub.UpdatedAt = time.Now().UTC()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = sub.UpdatedAt
	}

	var stored subscription.Subscription
	if err := namedGet(ctx, r.db.GetQuerier(ctx), &stored, query, sub); err != nil {
		r.logger.Errorw("failed to write subscription",
			"operation", op,
			"subscription_id", sub.ID,
			"external_subscription_id", sub.ExternalSubscriptionID,
			"error", err,
		)
		return nil, wrapError(err, "Subscription", map[string]any{
			"subscription_id":          sub.ID,
			"external_subscription_id": sub.ExternalSubscriptionID,
		})
	}

	r.logger.Debugw("wrote subscription",
		"operation", op,
		"subscription_id", stored.ID,
		"status", stored.Status,
	)
	return &stored, nil
}
