package postgres

import (
	"context"
	"time"

	"github.com/subsync/subsync/internal/domain/refund"
	"github.com/subsync/subsync/internal/logger"
	"github.com/subsync/subsync/internal/postgres"
)

type refundRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewRefundRepository(db *postgres.DB, logger *logger.Logger) refund.Repository {
	return &refundRepository{db: db, logger: logger}
}

const refundColumns = `id, external_refund_id, customer_id, subscription_id, amount, amount_paid, currency,
	charge_ref, reason, status, metadata, created_at, updated_at`

const refundValues = `:id, :external_refund_id, :customer_id, :subscription_id, :amount, :amount_paid, :currency,
	:charge_ref, :reason, :status, :metadata, :created_at, :updated_at`

func (r *refundRepository) Create(ctx context.Context, rf *refund.Refund) error {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	query := `INSERT INTO refunds (` + refundColumns + `) VALUES (` + refundValues + `)`
	if _, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, rf); err != nil {
		r.logger.Errorw("failed to create refund record", "refund_id", rf.ID, "customer_id", rf.CustomerID, "error", err)
		return wrapError(err, "Refund", map[string]any{"refund_id": rf.ID})
	}
	return nil
}

// UpsertByExternalID keeps the stored attribution, reason and paid amount when the row already exists
func (r *refundRepository) UpsertByExternalID(ctx context.Context, rf *refund.Refund) (*refund.Refund, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	if rf.UpdatedAt.IsZero() {
		rf.UpdatedAt = time.Now().UTC()
	}
	if rf.CreatedAt.IsZero() {
		rf.CreatedAt = rf.UpdatedAt
	}

	query := `INSERT INTO refunds (` + refundColumns + `) VALUES (` + refundValues + `)
		ON CONFLICT (external_refund_id) WHERE external_refund_id IS NOT NULL DO UPDATE SET
			amount = EXCLUDED.amount,
			currency = EXCLUDED.currency,
			status = EXCLUDED.status,
			charge_ref = COALESCE(EXCLUDED.charge_ref, refunds.charge_ref),
			subscription_id = COALESCE(refunds.subscription_id, EXCLUDED.subscription_id),
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + refundColumns

	var stored refund.Refund
	if err := namedGet(ctx, r.db.GetQuerier(ctx), &stored, query, rf); err != nil {
		return nil, wrapError(err, "Refund", map[string]any{"external_refund_id": rf.ExternalRefundID})
	}
	return &stored, nil
}

func (r *refundRepository) ListBySubscription(ctx context.Context, subscriptionID string) ([]*refund.Refund, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	refunds := make([]*refund.Refund, 0)
	query := `SELECT ` + refundColumns + ` FROM refunds WHERE subscription_id = $1 ORDER BY created_at ASC`
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &refunds, query, subscriptionID); err != nil {
		return nil, wrapError(err, "Refund", map[string]any{"subscription_id": subscriptionID})
	}
	return refunds, nil
}
