package postgres

import (
	"context"

	"github.com/subsync/subsync/internal/domain/events"
	ierr "github.com/subsync/subsync/internal/errors"
	"github.com/subsync/subsync/internal/logger"
	"github.com/subsync/subsync/internal/postgres"
)

type processedEventRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewProcessedEventRepository(db *postgres.DB, logger *logger.Logger) events.ProcessedEventRepository {
	return &processedEventRepository{db: db, logger: logger}
}

func (r *processedEventRepository) Exists(ctx context.Context, eventID string) (bool, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM processed_events WHERE event_id = $1)`
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &exists, query, eventID); err != nil {
		return false, wrapError(err, "Processed event", map[string]any{"event_id": eventID})
	}
	return exists, nil
}

// Insert claims the event id; a concurrent or repeated claim affects no row
func (r *processedEventRepository) Insert(ctx context.Context, event *events.ProcessedEvent) error {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	query := `INSERT INTO processed_events (event_id, type, received_at) VALUES ($1, $2, $3)
		ON CONFLICT (event_id) DO NOTHING`
	res, err := r.db.GetQuerier(ctx).ExecContext(ctx, query, event.EventID, event.Type, event.ReceivedAt)
	if err != nil {
		return wrapError(err, "Processed event", map[string]any{"event_id": event.EventID})
	}

	n, err := res.RowsAffected()
	if err != nil {
		return wrapError(err, "Processed event", map[string]any{"event_id": event.EventID})
	}
	if n == 0 {
		return ierr.NewError("event already processed").
			WithHintf("Event %s was already processed", event.EventID).
			WithReportableDetails(map[string]any{"event_id": event.EventID}).
			Mark(ierr.ErrDuplicateKey)
	}
	return nil
}
