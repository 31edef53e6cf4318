package events

import "context"

// ProcessedEventRepository stores idempotency markers
type ProcessedEventRepository interface {
	Exists(ctx context.Context, eventID string) (bool, error)
	// Insert is an atomic insert-if-absent; an existing id yields an error marked ierr.ErrDuplicateKey
	Insert(ctx context.Context, event *ProcessedEvent) error
}
