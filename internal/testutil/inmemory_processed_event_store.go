package testutil

import (
	"context"

	"github.com/subsync/subsync/internal/domain/events"
	ierr "github.com/subsync/subsync/internal/errors"
)

var _ events.ProcessedEventRepository = (*InMemoryProcessedEventStore)(nil)

// InMemoryProcessedEventStore implements events.ProcessedEventRepository with an atomic insert-if-absent
type InMemoryProcessedEventStore struct {
	*InMemoryStore[*events.ProcessedEvent]
}

func NewInMemoryProcessedEventStore() *InMemoryProcessedEventStore {
	return &InMemoryProcessedEventStore{
		InMemoryStore: NewInMemoryStore[*events.ProcessedEvent](),
	}
}

func (s *InMemoryProcessedEventStore) Exists(ctx context.Context, eventID string) (bool, error) {
	_, err := s.InMemoryStore.Get(ctx, eventID)
	return err == nil, nil
}

func (s *InMemoryProcessedEventStore) Insert(ctx context.Context, event *events.ProcessedEvent) error {
	if err := s.InMemoryStore.Create(ctx, event.EventID, event); err != nil {
		return ierr.WithError(err).
			WithHintf("Event %s was already recorded", event.EventID).
			Mark(ierr.ErrDuplicateKey)
	}
	return nil
}
