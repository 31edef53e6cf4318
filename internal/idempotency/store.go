package idempotency

import (
	"context"
	"time"

	"github.com/subsync/subsync/internal/cache"
	"github.com/subsync/subsync/internal/domain/events"
	ierr "github.com/subsync/subsync/internal/errors"
	"github.com/subsync/subsync/internal/logger"
)

// positiveTTL bounds how long a processed id is answered from memory
const positiveTTL = 24 * time.Hour

// Store records which webhook events have already been handled.
// The processed events table is the source of truth; the cache only remembers positive answers.
type Store interface {
	HasProcessed(ctx context.Context, eventID string) (bool, error)
	// MarkProcessed returns an error marked ierr.ErrDuplicateEvent when the id was already recorded
	MarkProcessed(ctx context.Context, eventID, eventType string) error
}

type store struct {
	repo   events.ProcessedEventRepository
	cache  cache.Cache
	logger *logger.Logger
}

func NewStore(repo events.ProcessedEventRepository, c cache.Cache, logger *logger.Logger) Store {
	return &store{repo: repo, cache: c, logger: logger}
}

func (s *store) HasProcessed(ctx context.Context, eventID string) (bool, error) {
	key := cache.GenerateKey(cache.PrefixProcessedEvent, eventID)
	if s.cache != nil {
		if _, ok := s.cache.Get(ctx, key); ok {
			return true, nil
		}
	}

	exists, err := s.repo.Exists(ctx, eventID)
	if err != nil {
		return false, err
	}
	if exists && s.cache != nil {
		s.cache.Set(ctx, key, true, positiveTTL)
	}
	return exists, nil
}

func (s *store) MarkProcessed(ctx context.Context, eventID, eventType string) error {
	err := s.repo.Insert(ctx, events.NewProcessedEvent(eventID, eventType))
	if err != nil {
		if ierr.IsDuplicateKey(err) {
			s.rememberProcessed(ctx, eventID)
			return ierr.WithError(err).
				WithHintf("Event %s was already processed", eventID).
				Mark(ierr.ErrDuplicateEvent)
		}
		return err
	}

	s.rememberProcessed(ctx, eventID)
	s.logger.Debugw("marked event as processed", "event_id", eventID, "event_type", eventType)
	return nil
}

func (s *store) rememberProcessed(ctx context.Context, eventID string) {
	if s.cache == nil {
		return
	}
	s.cache.Set(ctx, cache.GenerateKey(cache.PrefixProcessedEvent, eventID), true, positiveTTL)
}
