package service

import (
	"context"
	"time"

	"github.com/samber/lo"
	"github.com/subsync/subsync/internal/domain/processor"
	"github.com/subsync/subsync/internal/domain/subscription"
	ierr "github.com/subsync/subsync/internal/errors"
	"github.com/subsync/subsync/internal/sentry"
	"github.com/subsync/subsync/internal/types"
)

// Synchronizer copies the processor view of a subscription onto the local mirror.
// It is the only path by which changes made outside this service reach the mirror.
type Synchronizer interface {
	SyncByExternalID(ctx context.Context, externalSubscriptionID string) (*subscription.Subscription, error)
}

type synchronizer struct {
	ServiceParams
}

func NewSynchronizer(params ServiceParams) Synchronizer {
	return &synchronizer{ServiceParams: params}
}

func (s *synchronizer) SyncByExternalID(ctx context.Context, externalSubscriptionID string) (*subscription.Subscription, error) {
	if externalSubscriptionID == "" {
		return nil, ierr.NewError("external subscription id is required").
			WithHint("Please provide a valid subscription id").
			Mark(ierr.ErrValidation)
	}

	span, ctx := s.Sentry.StartProcessorSpan(ctx, "sync_subscription", map[string]interface{}{
		"external_subscription_id": externalSubscriptionID,
	})
	defer sentry.FinishSpan(span)

	live, err := s.Processor.RetrieveSubscription(ctx, externalSubscriptionID, false)
	if err != nil {
		return nil, err
	}

	incoming := subscriptionFromProcessor(live, s.now())
	stored, err := s.SubRepo.SyncUpsert(ctx, incoming)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to save subscription").
			Mark(ierr.ErrPersistence)
	}

	s.Logger.WithContext(ctx).Infow("subscription synchronized",
		"subscription_id", stored.ID,
		"external_subscription_id", stored.ExternalSubscriptionID,
		"status", stored.Status,
		"price_id", stored.PriceID,
	)
	return stored, nil
}

// subscriptionFromProcessor maps processor state onto a new local record.
// Only processor derived fields are set; downgrade bookkeeping starts empty.
func subscriptionFromProcessor(live *processor.Subscription, now time.Time) *subscription.Subscription {
	item, _ := live.PrimaryItem()
	start, end := live.CurrentPeriod()

	return &subscription.Subscription{
		ID:                     types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		CustomerID:             live.CustomerID,
		ExternalSubscriptionID: live.ID,
		PriceID:                item.PriceID,
		Status:                 live.Status,
		CancelAtPeriodEnd:      live.CancelAtPeriodEnd,
		CurrentPeriodStart:     processor.Unix(start),
		CurrentPeriodEnd:       processor.Unix(end),
		ScheduleID:             lo.EmptyableToPtr(live.ScheduleID),
		StartedAt:              processor.Unix(live.StartDate),
		EndedAt:                processor.Unix(live.EndedAt),
		CanceledAt:             processor.Unix(live.CanceledAt),
		Metadata:               types.Metadata(lo.Assign(map[string]string{}, live.Metadata)),
		BaseModel:              types.BaseModel{CreatedAt: now, UpdatedAt: now},
	}
}

// applyProcessorState refreshes the processor derived fields of an existing record in place
func applyProcessorState(sub *subscription.Subscription, live *processor.Subscription, now time.Time) {
	item, _ := live.PrimaryItem()
	start, end := live.CurrentPeriod()

	if item.PriceID != "" {
		sub.PriceID = item.PriceID
	}
	sub.Status = live.Status
	sub.CancelAtPeriodEnd = live.CancelAtPeriodEnd
	sub.CurrentPeriodStart = processor.Unix(start)
	sub.CurrentPeriodEnd = processor.Unix(end)
	sub.Metadata = types.Metadata(lo.Assign(map[string]string{}, live.Metadata))
	sub.UpdatedAt = now
}
