package service

import (
	"context"
	"time"

	"github.com/samber/lo"
	"github.com/subsync/subsync/internal/domain/processor"
	"github.com/subsync/subsync/internal/domain/subscription"
	ierr "github.com/subsync/subsync/internal/errors"
	"github.com/subsync/subsync/internal/types"
)

// ScheduleManager defers a price change to the end of the current period using a processor phase schedule
type ScheduleManager interface {
	// ScheduleDowngrade makes newPriceID take over at the end of the current period and
	// records the schedule on the local subscription
	ScheduleDowngrade(ctx context.Context, sub *subscription.Subscription, newPriceID string) (*subscription.Subscription, error)
}

type scheduleManager struct {
	ServiceParams
}

func NewScheduleManager(params ServiceParams) ScheduleManager {
	return &scheduleManager{ServiceParams: params}
}

func (s *scheduleManager) ScheduleDowngrade(ctx context.Context, sub *subscription.Subscription, newPriceID string) (*subscription.Subscription, error) {
	if sub.CurrentPeriodEnd == nil {
		return nil, ierr.NewError("subscription has no current period end").
			WithHint("This subscription has no billing period to schedule against").
			WithReportableDetails(map[string]any{"subscription_id": sub.ID}).
			Mark(ierr.ErrNotSchedulable)
	}

	log := s.Logger.WithContext(ctx)
	now := s.now()

	scheduleID := lo.FromPtr(sub.ScheduleID)
	if scheduleID == "" {
		// the schedule may have been created on the processor dashboard
		live, err := s.Processor.RetrieveSubscription(ctx, sub.ExternalSubscriptionID, false)
		if err != nil {
			return nil, downgradeError(err)
		}
		scheduleID = live.ScheduleID
	}

	var (
		sched *processor.Schedule
		err   error
	)
	if scheduleID == "" {
		sched, err = s.createSchedule(ctx, sub, newPriceID, now)
	} else {
		sched, err = s.appendPhase(ctx, sub, scheduleID, newPriceID, now)
	}
	if err != nil {
		return nil, downgradeError(err)
	}

	sub.ScheduleID = lo.ToPtr(sched.ID)
	sub.ScheduledDowngradePriceID = lo.ToPtr(newPriceID)
	sub.ScheduledDowngradeDate = lo.ToPtr(*sub.CurrentPeriodEnd)
	sub.UpdatedAt = now

	stored, err := s.SubRepo.Update(ctx, sub)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to save scheduled downgrade").
			Mark(ierr.ErrPersistence)
	}

	log.Infow("downgrade scheduled",
		"subscription_id", stored.ID,
		"schedule_id", sched.ID,
		"price_id", newPriceID,
		"phases", len(sched.Phases),
		"effective_at", stored.ScheduledDowngradeDate,
	)
	return stored, nil
}

// createSchedule builds a two phase schedule: the current price until the period ends, then newPriceID
func (s *scheduleManager) createSchedule(ctx context.Context, sub *subscription.Subscription, newPriceID string, now time.Time) (*processor.Schedule, error) {
	created, err := s.Processor.CreateScheduleFromSubscription(ctx, sub.ExternalSubscriptionID)
	if err != nil {
		return nil, err
	}

	currentPrice := sub.PriceID
	if len(created.Phases) > 0 && created.Phases[0].PriceID != "" {
		currentPrice = created.Phases[0].PriceID
	}
	periodEnd := sub.CurrentPeriodEnd.Unix()

	return s.Processor.UpdateSchedule(ctx, processor.UpdateScheduleParams{
		ScheduleID:  created.ID,
		EndBehavior: types.ScheduleEndBehaviorRelease,
		StartNow:    true,
		Phases: []processor.Phase{
			{
				PriceID:   currentPrice,
				StartDate: now.Unix(),
				EndDate:   periodEnd,
			},
			{
				PriceID:           newPriceID,
				StartDate:         periodEnd,
				ProrationBehavior: types.ProrationBehaviorNone,
			},
		},
	})
}

// appendPhase resubmits every phase of the schedule and adds newPriceID starting where the
// current phase ends. The processor replaces the whole list on update.
func (s *scheduleManager) appendPhase(ctx context.Context, sub *subscription.Subscription, scheduleID, newPriceID string, now time.Time) (*processor.Schedule, error) {
	sched, err := s.Processor.RetrieveSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	idx, ok := sched.CurrentPhase(now.Unix())
	if !ok {
		return nil, ierr.NewError("schedule has no phase covering the current time").
			WithHint("The downgrade schedule has expired, please try again later").
			WithReportableDetails(map[string]any{"schedule_id": scheduleID}).
			Mark(ierr.ErrNoCurrentPhase)
	}

	phases := make([]processor.Phase, len(sched.Phases), len(sched.Phases)+1)
	copy(phases, sched.Phases)

	current := &phases[idx]
	if current.EndDate == 0 {
		// open ended phase, close it at the period boundary
		current.EndDate = sub.CurrentPeriodEnd.Unix()
	}
	phases = append(phases, processor.Phase{
		PriceID:           newPriceID,
		StartDate:         current.EndDate,
		ProrationBehavior: types.ProrationBehaviorNone,
	})

	return s.Processor.UpdateSchedule(ctx, processor.UpdateScheduleParams{
		ScheduleID:  sched.ID,
		Phases:      phases,
		EndBehavior: types.ScheduleEndBehaviorRelease,
	})
}

// downgradeError turns processor rejections into a user correctable error
func downgradeError(err error) error {
	if ierr.IsInvalidRequest(err) {
		return ierr.WithError(err).
			WithHint("The payment processor rejected the downgrade, please check the requested price").
			Mark(ierr.ErrInvalidDowngradeRequest)
	}
	return err
}
