package stripe

import (
	"context"

	"github.com/stripe/stripe-go/v82"
	"github.com/subsync/subsync/internal/domain/processor"
)

func (c *Client) CreateScheduleFromSubscription(ctx context.Context, subscriptionID string) (*processor.Schedule, error) {
	params := &stripe.SubscriptionScheduleCreateParams{
		FromSubscription: stripe.String(subscriptionID),
	}

	// a second create for the same subscription is rejected by stripe, so no retry
	var out *stripe.SubscriptionSchedule
	err := c.call(ctx, "create_schedule", noRetry, func(ctx context.Context) error {
		var err error
		out, err = c.api.V1SubscriptionSchedules.Create(ctx, params)
		return err
	})
	if err != nil {
		return nil, mapError("create_schedule", err, map[string]any{"subscription_id": subscriptionID})
	}
	return toSchedule(out), nil
}

func (c *Client) RetrieveSchedule(ctx context.Context, id string) (*processor.Schedule, error) {
	var out *stripe.SubscriptionSchedule
	err := c.call(ctx, "retrieve_schedule", retrySafe, func(ctx context.Context) error {
		var err error
		out, err = c.api.V1SubscriptionSchedules.Retrieve(ctx, id, nil)
		return err
	})
	if err != nil {
		return nil, mapError("retrieve_schedule", err, map[string]any{"schedule_id": id})
	}
	return toSchedule(out), nil
}

// UpdateSchedule replaces the whole phase list; replaying the same list is harmless so it retries
func (c *Client) UpdateSchedule(ctx context.Context, req processor.UpdateScheduleParams) (*processor.Schedule, error) {
	params := &stripe.SubscriptionScheduleUpdateParams{
		Phases:      toPhaseParams(req),
		EndBehavior: stripe.String(string(req.EndBehavior)),
	}

	var out *stripe.SubscriptionSchedule
	err := c.call(ctx, "update_schedule", retrySafe, func(ctx context.Context) error {
		var err error
		out, err = c.api.V1SubscriptionSchedules.Update(ctx, req.ScheduleID, params)
		return err
	})
	if err != nil {
		return nil, mapError("update_schedule", err, map[string]any{
			"schedule_id": req.ScheduleID,
			"phase_count": len(req.Phases),
		})
	}
	return toSchedule(out), nil
}

func toPhaseParams(req processor.UpdateScheduleParams) []*stripe.SubscriptionScheduleUpdatePhaseParams {
	phases := make([]*stripe.SubscriptionScheduleUpdatePhaseParams, 0, len(req.Phases))
	for i, p := range req.Phases {
		param := &stripe.SubscriptionScheduleUpdatePhaseParams{
			Items: []*stripe.SubscriptionScheduleUpdatePhaseItemParams{
				{Price: stripe.String(p.PriceID)},
			},
		}
		if i == 0 && req.StartNow {
			param.StartDateNow = stripe.Bool(true)
		} else if p.StartDate != 0 {
			param.StartDate = stripe.Int64(p.StartDate)
		}
		if p.EndDate != 0 {
			param.EndDate = stripe.Int64(p.EndDate)
		}
		if p.ProrationBehavior != "" {
			param.ProrationBehavior = stripe.String(string(p.ProrationBehavior))
		}
		phases = append(phases, param)
	}
	return phases
}
