package subscription

import (
	"time"

	"github.com/subsync/subsync/internal/types"
)

// Subscription is the local mirror of one processor subscription
type Subscription struct {
	ID string `db:"id" json:"id"`

	// CustomerID is the processor customer id
	CustomerID             string `db:"customer_id" json:"customer_id"`
	ExternalSubscriptionID string `db:"external_subscription_id" json:"external_subscription_id"`
	PriceID                string `db:"price_id" json:"price_id"`

	Status            types.SubscriptionStatus `db:"status" json:"status"`
	CancelAtPeriodEnd bool                     `db:"cancel_at_period_end" json:"cancel_at_period_end"`

	CurrentPeriodStart *time.Time `db:"current_period_start" json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `db:"current_period_end" json:"current_period_end,omitempty"`

	// ScheduleID is non-nil iff a phase schedule exists on the processor
	ScheduledDowngradePriceID *string    `db:"scheduled_downgrade_price_id" json:"scheduled_downgrade_price_id,omitempty"`
	ScheduledDowngradeDate    *time.Time `db:"scheduled_downgrade_date" json:"scheduled_downgrade_date,omitempty"`
	ScheduleID                *string    `db:"schedule_id" json:"schedule_id,omitempty"`

	StartedAt        *time.Time `db:"started_at" json:"started_at,omitempty"`
	EndedAt          *time.Time `db:"ended_at" json:"ended_at,omitempty"`
	CancellationDate *time.Time `db:"cancellation_date" json:"cancellation_date,omitempty"`
	CanceledAt       *time.Time `db:"canceled_at" json:"canceled_at,omitempty"`

	Metadata types.Metadata `db:"metadata" json:"metadata"`

	types.BaseModel
}

// HasSchedule reports whether a downgrade schedule is being tracked
func (s *Subscription) HasSchedule() bool {
	return s.ScheduleID != nil && *s.ScheduleID != ""
}

// ClearDowngrade drops the downgrade bookkeeping
func (s *Subscription) ClearDowngrade() {
	s.ScheduleID = nil
	s.ScheduledDowngradePriceID = nil
	s.ScheduledDowngradeDate = nil
}

// MergeSynced returns the record that results from applying the processor derived
// fields of incoming on top of existing. existing may be nil.
// Downgrade bookkeeping survives only while incoming reports the same schedule.
// Repository implementations must produce the same result.
func MergeSynced(existing, incoming *Subscription) *Subscription {
	if existing == nil {
		merged := *incoming
		return &merged
	}

	merged := *existing
	merged.CustomerID = incoming.CustomerID
	merged.PriceID = incoming.PriceID
	merged.Status = incoming.Status
	merged.CancelAtPeriodEnd = incoming.CancelAtPeriodEnd
	merged.CurrentPeriodStart = incoming.CurrentPeriodStart
	merged.CurrentPeriodEnd = incoming.CurrentPeriodEnd
	merged.StartedAt = incoming.StartedAt
	merged.EndedAt = incoming.EndedAt
	merged.CanceledAt = incoming.CanceledAt
	merged.Metadata = incoming.Metadata
	merged.UpdatedAt = incoming.UpdatedAt

	switch {
	case !incoming.HasSchedule():
		merged.ClearDowngrade()
	case !existing.HasSchedule() || *existing.ScheduleID != *incoming.ScheduleID:
		// a different schedule replaced ours, the downgrade it carried ended with it
		scheduleID := *incoming.ScheduleID
		merged.ClearDowngrade()
		merged.ScheduleID = &scheduleID
	}

	return &merged
}
