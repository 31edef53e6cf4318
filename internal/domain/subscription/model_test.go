package subscription

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/subsync/subsync/internal/types"
)

func TestMergeSynced_NewRecord(t *testing.T) {
	incoming := &Subscription{ExternalSubscriptionID: "sub_1", PriceID: "price_pro"}

	merged := MergeSynced(nil, incoming)

	assert.Equal(t, "price_pro", merged.PriceID)
	assert.NotSame(t, incoming, merged)
}

func TestMergeSynced_KeepsDowngradeWhileScheduleExists(t *testing.T) {
	date := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	existing := &Subscription{
		ID:                        "subs_1",
		ExternalSubscriptionID:    "sub_1",
		PriceID:                   "price_pro",
		Status:                    types.SubscriptionStatusActive,
		ScheduleID:                lo.ToPtr("sub_sched_1"),
		ScheduledDowngradePriceID: lo.ToPtr("price_basic"),
		ScheduledDowngradeDate:    &date,
		CancellationDate:          &date,
	}
	incoming := &Subscription{
		ExternalSubscriptionID: "sub_1",
		PriceID:                "price_team",
		Status:                 types.SubscriptionStatusPastDue,
		ScheduleID:             lo.ToPtr("sub_sched_1"),
		Metadata:               types.Metadata{"k": "v"},
	}

	merged := MergeSynced(existing, incoming)

	assert.Equal(t, "subs_1", merged.ID)
	assert.Equal(t, "price_team", merged.PriceID)
	assert.Equal(t, types.SubscriptionStatusPastDue, merged.Status)
	assert.Equal(t, "price_basic", lo.FromPtr(merged.ScheduledDowngradePriceID))
	assert.Equal(t, &date, merged.ScheduledDowngradeDate)
	assert.Equal(t, &date, merged.CancellationDate, "locally owned fields are untouched")
	assert.Equal(t, types.Metadata{"k": "v"}, merged.Metadata)
}

func TestMergeSynced_ClearsDowngradeWhenScheduleGone(t *testing.T) {
	existing := &Subscription{
		ExternalSubscriptionID:    "sub_1",
		ScheduleID:                lo.ToPtr("sub_sched_1"),
		ScheduledDowngradePriceID: lo.ToPtr("price_basic"),
	}

	merged := MergeSynced(existing, &Subscription{ExternalSubscriptionID: "sub_1"})

	assert.False(t, merged.HasSchedule())
	assert.Nil(t, merged.ScheduledDowngradePriceID)
	assert.Nil(t, merged.ScheduledDowngradeDate)
}

func TestMergeSynced_AdoptsOutOfBandSchedule(t *testing.T) {
	existing := &Subscription{ExternalSubscriptionID: "sub_1"}

	merged := MergeSynced(existing, &Subscription{ExternalSubscriptionID: "sub_1", ScheduleID: lo.ToPtr("sub_sched_9")})

	assert.Equal(t, "sub_sched_9", lo.FromPtr(merged.ScheduleID))
}

func TestMergeSynced_AdoptsReplacedSchedule(t *testing.T) {
	date := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	existing := &Subscription{
		ExternalSubscriptionID:    "sub_1",
		ScheduleID:                lo.ToPtr("sub_sched_old"),
		ScheduledDowngradePriceID: lo.ToPtr("price_basic"),
		ScheduledDowngradeDate:    &date,
	}
	incoming := &Subscription{ExternalSubscriptionID: "sub_1", ScheduleID: lo.ToPtr("sub_sched_new")}

	merged := MergeSynced(existing, incoming)

	assert.Equal(t, "sub_sched_new", lo.FromPtr(merged.ScheduleID))
	assert.NotSame(t, incoming.ScheduleID, merged.ScheduleID)
	assert.Nil(t, merged.ScheduledDowngradePriceID)
	assert.Nil(t, merged.ScheduledDowngradeDate)
	assert.Equal(t, "sub_sched_old", lo.FromPtr(existing.ScheduleID), "existing is not mutated")
}
