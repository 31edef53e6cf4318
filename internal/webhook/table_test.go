package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/subsync/subsync/internal/types"
)

func TestTableLookup(t *testing.T) {
	table := NewTable()

	tests := []struct {
		eventType string
		want      types.EventCapability
	}{
		{types.EventProductDeleted, types.EventCapabilityUpsertPlan},
		{types.EventPriceCreated, types.EventCapabilityUpsertPlan},
		{types.EventCustomerUpdated, types.EventCapabilityUpsertUser},
		{types.EventSubscriptionTrialWillEnd, types.EventCapabilitySynchronize},
		{types.EventInvoicePaymentActionRequired, types.EventCapabilitySynchronize},
		{types.EventCheckoutSessionCompleted, types.EventCapabilitySynchronize},
		{types.EventInvoicePaymentPaid, types.EventCapabilitySynchronize},
		{types.EventScheduleAborted, types.EventCapabilitySynchronize},
		{types.EventRefundUpdated, types.EventCapabilityUpsertRefund},
		{types.EventChargeRefunded, types.EventCapabilityIgnore},
	}

	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			got, ok := table.Lookup(tt.eventType)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := table.Lookup("payout.paid")
	assert.False(t, ok)
}

func TestTableSize(t *testing.T) {
	table := NewTable()

	counts := map[types.EventCapability]int{}
	for _, c := range table {
		counts[c]++
	}
	assert.Equal(t, 6, counts[types.EventCapabilityUpsertPlan])
	assert.Equal(t, 2, counts[types.EventCapabilityUpsertUser])
	assert.Equal(t, 25, counts[types.EventCapabilitySynchronize])
	assert.Equal(t, 2, counts[types.EventCapabilityUpsertRefund])
	assert.Equal(t, 2, counts[types.EventCapabilityIgnore])
}
