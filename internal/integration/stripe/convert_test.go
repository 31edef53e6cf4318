package stripe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"github.com/subsync/subsync/internal/domain/processor"
	"github.com/subsync/subsync/internal/types"
)

func TestToSubscription(t *testing.T) {
	in := &stripe.Subscription{
		ID:       "sub_1",
		Status:   stripe.SubscriptionStatusActive,
		Customer: &stripe.Customer{ID: "cus_1"},
		Schedule: &stripe.SubscriptionSchedule{ID: "sub_sched_1"},
		Items: &stripe.SubscriptionItemList{
			Data: []*stripe.SubscriptionItem{
				{
					ID:                 "si_1",
					Price:              &stripe.Price{ID: "price_basic"},
					CurrentPeriodStart: 1000,
					CurrentPeriodEnd:   2000,
				},
			},
		},
		LatestInvoice: &stripe.Invoice{
			ID:         "in_1",
			AmountPaid: 10000,
			Payments: &stripe.InvoicePaymentList{
				Data: []*stripe.InvoicePayment{
					{Payment: &stripe.InvoicePaymentPayment{
						PaymentIntent: &stripe.PaymentIntent{
							ID:           "pi_1",
							Status:       stripe.PaymentIntentStatusSucceeded,
							LatestCharge: &stripe.Charge{ID: "ch_1"},
						},
					}},
				},
			},
		},
	}

	out := toSubscription(in)
	require.NotNil(t, out)
	assert.Equal(t, "cus_1", out.CustomerID)
	assert.Equal(t, "sub_sched_1", out.ScheduleID)
	assert.Equal(t, types.SubscriptionStatusActive, out.Status)

	item, ok := out.PrimaryItem()
	require.True(t, ok)
	assert.Equal(t, "price_basic", item.PriceID)

	start, end := out.CurrentPeriod()
	assert.Equal(t, int64(1000), start)
	assert.Equal(t, int64(2000), end)

	require.NotNil(t, out.LatestInvoice)
	assert.Equal(t, "ch_1", out.LatestInvoice.ChargeID())
	assert.Equal(t, types.PaymentIntentStatus("succeeded"), out.LatestInvoice.PaymentIntent.Status)
}

func TestToSchedule(t *testing.T) {
	in := &stripe.SubscriptionSchedule{
		ID:           "sub_sched_1",
		Subscription: &stripe.Subscription{ID: "sub_1"},
		EndBehavior:  stripe.SubscriptionScheduleEndBehaviorRelease,
		Phases: []*stripe.SubscriptionSchedulePhase{
			{StartDate: 1000, EndDate: 2000, Items: []*stripe.SubscriptionSchedulePhaseItem{{Price: &stripe.Price{ID: "price_pro"}}}},
			{StartDate: 2000, EndDate: 3000, Items: []*stripe.SubscriptionSchedulePhaseItem{{Price: &stripe.Price{ID: "price_basic"}}}},
		},
	}

	out := toSchedule(in)
	require.Len(t, out.Phases, 2)
	assert.Equal(t, "sub_1", out.SubscriptionID)
	assert.Equal(t, "price_basic", out.Phases[1].PriceID)

	idx, ok := out.CurrentPhase(1500)
	require.True(t, ok)
	assert.Equal(t, 0, idx)
}

func TestToPrice_ProductExpansion(t *testing.T) {
	p := &stripe.Price{
		ID:         "price_1",
		UnitAmount: 2500,
		Currency:   stripe.CurrencyUSD,
		Product:    &stripe.Product{ID: "prod_1", Name: "Pro"},
		Recurring:  &stripe.PriceRecurring{Interval: stripe.PriceRecurringIntervalMonth},
	}

	expanded := toPrice(p, true)
	prod, ok := expanded.Product.Expanded()
	require.True(t, ok)
	assert.Equal(t, "Pro", prod.Name)
	assert.Equal(t, "month", expanded.Recurring.Interval)

	collapsed := toPrice(p, false)
	_, ok = collapsed.Product.Expanded()
	assert.False(t, ok)
	assert.Equal(t, "prod_1", collapsed.Product.ID())
}

func TestToPhaseParams_StartNow(t *testing.T) {
	params := toPhaseParams(processor.UpdateScheduleParams{
		ScheduleID: "sub_sched_1",
		StartNow:   true,
		Phases: []processor.Phase{
			{PriceID: "price_pro", StartDate: 1000, EndDate: 2000},
			{PriceID: "price_basic", StartDate: 2000, ProrationBehavior: types.ProrationBehaviorNone},
		},
	})
	require.Len(t, params, 2)
	assert.True(t, *params[0].StartDateNow)
	assert.Nil(t, params[0].StartDate)
	assert.Equal(t, int64(2000), *params[1].StartDate)
	assert.Equal(t, "none", *params[1].ProrationBehavior)
}
