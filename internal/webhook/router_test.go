package webhook

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/subsync/subsync/internal/domain/processor"
	ierr "github.com/subsync/subsync/internal/errors"
	"github.com/subsync/subsync/internal/idempotency"
	"github.com/subsync/subsync/internal/service"
	"github.com/subsync/subsync/internal/testutil"
	"github.com/subsync/subsync/internal/types"
)

type RouterSuite struct {
	testutil.BaseServiceTestSuite
	router *Router
	live   *processor.Subscription
}

func TestRouter(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.GetProcessor().AddPrice("price_basic", "prod_basic", 1000)

	stores := s.GetStores()
	params := service.ServiceParams{
		Logger:             s.GetLogger(),
		Config:             s.GetConfig(),
		DB:                 s.GetDB(),
		Cache:              s.GetCache(),
		Metrics:            s.GetMetrics(),
		SubRepo:            stores.SubscriptionRepo,
		PlanRepo:           stores.PlanRepo,
		UserRepo:           stores.UserRepo,
		RefundRepo:         stores.RefundRepo,
		ProcessedEventRepo: stores.ProcessedEventRepo,
		Processor:          s.GetProcessor(),
		Notifier:           s.GetNotifier(),
		IdempotencyGen:     idempotency.NewGenerator(),
		Now:                s.GetNow,
	}

	s.router = NewRouter(
		NewTable(),
		s.GetProcessor(),
		idempotency.NewStore(stores.ProcessedEventRepo, s.GetCache(), s.GetLogger()),
		service.NewSynchronizer(params),
		service.NewPlanService(params),
		service.NewUserService(params),
		service.NewRefundService(params),
		s.GetLogger(),
		s.GetMetrics(),
		nil,
	)

	var err error
	s.live, err = s.GetProcessor().CreateSubscription(s.GetContext(), processor.CreateSubscriptionParams{
		CustomerID: "cus_1",
		PriceID:    "price_basic",
	})
	s.Require().NoError(err)
}

func (s *RouterSuite) deliver(id, eventType string, object any) error {
	payload := testutil.EventPayload(id, eventType, object)
	return s.router.Handle(s.GetContext(), payload, s.GetProcessor().WebhookSecret)
}

func (s *RouterSuite) processed(id string) bool {
	ok, err := s.GetStores().ProcessedEventRepo.Exists(s.GetContext(), id)
	s.Require().NoError(err)
	return ok
}

func (s *RouterSuite) TestInvalidSignature() {
	payload := testutil.EventPayload("evt_1", types.EventSubscriptionUpdated, map[string]any{"object": "subscription", "id": s.live.ID})

	err := s.router.Handle(s.GetContext(), payload, "forged")
	s.True(ierr.IsInvalidSignature(err))
	s.False(s.processed("evt_1"))
	s.Zero(s.GetProcessor().Calls("RetrieveSubscription"))
}

func (s *RouterSuite) TestSubscriptionEventIsDeduplicated() {
	object := map[string]any{"object": "subscription", "id": s.live.ID}

	s.Require().NoError(s.deliver("evt_1", types.EventSubscriptionUpdated, object))
	s.Require().NoError(s.deliver("evt_1", types.EventSubscriptionUpdated, object))

	s.Equal(1, s.GetProcessor().Calls("RetrieveSubscription"))
	local, err := s.GetStores().SubscriptionRepo.GetByExternalID(s.GetContext(), s.live.ID)
	s.Require().NoError(err)
	s.Equal("price_basic", local.PriceID)
	s.Equal(types.SubscriptionStatusActive, local.Status)
}

func (s *RouterSuite) TestSubscriptionIDResolution() {
	tests := []struct {
		name      string
		eventType string
		object    map[string]any
	}{
		{
			name:      "invoice with parent details",
			eventType: types.EventInvoicePaid,
			object: map[string]any{
				"object": "invoice",
				"id":     "in_parent",
				"parent": map[string]any{"subscription_details": map[string]any{"subscription": s.live.ID}},
			},
		},
		{
			name:      "legacy invoice",
			eventType: types.EventInvoicePaymentFailed,
			object:    map[string]any{"object": "invoice", "id": "in_legacy", "subscription": s.live.ID},
		},
		{
			name:      "checkout session",
			eventType: types.EventCheckoutSessionCompleted,
			object:    map[string]any{"object": "checkout.session", "id": "cs_1", "subscription": s.live.ID},
		},
		{
			name:      "expanded schedule subscription",
			eventType: types.EventScheduleReleased,
			object:    map[string]any{"object": "subscription_schedule", "id": "sub_sched_1", "subscription": map[string]any{"id": s.live.ID}},
		},
		{
			name:      "invoice payment resolved through the processor",
			eventType: types.EventInvoicePaymentPaid,
			object:    map[string]any{"object": "invoice_payment", "id": "inpay_1", "invoice": s.live.LatestInvoice.ID},
		},
	}

	for i, tt := range tests {
		s.Run(tt.name, func() {
			before := s.GetProcessor().Calls("RetrieveSubscription")
			s.Require().NoError(s.deliver(fmt.Sprintf("evt_res_%d", i), tt.eventType, tt.object))
			s.Equal(before+1, s.GetProcessor().Calls("RetrieveSubscription"))
		})
	}

	s.Equal(1, s.GetProcessor().Calls("RetrieveInvoice"))
	_, err := s.GetStores().SubscriptionRepo.GetByExternalID(s.GetContext(), s.live.ID)
	s.NoError(err)
}

func (s *RouterSuite) TestEventWithoutSubscriptionIsDropped() {
	err := s.deliver("evt_1", types.EventInvoiceFinalized, map[string]any{"object": "invoice", "id": "in_oneoff"})
	s.NoError(err)
	s.Zero(s.GetProcessor().Calls("RetrieveSubscription"))
	s.True(s.processed("evt_1"))
}

func (s *RouterSuite) TestUnknownAndIgnoredTypesAreMarked() {
	s.NoError(s.deliver("evt_unknown", "payout.paid", map[string]any{"object": "payout", "id": "po_1"}))
	s.NoError(s.deliver("evt_ignored", types.EventChargeRefunded, map[string]any{"object": "charge", "id": "ch_1"}))

	s.True(s.processed("evt_unknown"))
	s.True(s.processed("evt_ignored"))
}

func (s *RouterSuite) TestHandlerFailureIsReturnedAndNotRetried() {
	object := map[string]any{"object": "subscription", "id": "sub_missing"}

	err := s.deliver("evt_1", types.EventSubscriptionDeleted, object)
	s.Error(err)
	s.True(s.processed("evt_1"))

	// the event id is already recorded, so the retry is acknowledged without work
	s.NoError(s.deliver("evt_1", types.EventSubscriptionDeleted, object))
	s.Equal(1, s.GetProcessor().Calls("RetrieveSubscription"))
}

func (s *RouterSuite) TestPlanEvents() {
	price := map[string]any{
		"object":      "price",
		"id":          "price_new",
		"product":     "prod_basic",
		"unit_amount": 4200,
		"currency":    "usd",
		"active":      true,
		"type":        "recurring",
		"recurring":   map[string]any{"interval": "month"},
	}
	s.Require().NoError(s.deliver("evt_price", types.EventPriceCreated, price))

	p, err := s.GetStores().PlanRepo.GetByPriceID(s.GetContext(), "price_new")
	s.Require().NoError(err)
	s.Equal(int64(4200), p.Amount)
	s.Equal("prod_basic", p.ProductID)
	s.True(p.Active)

	s.Require().NoError(s.deliver("evt_price_del", types.EventPriceDeleted, map[string]any{"object": "price", "id": "price_new"}))
	p, err = s.GetStores().PlanRepo.GetByPriceID(s.GetContext(), "price_new")
	s.Require().NoError(err)
	s.False(p.Active)

	s.Require().NoError(s.deliver("evt_price_2", types.EventPriceUpdated, price))
	s.Require().NoError(s.deliver("evt_prod_del", types.EventProductDeleted, map[string]any{
		"object": "product",
		"id":     "prod_basic",
		"name":   "Basic",
		"active": true,
	}))
	p, err = s.GetStores().PlanRepo.GetByPriceID(s.GetContext(), "price_new")
	s.Require().NoError(err)
	s.False(p.Active)
}

func (s *RouterSuite) TestCustomerEvent() {
	s.Require().NoError(s.deliver("evt_cus", types.EventCustomerCreated, map[string]any{
		"object": "customer",
		"id":     "cus_77",
		"email":  "lin@example.com",
		"name":   "Lin",
	}))

	u, err := s.GetStores().UserRepo.GetByExternalCustomerID(s.GetContext(), "cus_77")
	s.Require().NoError(err)
	s.Equal("lin@example.com", u.Email)
}

func (s *RouterSuite) TestRefundEvent() {
	s.Require().NoError(s.deliver("evt_re", types.EventRefundCreated, map[string]any{
		"object":   "refund",
		"id":       "re_1",
		"amount":   500,
		"currency": "usd",
		"charge":   "ch_1",
		"status":   "succeeded",
		"metadata": map[string]string{"customer_id": "cus_1", "subscription_id": "subs_1"},
	}))

	rows, err := s.GetStores().RefundRepo.ListBySubscription(s.GetContext(), "subs_1")
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal(int64(500), rows[0].Amount)
	s.Equal("ch_1", *rows[0].ChargeRef)
}

func (s *RouterSuite) TestMalformedObject() {
	err := s.deliver("evt_bad", types.EventCustomerUpdated, "not an object")
	s.True(ierr.IsValidation(err))
}
