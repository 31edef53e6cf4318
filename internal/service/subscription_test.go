package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/subsync/subsync/internal/api/dto"
	"github.com/subsync/subsync/internal/domain/processor"
	"github.com/subsync/subsync/internal/domain/subscription"
	ierr "github.com/subsync/subsync/internal/errors"
	"github.com/subsync/subsync/internal/notification"
	"github.com/subsync/subsync/internal/testutil"
	"github.com/subsync/subsync/internal/types"
)

const day = 24 * time.Hour

type SubscriptionServiceSuite struct {
	testutil.BaseServiceTestSuite
	service SubscriptionService
}

func TestSubscriptionService(t *testing.T) {
	suite.Run(t, new(SubscriptionServiceSuite))
}

func (s *SubscriptionServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.GetProcessor().AddPrice("price_basic", "prod_basic", 1000)
	s.GetProcessor().AddPrice("price_pro", "prod_pro", 2500)
	s.service = NewSubscriptionService(newTestParams(&s.BaseServiceTestSuite))
}

func (s *SubscriptionServiceSuite) create(customerID string) *dto.CreateSubscriptionResponse {
	resp, err := s.service.CreateSubscription(s.GetContext(), dto.CreateSubscriptionRequest{
		CustomerID:      customerID,
		PriceID:         "price_basic",
		PaymentMethodID: "pm_1",
	})
	s.Require().NoError(err)
	s.Require().Equal(types.PaymentOutcomePaid, resp.Outcome)
	return resp
}

func (s *SubscriptionServiceSuite) stored(id string) *subscription.Subscription {
	sub, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), id)
	s.Require().NoError(err)
	return sub
}

func (s *SubscriptionServiceSuite) TestCreateSubscription() {
	seedUser(s.GetContext(), &s.BaseServiceTestSuite, "ada@example.com", "Ada", "cus_1")

	tests := []struct {
		name          string
		customerID    string
		payment       types.PaymentOutcome
		wantOutcome   types.PaymentOutcome
		wantPersisted bool
		wantSecret    bool
	}{
		{
			name:          "paid invoice persists an active subscription",
			customerID:    "cus_1",
			payment:       types.PaymentOutcomePaid,
			wantOutcome:   types.PaymentOutcomePaid,
			wantPersisted: true,
		},
		{
			name:        "authentication required returns the client secret",
			customerID:  "cus_2",
			payment:     types.PaymentOutcomeRequiresAction,
			wantOutcome: types.PaymentOutcomeRequiresAction,
			wantSecret:  true,
		},
		{
			name:        "declined card asks for a new payment method",
			customerID:  "cus_3",
			payment:     types.PaymentOutcomeRequiresPaymentMethod,
			wantOutcome: types.PaymentOutcomeRequiresPaymentMethod,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.GetProcessor().NextPayment = tt.payment

			resp, err := s.service.CreateSubscription(s.GetContext(), dto.CreateSubscriptionRequest{
				CustomerID:      tt.customerID,
				PriceID:         "price_basic",
				PaymentMethodID: "pm_1",
			})
			s.NoError(err)
			s.Equal(tt.wantOutcome, resp.Outcome)
			s.Equal(tt.wantPersisted, resp.Persisted())
			s.Equal(tt.wantSecret, resp.ClientSecret != "")
			s.NotEmpty(resp.ExternalSubscriptionID)

			local, err := s.GetStores().SubscriptionRepo.GetByExternalID(s.GetContext(), resp.ExternalSubscriptionID)
			if !tt.wantPersisted {
				s.True(ierr.IsNotFound(err))
				s.Empty(resp.SubscriptionID)
				return
			}
			s.NoError(err)
			s.Equal(resp.SubscriptionID, local.ID)
			s.Equal(types.SubscriptionStatusActive, local.Status)
			s.Equal("price_basic", local.PriceID)
			s.Equal(types.InvoiceStatusPaid, resp.InvoiceStatus)
			s.NotEmpty(resp.ChargeID)
			s.Equal("Subscription created successfully", resp.Message)
			s.Equal(s.GetNow().Add(30*day).Unix(), local.CurrentPeriodEnd.Unix())
		})
	}

	s.Equal(1, s.GetNotifier().CountKind(notification.KindCreated))
}

func (s *SubscriptionServiceSuite) TestCreateSubscription_Validation() {
	_, err := s.service.CreateSubscription(s.GetContext(), dto.CreateSubscriptionRequest{CustomerID: "cus_1"})
	s.True(ierr.IsValidation(err))
	s.Zero(s.GetProcessor().Calls("CreateSubscription"))
}

func (s *SubscriptionServiceSuite) TestCreateSubscription_WithoutEmailSkipsNotification() {
	resp := s.create("cus_unknown")

	s.NotEmpty(resp.SubscriptionID)
	s.Empty(s.GetNotifier().Sent())
}

func (s *SubscriptionServiceSuite) TestCreateSubscription_AlreadySubscribed() {
	first := s.create("cus_1")

	_, err := s.service.CreateSubscription(s.GetContext(), dto.CreateSubscriptionRequest{
		CustomerID:      "cus_1",
		PriceID:         "price_pro",
		PaymentMethodID: "pm_2",
	})
	s.True(ierr.Is(err, ierr.ErrAlreadySubscribed))
	s.Equal(1, s.GetProcessor().Calls("CreateSubscription"))

	// a cancelled subscription no longer blocks a new one
	_, err = s.service.CancelSubscription(s.GetContext(), first.SubscriptionID)
	s.Require().NoError(err)

	again, err := s.service.CreateSubscription(testutil.SetupContext(), dto.CreateSubscriptionRequest{
		CustomerID:      "cus_1",
		PriceID:         "price_basic",
		PaymentMethodID: "pm_1",
	})
	s.Require().NoError(err)
	s.NotEqual(first.ExternalSubscriptionID, again.ExternalSubscriptionID)
}

func (s *SubscriptionServiceSuite) TestCreateSubscription_UnrecognizedPaymentState() {
	mockProcessor := testutil.NewMockProcessor()
	params := newTestParams(&s.BaseServiceTestSuite)
	params.Processor = mockProcessor
	svc := NewSubscriptionService(params)

	mockProcessor.On("AttachPaymentMethod", mock.Anything, "cus_1", "pm_1").Return(nil)
	mockProcessor.On("SetDefaultPaymentMethod", mock.Anything, "cus_1", "pm_1").Return(nil)
	mockProcessor.On("CreateSubscription", mock.Anything, mock.Anything).Return(&processor.Subscription{
		ID:     "sub_processing",
		Status: types.SubscriptionStatusIncomplete,
		LatestInvoice: &processor.Invoice{
			ID:            "in_1",
			Status:        types.InvoiceStatusOpen,
			PaymentIntent: &processor.PaymentIntent{ID: "pi_1", Status: types.PaymentIntentStatusProcessing},
		},
	}, nil)

	_, err := svc.CreateSubscription(s.GetContext(), dto.CreateSubscriptionRequest{
		CustomerID:      "cus_1",
		PriceID:         "price_basic",
		PaymentMethodID: "pm_1",
	})
	s.True(ierr.Is(err, ierr.ErrPaymentNotSuccessful))
	s.Zero(s.GetStores().SubscriptionRepo.(*testutil.InMemorySubscriptionStore).Len())
	mockProcessor.AssertExpectations(s.T())
}

// Two concurrent creates for one customer can both pass the in-force check.
// This documents the race; it does not assert that only one create wins.
func (s *SubscriptionServiceSuite) TestCreateSubscription_ConcurrentDuplicatesRace() {
	var created atomic.Int32
	var wg conc.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Go(func() {
			_, err := s.service.CreateSubscription(context.Background(), dto.CreateSubscriptionRequest{
				CustomerID:      "cus_race",
				PriceID:         "price_basic",
				PaymentMethodID: "pm_1",
			})
			if err == nil {
				created.Add(1)
			} else {
				s.True(ierr.Is(err, ierr.ErrAlreadySubscribed), "unexpected error: %v", err)
			}
		})
	}
	wg.Wait()

	s.GreaterOrEqual(created.Load(), int32(1))
	s.T().Logf("%d of 8 concurrent creates succeeded", created.Load())
}

func (s *SubscriptionServiceSuite) TestGetSubscription() {
	resp := s.create("cus_1")

	byLocal, err := s.service.GetSubscription(s.GetContext(), resp.SubscriptionID)
	s.NoError(err)
	s.Equal(resp.ExternalSubscriptionID, byLocal.ExternalSubscriptionID)

	byExternal, err := s.service.GetSubscription(s.GetContext(), resp.ExternalSubscriptionID)
	s.NoError(err)
	s.Equal(resp.SubscriptionID, byExternal.ID)

	_, err = s.service.GetSubscription(s.GetContext(), "missing")
	s.True(ierr.IsNotFound(err))
}

func (s *SubscriptionServiceSuite) TestListSubscriptions() {
	s.create("cus_1")
	s.create("cus_2")

	filter := types.NewSubscriptionFilter()
	filter.CustomerID = "cus_2"
	resp, err := s.service.ListSubscriptions(s.GetContext(), filter)
	s.NoError(err)
	s.Len(resp.Items, 1)
	s.Equal("cus_2", resp.Items[0].CustomerID)
	s.Equal(1, resp.Pagination.Total)

	all, err := s.service.ListSubscriptions(s.GetContext(), nil)
	s.NoError(err)
	s.Len(all.Items, 2)

	filter.Limit = lo.ToPtr(0)
	_, err = s.service.ListSubscriptions(s.GetContext(), filter)
	s.True(ierr.IsValidation(err))
}

func (s *SubscriptionServiceSuite) TestGetActiveSubscription() {
	resp := s.create("cus_1")

	active, err := s.service.GetActiveSubscription(s.GetContext(), "cus_1")
	s.NoError(err)
	s.Equal(resp.SubscriptionID, active.ID)

	_, err = s.service.GetActiveSubscription(s.GetContext(), "cus_2")
	s.True(ierr.IsNotFound(err))
}

func (s *SubscriptionServiceSuite) TestUpgradeSubscription() {
	seedUser(s.GetContext(), &s.BaseServiceTestSuite, "ada@example.com", "Ada", "cus_1")
	resp := s.create("cus_1")

	upgraded, err := s.service.UpgradeSubscription(s.GetContext(), resp.SubscriptionID, dto.ChangePriceRequest{NewPriceID: "price_pro"})
	s.NoError(err)
	s.Equal("price_pro", upgraded.PriceID)
	s.Equal(types.SubscriptionStatusActive, upgraded.Status)
	s.Equal("price_pro", s.stored(resp.SubscriptionID).PriceID)

	live, err := s.GetProcessor().RetrieveSubscription(s.GetContext(), resp.ExternalSubscriptionID, false)
	s.Require().NoError(err)
	item, _ := live.PrimaryItem()
	s.Equal("price_pro", item.PriceID)

	s.Equal(1, s.GetNotifier().CountKind(notification.KindUpgraded))
}

func (s *SubscriptionServiceSuite) TestUpgradeSubscription_Errors() {
	s.Run("unknown local id", func() {
		_, err := s.service.UpgradeSubscription(s.GetContext(), "subs_missing", dto.ChangePriceRequest{NewPriceID: "price_pro"})
		s.True(ierr.IsNotFound(err))
	})

	s.Run("processor subscription without items", func() {
		resp := s.create("cus_items")
		s.GetProcessor().SetSubscription(resp.ExternalSubscriptionID, func(sub *processor.Subscription) {
			sub.Items = nil
		})

		_, err := s.service.UpgradeSubscription(s.GetContext(), resp.SubscriptionID, dto.ChangePriceRequest{NewPriceID: "price_pro"})
		s.True(ierr.IsNotFound(err))
		s.Equal("price_basic", s.stored(resp.SubscriptionID).PriceID)
	})

	s.Run("missing price", func() {
		_, err := s.service.UpgradeSubscription(s.GetContext(), "subs_any", dto.ChangePriceRequest{})
		s.True(ierr.IsValidation(err))
	})
}

func (s *SubscriptionServiceSuite) TestScheduleDowngrade_NotifiesOnSuccess() {
	seedUser(s.GetContext(), &s.BaseServiceTestSuite, "ada@example.com", "", "cus_1")
	resp := s.create("cus_1")
	s.GetNotifier().Clear()

	sub, err := s.service.ScheduleDowngrade(s.GetContext(), resp.SubscriptionID, dto.ChangePriceRequest{NewPriceID: "price_pro"})
	s.NoError(err)
	s.Equal("price_pro", lo.FromPtr(sub.ScheduledDowngradePriceID))

	sent := s.GetNotifier().Sent()
	s.Require().Len(sent, 1)
	s.Equal(notification.KindDowngradeScheduled, sent[0].Kind.Name())
	s.Equal("User", sent[0].Name)
}

func (s *SubscriptionServiceSuite) TestScheduleDowngrade_UnknownSubscription() {
	_, err := s.service.ScheduleDowngrade(s.GetContext(), "subs_missing", dto.ChangePriceRequest{NewPriceID: "price_basic"})
	s.True(ierr.IsNotFound(err))
	s.Empty(s.GetNotifier().Sent())
}

func (s *SubscriptionServiceSuite) TestCancelSubscription_Refunds() {
	tests := []struct {
		name       string
		elapsed    time.Duration
		wantAmount int64
		wantRefund bool
	}{
		{name: "inside the grace window refunds in full", elapsed: 2 * day, wantAmount: 1000, wantRefund: true},
		{name: "half way refunds the unused half", elapsed: 15 * day, wantAmount: 500, wantRefund: true},
		{name: "period fully used issues no refund", elapsed: 30 * day, wantAmount: 0, wantRefund: false},
	}

	for i, tt := range tests {
		s.Run(tt.name, func() {
			customerID := "cus_cancel_" + string(rune('a'+i))
			seedUser(s.GetContext(), &s.BaseServiceTestSuite, customerID+"@example.com", "", customerID)
			resp := s.create(customerID)
			refundsBefore := len(s.GetProcessor().Refunds())
			s.AdvanceClock(tt.elapsed)

			out, err := s.service.CancelSubscription(s.GetContext(), resp.SubscriptionID)
			s.Require().NoError(err)
			s.Equal(tt.wantAmount, out.RefundAmount)
			s.Equal(types.SubscriptionStatusCancelled, out.Subscription.Status)
			s.Equal(s.GetNow(), lo.FromPtr(out.Subscription.CanceledAt))
			s.NotNil(out.Subscription.EndedAt)
			s.NotNil(out.Subscription.CancellationDate)

			refunds := s.GetProcessor().Refunds()
			if tt.wantRefund {
				s.Require().Len(refunds, refundsBefore+1)
				issued := refunds[len(refunds)-1]
				s.Equal(tt.wantAmount, issued.Amount)
				s.Equal(processor.RefundReasonRequestedByCustomer, issued.Reason)
				s.Equal(resp.ChargeID, issued.Charge.ID())
				s.Equal(resp.SubscriptionID, issued.Metadata["subscription_id"])
			} else {
				s.Len(refunds, refundsBefore)
			}

			// the audit row is written whether or not money moved
			rows, err := s.GetStores().RefundRepo.ListBySubscription(s.GetContext(), resp.SubscriptionID)
			s.Require().NoError(err)
			s.Require().Len(rows, 1)
			s.Equal(tt.wantAmount, rows[0].Amount)
			s.Equal(int64(1000), rows[0].AmountPaid)
			s.Equal("Subscription cancelled", rows[0].Reason)

			sent := s.GetNotifier().Sent()
			last := sent[len(sent)-1]
			s.Equal(notification.Cancelled{RefundAmount: tt.wantAmount, Currency: "usd"}, last.Kind)
		})
	}
}

func (s *SubscriptionServiceSuite) TestCancelSubscription_RefundFailureDoesNotBlock() {
	resp := s.create("cus_1")
	s.GetProcessor().FailOn("CreateRefund", ierr.NewError("card_declined").Mark(ierr.ErrProcessor))

	out, err := s.service.CancelSubscription(s.GetContext(), resp.SubscriptionID)
	s.NoError(err)
	s.Zero(out.RefundAmount)
	s.Equal(types.SubscriptionStatusCancelled, s.stored(resp.SubscriptionID).Status)
	s.Equal(1, s.GetProcessor().Calls("CreateRefund"))

	rows, err := s.GetStores().RefundRepo.ListBySubscription(s.GetContext(), resp.SubscriptionID)
	s.NoError(err)
	s.Require().Len(rows, 1)
	s.Equal("none", rows[0].Status)
}

func (s *SubscriptionServiceSuite) TestCancelSubscription_ByExternalID() {
	resp := s.create("cus_1")

	out, err := s.service.CancelSubscription(s.GetContext(), resp.ExternalSubscriptionID)
	s.NoError(err)
	s.Equal(resp.SubscriptionID, out.Subscription.ID)
}

func (s *SubscriptionServiceSuite) TestCancelSubscription_NotFound() {
	_, err := s.service.CancelSubscription(s.GetContext(), "nothing")
	s.True(ierr.IsNotFound(err))
	s.Zero(s.GetProcessor().Calls("CancelSubscription"))
}

func (s *SubscriptionServiceSuite) TestCancelSubscription_ProcessorFailurePropagates() {
	resp := s.create("cus_1")
	s.GetProcessor().FailOn("CancelSubscription", ierr.NewError("timeout").Mark(ierr.ErrProcessor))

	_, err := s.service.CancelSubscription(s.GetContext(), resp.SubscriptionID)
	s.True(ierr.IsProcessor(err))
	s.Equal(types.SubscriptionStatusActive, s.stored(resp.SubscriptionID).Status)
	s.Empty(s.GetProcessor().Refunds())
}

// failingUpdateStore fails every Update so the cancel write path can be exercised
type failingUpdateStore struct {
	*testutil.InMemorySubscriptionStore
}

func (f failingUpdateStore) Update(ctx context.Context, sub *subscription.Subscription) (*subscription.Subscription, error) {
	return nil, ierr.NewError("connection reset").Mark(ierr.ErrDatabase)
}

func (s *SubscriptionServiceSuite) TestCancelSubscription_PersistenceFailureSurfaces() {
	resp := s.create("cus_1")

	params := newTestParams(&s.BaseServiceTestSuite)
	params.SubRepo = failingUpdateStore{s.GetStores().SubscriptionRepo.(*testutil.InMemorySubscriptionStore)}
	svc := NewSubscriptionService(params)

	_, err := svc.CancelSubscription(s.GetContext(), resp.SubscriptionID)
	s.True(ierr.IsPersistence(err))
	s.Equal(1, s.GetProcessor().Calls("CancelSubscription"))
}

// create, upgrade, downgrade and cancel one subscription against the in-memory processor
func (s *SubscriptionServiceSuite) TestLifecycle_EndToEnd() {
	seedUser(s.GetContext(), &s.BaseServiceTestSuite, "ada@example.com", "Ada", "cus_1")

	created, err := s.service.CreateSubscription(s.GetContext(), dto.CreateSubscriptionRequest{
		CustomerID:      "cus_1",
		PriceID:         "price_basic",
		PaymentMethodID: "pm_1",
	})
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusActive, created.Status)
	s.Equal(1, s.GetNotifier().CountKind(notification.KindCreated))

	upgraded, err := s.service.UpgradeSubscription(s.GetContext(), created.SubscriptionID, dto.ChangePriceRequest{NewPriceID: "price_pro"})
	s.Require().NoError(err)
	s.Equal("price_pro", upgraded.PriceID)
	s.Equal(types.SubscriptionStatusActive, upgraded.Status)

	downgraded, err := s.service.ScheduleDowngrade(s.GetContext(), created.SubscriptionID, dto.ChangePriceRequest{NewPriceID: "price_basic"})
	s.Require().NoError(err)
	s.Equal("price_basic", lo.FromPtr(downgraded.ScheduledDowngradePriceID))
	s.Equal("price_pro", downgraded.PriceID)
	sched, ok := s.GetProcessor().Schedule(lo.FromPtr(downgraded.ScheduleID))
	s.Require().True(ok)
	s.Len(sched.Phases, 2)
	s.Equal(types.ScheduleEndBehaviorRelease, sched.EndBehavior)

	s.AdvanceClock(day)
	cancelled, err := s.service.CancelSubscription(s.GetContext(), created.SubscriptionID)
	s.Require().NoError(err)
	s.Equal(int64(1000), cancelled.RefundAmount)
	s.Equal(types.SubscriptionStatusCancelled, s.stored(created.SubscriptionID).Status)

	s.Equal(1, s.GetNotifier().CountKind(notification.KindCreated))
	s.Equal(1, s.GetNotifier().CountKind(notification.KindUpgraded))
	s.Equal(1, s.GetNotifier().CountKind(notification.KindDowngradeScheduled))
	s.Equal(1, s.GetNotifier().CountKind(notification.KindCancelled))
}
