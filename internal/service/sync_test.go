package service

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
	"github.com/subsync/subsync/internal/api/dto"
	"github.com/subsync/subsync/internal/domain/processor"
	ierr "github.com/subsync/subsync/internal/errors"
	"github.com/subsync/subsync/internal/testutil"
	"github.com/subsync/subsync/internal/types"
)

type SynchronizerSuite struct {
	testutil.BaseServiceTestSuite
	sync          Synchronizer
	subscriptions SubscriptionService
}

func TestSynchronizer(t *testing.T) {
	suite.Run(t, new(SynchronizerSuite))
}

func (s *SynchronizerSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.GetProcessor().AddPrice("price_basic", "prod_basic", 1000)
	s.GetProcessor().AddPrice("price_pro", "prod_pro", 2500)

	params := newTestParams(&s.BaseServiceTestSuite)
	s.sync = NewSynchronizer(params)
	s.subscriptions = NewSubscriptionService(params)
}

func (s *SynchronizerSuite) TestCreatesMissingMirror() {
	live, err := s.GetProcessor().CreateSubscription(s.GetContext(), processor.CreateSubscriptionParams{
		CustomerID: "cus_dashboard",
		PriceID:    "price_basic",
	})
	s.Require().NoError(err)

	synced, err := s.sync.SyncByExternalID(s.GetContext(), live.ID)
	s.Require().NoError(err)
	s.Equal("cus_dashboard", synced.CustomerID)
	s.Equal("price_basic", synced.PriceID)
	s.Equal(types.SubscriptionStatusActive, synced.Status)
	s.NotNil(synced.CurrentPeriodStart)
	s.NotNil(synced.StartedAt)

	again, err := s.sync.SyncByExternalID(s.GetContext(), live.ID)
	s.Require().NoError(err)
	s.Equal(synced.ID, again.ID)
	s.Equal(1, s.GetStores().SubscriptionRepo.(*testutil.InMemorySubscriptionStore).Len())
}

func (s *SynchronizerSuite) TestConvergesToProcessorPriceAndKeepsDowngrade() {
	created, err := s.subscriptions.CreateSubscription(s.GetContext(), dto.CreateSubscriptionRequest{
		CustomerID:      "cus_1",
		PriceID:         "price_pro",
		PaymentMethodID: "pm_1",
	})
	s.Require().NoError(err)
	_, err = s.subscriptions.ScheduleDowngrade(s.GetContext(), created.SubscriptionID, dto.ChangePriceRequest{NewPriceID: "price_basic"})
	s.Require().NoError(err)

	// the mirror drifts from the processor
	local, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), created.SubscriptionID)
	s.Require().NoError(err)
	local.PriceID = "price_drifted"
	_, err = s.GetStores().SubscriptionRepo.Update(s.GetContext(), local)
	s.Require().NoError(err)

	synced, err := s.sync.SyncByExternalID(s.GetContext(), created.ExternalSubscriptionID)
	s.Require().NoError(err)
	s.Equal("price_pro", synced.PriceID)
	s.Equal("price_basic", lo.FromPtr(synced.ScheduledDowngradePriceID))
	s.Equal(local.ScheduleID, synced.ScheduleID)
	s.Equal(local.ScheduledDowngradeDate, synced.ScheduledDowngradeDate)
}

func (s *SynchronizerSuite) TestClearsDowngradeWhenProcessorHasNoSchedule() {
	created, err := s.subscriptions.CreateSubscription(s.GetContext(), dto.CreateSubscriptionRequest{
		CustomerID:      "cus_1",
		PriceID:         "price_pro",
		PaymentMethodID: "pm_1",
	})
	s.Require().NoError(err)
	_, err = s.subscriptions.ScheduleDowngrade(s.GetContext(), created.SubscriptionID, dto.ChangePriceRequest{NewPriceID: "price_basic"})
	s.Require().NoError(err)

	// the schedule was released on the processor
	s.GetProcessor().SetSubscription(created.ExternalSubscriptionID, func(live *processor.Subscription) {
		live.ScheduleID = ""
		live.Items[0].PriceID = "price_basic"
	})

	synced, err := s.sync.SyncByExternalID(s.GetContext(), created.ExternalSubscriptionID)
	s.Require().NoError(err)
	s.Equal("price_basic", synced.PriceID)
	s.False(synced.HasSchedule())
	s.Nil(synced.ScheduledDowngradePriceID)
	s.Nil(synced.ScheduledDowngradeDate)
}

func (s *SynchronizerSuite) TestAdoptsScheduleReplacedOnProcessor() {
	created, err := s.subscriptions.CreateSubscription(s.GetContext(), dto.CreateSubscriptionRequest{
		CustomerID:      "cus_1",
		PriceID:         "price_pro",
		PaymentMethodID: "pm_1",
	})
	s.Require().NoError(err)
	downgraded, err := s.subscriptions.ScheduleDowngrade(s.GetContext(), created.SubscriptionID, dto.ChangePriceRequest{NewPriceID: "price_basic"})
	s.Require().NoError(err)

	s.GetProcessor().SetSubscription(created.ExternalSubscriptionID, func(live *processor.Subscription) {
		live.ScheduleID = "sub_sched_replacement"
	})

	synced, err := s.sync.SyncByExternalID(s.GetContext(), created.ExternalSubscriptionID)
	s.Require().NoError(err)
	s.NotEqual(lo.FromPtr(downgraded.ScheduleID), lo.FromPtr(synced.ScheduleID))
	s.Equal("sub_sched_replacement", lo.FromPtr(synced.ScheduleID))
	s.Nil(synced.ScheduledDowngradePriceID)
	s.Nil(synced.ScheduledDowngradeDate)
}

func (s *SynchronizerSuite) TestProcessorStatusIsStoredVerbatim() {
	created, err := s.subscriptions.CreateSubscription(s.GetContext(), dto.CreateSubscriptionRequest{
		CustomerID:      "cus_1",
		PriceID:         "price_basic",
		PaymentMethodID: "pm_1",
	})
	s.Require().NoError(err)

	s.GetProcessor().SetSubscription(created.ExternalSubscriptionID, func(live *processor.Subscription) {
		live.Status = types.SubscriptionStatusPastDue
		live.CancelAtPeriodEnd = true
		live.Metadata["plan"] = "basic"
	})

	synced, err := s.sync.SyncByExternalID(s.GetContext(), created.ExternalSubscriptionID)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusPastDue, synced.Status)
	s.True(synced.CancelAtPeriodEnd)
	s.Equal("basic", synced.Metadata["plan"])
}

func (s *SynchronizerSuite) TestErrors() {
	_, err := s.sync.SyncByExternalID(s.GetContext(), "")
	s.True(ierr.IsValidation(err))

	_, err = s.sync.SyncByExternalID(s.GetContext(), "sub_missing")
	s.True(ierr.IsNotFound(err))
	s.True(ierr.IsProcessor(err))
}
