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

type RefundServiceSuite struct {
	testutil.BaseServiceTestSuite
	refundService RefundService
	subscriptions SubscriptionService
}

func TestRefundService(t *testing.T) {
	suite.Run(t, new(RefundServiceSuite))
}

func (s *RefundServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.GetProcessor().AddPrice("price_basic", "prod_basic", 1000)
	params := newTestParams(&s.BaseServiceTestSuite)
	s.refundService = NewRefundService(params)
	s.subscriptions = NewSubscriptionService(params)
}

func (s *RefundServiceSuite) TestEventBeforeAndAfterCancellation() {
	created, err := s.subscriptions.CreateSubscription(s.GetContext(), dto.CreateSubscriptionRequest{
		CustomerID:      "cus_1",
		PriceID:         "price_basic",
		PaymentMethodID: "pm_1",
	})
	s.Require().NoError(err)

	cancelled, err := s.subscriptions.CancelSubscription(s.GetContext(), created.SubscriptionID)
	s.Require().NoError(err)
	s.Require().NotEmpty(cancelled.RefundID)

	// refund.updated for the refund issued on cancellation updates the audit row
	issued := *s.GetProcessor().Refunds()[0]
	issued.Status = "pending"
	stored, err := s.refundService.UpsertFromProcessor(s.GetContext(), &issued)
	s.Require().NoError(err)
	s.Equal(created.SubscriptionID, lo.FromPtr(stored.SubscriptionID))

	rows, err := s.refundService.ListBySubscription(s.GetContext(), created.SubscriptionID)
	s.Require().NoError(err)
	s.Require().Len(rows.Items, 1)
	s.Equal("pending", rows.Items[0].Status)
	s.Equal(int64(1000), rows.Items[0].Amount)
}

func (s *RefundServiceSuite) TestRefundFromDashboard() {
	stored, err := s.refundService.UpsertFromProcessor(s.GetContext(), &processor.Refund{
		ID:       "re_manual",
		Amount:   300,
		Currency: "usd",
		Charge:   types.RefID[processor.ObjectRef]("ch_9"),
		Status:   "succeeded",
	})
	s.Require().NoError(err)
	s.Nil(stored.SubscriptionID)
	s.Equal("ch_9", lo.FromPtr(stored.ChargeRef))

	_, err = s.refundService.UpsertFromProcessor(s.GetContext(), &processor.Refund{})
	s.True(ierr.IsValidation(err))
}

func (s *RefundServiceSuite) TestListBySubscription_Unknown() {
	_, err := s.refundService.ListBySubscription(s.GetContext(), "subs_missing")
	s.True(ierr.IsNotFound(err))
}
