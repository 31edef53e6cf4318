package service

import (
	"context"
	"strconv"

	"github.com/samber/lo"
	"github.com/subsync/subsync/internal/api/dto"
	"github.com/subsync/subsync/internal/domain/processor"
	"github.com/subsync/subsync/internal/domain/refund"
	"github.com/subsync/subsync/internal/domain/subscription"
	"github.com/subsync/subsync/internal/domain/user"
	ierr "github.com/subsync/subsync/internal/errors"
	"github.com/subsync/subsync/internal/notification"
	"github.com/subsync/subsync/internal/types"
)

const refundStatusNone = "none"

type SubscriptionService interface {
	CreateSubscription(ctx context.Context, req dto.CreateSubscriptionRequest) (*dto.CreateSubscriptionResponse, error)
	// GetSubscription accepts a local id or a processor subscription id
	GetSubscription(ctx context.Context, id string) (*dto.SubscriptionResponse, error)
	ListSubscriptions(ctx context.Context, filter *types.SubscriptionFilter) (*dto.ListSubscriptionsResponse, error)
	GetActiveSubscription(ctx context.Context, customerID string) (*dto.SubscriptionResponse, error)
	UpgradeSubscription(ctx context.Context, id string, req dto.ChangePriceRequest) (*dto.SubscriptionResponse, error)
	ScheduleDowngrade(ctx context.Context, id string, req dto.ChangePriceRequest) (*dto.SubscriptionResponse, error)
	// CancelSubscription cancels immediately and refunds the unused part of the period
	CancelSubscription(ctx context.Context, id string) (*dto.CancelSubscriptionResponse, error)
}

type subscriptionService struct {
	ServiceParams
	schedules ScheduleManager
}

func NewSubscriptionService(params ServiceParams) SubscriptionService {
	return &subscriptionService{
		ServiceParams: params,
		schedules:     NewScheduleManager(params),
	}
}

func (s *subscriptionService) CreateSubscription(ctx context.Context, req dto.CreateSubscriptionRequest) (*dto.CreateSubscriptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	log := s.Logger.WithContext(ctx)

	u, err := s.lookupUser(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}
	if u == nil || u.Email == "" {
		log.Warnw("no email on file for customer, notifications will be skipped", "customer_id", req.CustomerID)
	}

	if err := s.Processor.AttachPaymentMethod(ctx, req.CustomerID, req.PaymentMethodID); err != nil {
		return nil, err
	}
	if err := s.Processor.SetDefaultPaymentMethod(ctx, req.CustomerID, req.PaymentMethodID); err != nil {
		return nil, err
	}

	// not atomic: two concurrent creates for one customer can both pass this check
	existing, err := s.SubRepo.GetInForceByCustomer(ctx, req.CustomerID)
	if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return nil, ierr.NewError("customer already has a subscription in force").
			WithHint("You already have an active subscription").
			WithReportableDetails(map[string]any{
				"customer_id":     req.CustomerID,
				"subscription_id": existing.ID,
			}).
			Mark(ierr.ErrAlreadySubscribed)
	}

	params := processor.CreateSubscriptionParams{
		CustomerID: req.CustomerID,
		PriceID:    req.PriceID,
	}
	if requestID := types.GetRequestID(ctx); requestID != "" {
		params.IdempotencyKey = s.IdempotencyGen.CreateSubscriptionKey(req.CustomerID, req.PriceID, requestID)
	}

	live, err := s.Processor.CreateSubscription(ctx, params)
	if err != nil {
		return nil, err
	}

	resp := &dto.CreateSubscriptionResponse{
		ExternalSubscriptionID: live.ID,
		Status:                 live.Status,
	}

	inv := live.LatestInvoice
	var pi *processor.PaymentIntent
	if inv != nil {
		resp.InvoiceStatus = inv.Status
		pi = inv.PaymentIntent
	}

	switch {
	case inv != nil && inv.Status == types.InvoiceStatusPaid:
		resp.Outcome = types.PaymentOutcomePaid
		resp.ChargeID = inv.ChargeID()
		if resp.ChargeID == "" {
			log.Warnw("paid invoice has no charge reference",
				"external_subscription_id", live.ID,
				"invoice_id", inv.ID,
			)
		}
	case pi != nil && pi.Status == types.PaymentIntentStatusRequiresAction:
		resp.Outcome = types.PaymentOutcomeRequiresAction
		resp.Message = "Payment requires additional authentication"
		resp.ClientSecret = pi.ClientSecret
		log.Infow("subscription payment requires action", "external_subscription_id", live.ID)
		return resp, nil
	case pi != nil && pi.Status == types.PaymentIntentStatusRequiresPaymentMethod:
		resp.Outcome = types.PaymentOutcomeRequiresPaymentMethod
		resp.Message = "Payment failed, please provide a new payment method"
		log.Infow("subscription payment requires a new payment method", "external_subscription_id", live.ID)
		return resp, nil
	default:
		return nil, ierr.NewError("subscription payment did not succeed").
			WithHint("Payment was not successful").
			WithReportableDetails(map[string]any{
				"external_subscription_id": live.ID,
				"invoice_status":           resp.InvoiceStatus,
			}).
			Mark(ierr.ErrPaymentNotSuccessful)
	}

	stored, err := s.SubRepo.Upsert(ctx, subscriptionFromProcessor(live, s.now()))
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to save subscription").
			Mark(ierr.ErrPersistence)
	}

	log.Infow("subscription created",
		"subscription_id", stored.ID,
		"external_subscription_id", stored.ExternalSubscriptionID,
		"customer_id", stored.CustomerID,
		"price_id", stored.PriceID,
		"status", stored.Status,
	)

	s.notify(ctx, u, stored, notification.Created{})

	resp.Message = "Subscription created successfully"
	resp.SubscriptionID = stored.ID
	resp.Status = stored.Status
	return resp, nil
}

func (s *subscriptionService) GetSubscription(ctx context.Context, id string) (*dto.SubscriptionResponse, error) {
	sub, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.SubscriptionResponse{Subscription: sub}, nil
}

func (s *subscriptionService) ListSubscriptions(ctx context.Context, filter *types.SubscriptionFilter) (*dto.ListSubscriptionsResponse, error) {
	if filter == nil {
		filter = types.NewSubscriptionFilter()
	}

	if err := filter.Validate(); err != nil {
		return nil, err
	}

	subs, err := s.SubRepo.List(ctx, filter)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to retrieve subscriptions").
			Mark(ierr.ErrDatabase)
	}

	total, err := s.SubRepo.Count(ctx, filter)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to count subscriptions").
			Mark(ierr.ErrDatabase)
	}

	items := lo.Map(subs, func(sub *subscription.Subscription, _ int) *dto.SubscriptionResponse {
		return &dto.SubscriptionResponse{Subscription: sub}
	})
	resp := types.NewListResponse(items, total, filter.GetLimit(), filter.GetOffset())
	return &resp, nil
}

func (s *subscriptionService) GetActiveSubscription(ctx context.Context, customerID string) (*dto.SubscriptionResponse, error) {
	if customerID == "" {
		return nil, ierr.NewError("customer id is required").
			WithHint("Please provide a valid customer id").
			Mark(ierr.ErrValidation)
	}

	sub, err := s.SubRepo.GetInForceByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return &dto.SubscriptionResponse{Subscription: sub}, nil
}

func (s *subscriptionService) UpgradeSubscription(ctx context.Context, id string, req dto.ChangePriceRequest) (*dto.SubscriptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sub, err := s.SubRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	live, err := s.Processor.RetrieveSubscription(ctx, sub.ExternalSubscriptionID, false)
	if err != nil {
		return nil, err
	}

	item, ok := live.PrimaryItem()
	if !ok {
		return nil, ierr.NewError("processor subscription has no items").
			WithHint("Subscription item not found").
			WithReportableDetails(map[string]any{"external_subscription_id": live.ID}).
			Mark(ierr.ErrNotFound)
	}

	updated, err := s.Processor.UpdateSubscriptionItem(ctx, processor.UpdateSubscriptionItemParams{
		SubscriptionID:    live.ID,
		ItemID:            item.ID,
		PriceID:           req.NewPriceID,
		ProrationBehavior: types.ProrationBehaviorAlwaysInvoice,
	})
	if err != nil {
		return nil, err
	}

	previousPrice := sub.PriceID
	applyProcessorState(sub, updated, s.now())
	sub.PriceID = req.NewPriceID

	stored, err := s.SubRepo.Update(ctx, sub)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to save subscription").
			Mark(ierr.ErrPersistence)
	}

	s.Logger.WithContext(ctx).Infow("subscription upgraded",
		"subscription_id", stored.ID,
		"from_price_id", previousPrice,
		"to_price_id", stored.PriceID,
	)

	u, _ := s.lookupUser(ctx, stored.CustomerID)
	s.notify(ctx, u, stored, notification.Upgraded{})

	return &dto.SubscriptionResponse{Subscription: stored}, nil
}

func (s *subscriptionService) ScheduleDowngrade(ctx context.Context, id string, req dto.ChangePriceRequest) (*dto.SubscriptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sub, err := s.SubRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	stored, err := s.schedules.ScheduleDowngrade(ctx, sub, req.NewPriceID)
	if err != nil {
		return nil, err
	}

	u, _ := s.lookupUser(ctx, stored.CustomerID)
	s.notify(ctx, u, stored, notification.DowngradeScheduled{})

	return &dto.SubscriptionResponse{Subscription: stored}, nil
}

func (s *subscriptionService) CancelSubscription(ctx context.Context, id string) (*dto.CancelSubscriptionResponse, error) {
	sub, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	log := s.Logger.WithContext(ctx).With(
		"subscription_id", sub.ID,
		"external_subscription_id", sub.ExternalSubscriptionID,
	)

	live, err := s.Processor.RetrieveSubscription(ctx, sub.ExternalSubscriptionID, true)
	if err != nil {
		return nil, err
	}

	now := s.now()
	inv := live.LatestInvoice
	var amountPaid int64
	var currency string
	if inv != nil {
		amountPaid = inv.AmountPaid
		currency = inv.Currency
	}

	// the refund window is the period as it stood before cancelling
	start, end := live.CurrentPeriod()
	breakdown := refund.CalculateWithGrace(start, end, now.Unix(), amountPaid, s.Config.Refund.GraceDays)

	canceled, err := s.Processor.CancelSubscription(ctx, sub.ExternalSubscriptionID)
	if err != nil {
		return nil, err
	}

	issued := s.refundLatestInvoice(ctx, sub, inv, breakdown)

	sub.Status = types.SubscriptionStatusCancelled
	sub.CanceledAt = lo.ToPtr(now)
	sub.CancellationDate = lo.ToPtr(now)
	sub.EndedAt = lo.ToPtr(now)
	if endedAt := processor.Unix(canceled.EndedAt); endedAt != nil {
		sub.EndedAt = endedAt
	}
	sub.UpdatedAt = now

	audit := refund.NewRefund(sub.CustomerID)
	audit.SubscriptionID = lo.ToPtr(sub.ID)
	audit.AmountPaid = amountPaid
	audit.Currency = currency
	audit.Reason = refund.ReasonSubscriptionCancelled
	audit.Status = refundStatusNone
	audit.Metadata = types.Metadata{
		"days_total":  strconv.FormatInt(breakdown.DaysTotal, 10),
		"days_used":   strconv.FormatInt(breakdown.DaysUsed, 10),
		"days_unused": strconv.FormatInt(breakdown.DaysUnused, 10),
	}
	if chargeID := inv.ChargeID(); chargeID != "" {
		audit.ChargeRef = lo.ToPtr(chargeID)
	}
	if issued != nil {
		audit.ExternalRefundID = lo.ToPtr(issued.ID)
		audit.Amount = issued.Amount
		audit.Status = issued.Status
		if issued.Currency != "" {
			audit.Currency = issued.Currency
		}
		if chargeID := issued.Charge.ID(); chargeID != "" {
			audit.ChargeRef = lo.ToPtr(chargeID)
		}
	}

	var stored *subscription.Subscription
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		var err error
		stored, err = s.SubRepo.Update(ctx, sub)
		if err != nil {
			return err
		}
		if stored == nil {
			return ierr.NewError("cancelled subscription was not returned by the store").
				Mark(ierr.ErrPersistence)
		}

		// a refund event may already have created the row for this processor refund
		if audit.ExternalRefundID != nil {
			_, err = s.RefundRepo.UpsertByExternalID(ctx, audit)
			return err
		}
		return s.RefundRepo.Create(ctx, audit)
	})
	if err != nil {
		log.Errorw("subscription cancelled at processor but local write failed", "error", err)
		s.Sentry.CaptureException(err)
		return nil, ierr.WithError(err).
			WithHint("Subscription was cancelled but could not be saved").
			Mark(ierr.ErrPersistence)
	}

	log.Infow("subscription cancelled",
		"refund_amount", audit.Amount,
		"days_used", breakdown.DaysUsed,
		"days_total", breakdown.DaysTotal,
	)

	u, _ := s.lookupUser(ctx, stored.CustomerID)
	s.notify(ctx, u, stored, notification.Cancelled{RefundAmount: audit.Amount, Currency: audit.Currency})

	return &dto.CancelSubscriptionResponse{
		Message:      "Subscription cancelled successfully",
		Subscription: stored,
		RefundID:     lo.FromPtr(audit.ExternalRefundID),
		RefundAmount: audit.Amount,
		Currency:     audit.Currency,
		DaysTotal:    breakdown.DaysTotal,
		DaysUsed:     breakdown.DaysUsed,
		DaysUnused:   breakdown.DaysUnused,
	}, nil
}

// refundLatestInvoice refunds the unused part of the period. It never fails the cancellation:
// every error is logged and reported and nil is returned.
func (s *subscriptionService) refundLatestInvoice(ctx context.Context, sub *subscription.Subscription, inv *processor.Invoice, b refund.Breakdown) *processor.Refund {
	log := s.Logger.WithContext(ctx).With("subscription_id", sub.ID)

	if inv == nil {
		log.Infow("no invoice to refund")
		return nil
	}
	if !b.ShouldRefund() {
		log.Infow("nothing to refund", "days_unused", b.DaysUnused, "amount_paid", inv.AmountPaid)
		return nil
	}

	// the refund outlives the request so a client disconnect cannot cut it short
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.Config.Stripe.RequestTimeout)
	defer cancel()

	chargeID := inv.ChargeID()
	if chargeID == "" && inv.PaymentIntent != nil && inv.PaymentIntent.ID != "" {
		pi, err := s.Processor.RetrievePaymentIntent(rctx, inv.PaymentIntent.ID)
		if err != nil {
			log.Errorw("failed to resolve charge for refund", "payment_intent_id", inv.PaymentIntent.ID, "error", err)
			s.Sentry.CaptureException(err)
			return nil
		}
		chargeID = pi.LatestChargeID
	}
	if chargeID == "" {
		log.Infow("latest invoice has no charge, skipping refund", "invoice_id", inv.ID)
		return nil
	}

	issued, err := s.Processor.CreateRefund(rctx, processor.CreateRefundParams{
		ChargeID: chargeID,
		Amount:   b.Amount,
		Reason:   processor.RefundReasonRequestedByCustomer,
		Metadata: map[string]string{
			refund.MetadataCustomerID:     sub.CustomerID,
			refund.MetadataSubscriptionID: sub.ID,
		},
		IdempotencyKey: s.IdempotencyGen.RefundKey(chargeID, b.Amount, sub.ExternalSubscriptionID),
	})
	s.Metrics.ObserveRefund(err, b.Amount)
	if err != nil {
		log.Errorw("refund failed, cancellation proceeds",
			"charge_id", chargeID,
			"amount", b.Amount,
			"error", err,
		)
		s.Sentry.CaptureException(err)
		return nil
	}

	log.Infow("refund issued",
		"refund_id", issued.ID,
		"charge_id", chargeID,
		"amount", issued.Amount,
		"full_refund", b.FullRefund,
	)
	return issued
}

// lookup resolves a local id first and falls back to the processor subscription id
func (s *subscriptionService) lookup(ctx context.Context, id string) (*subscription.Subscription, error) {
	if id == "" {
		return nil, ierr.NewError("subscription id is required").
			WithHint("Please provide a valid subscription id").
			Mark(ierr.ErrValidation)
	}

	sub, err := s.SubRepo.Get(ctx, id)
	if err == nil {
		return sub, nil
	}
	if !ierr.IsNotFound(err) {
		return nil, err
	}
	return s.SubRepo.GetByExternalID(ctx, id)
}

// lookupUser returns nil without error when the customer has no local user
func (s *subscriptionService) lookupUser(ctx context.Context, customerID string) (*user.User, error) {
	u, err := s.UserRepo.GetByExternalCustomerID(ctx, customerID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func (s *subscriptionService) notify(ctx context.Context, u *user.User, sub *subscription.Subscription, kind notification.Kind) {
	if u == nil || u.Email == "" {
		return
	}
	s.Notifier.Notify(ctx, notification.Notification{
		Kind:           kind,
		To:             u.Email,
		Name:           u.DisplayName(),
		SubscriptionID: sub.ID,
	})
}
