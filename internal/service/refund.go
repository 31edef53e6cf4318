package service

import (
	"context"

	"github.com/samber/lo"
	"github.com/subsync/subsync/internal/api/dto"
	"github.com/subsync/subsync/internal/domain/processor"
	"github.com/subsync/subsync/internal/domain/refund"
	ierr "github.com/subsync/subsync/internal/errors"
)

// RefundService keeps the refund audit table in line with processor refund events
type RefundService interface {
	UpsertFromProcessor(ctx context.Context, r *processor.Refund) (*refund.Refund, error)
	ListBySubscription(ctx context.Context, subscriptionID string) (*dto.ListRefundsResponse, error)
}

type refundService struct {
	ServiceParams
}

func NewRefundService(params ServiceParams) RefundService {
	return &refundService{ServiceParams: params}
}

func (s *refundService) UpsertFromProcessor(ctx context.Context, r *processor.Refund) (*refund.Refund, error) {
	if r == nil || r.ID == "" {
		return nil, ierr.NewError("refund id is required").
			WithHint("Refund payload is missing its id").
			Mark(ierr.ErrValidation)
	}

	row := refund.NewRefund(r.Metadata[refund.MetadataCustomerID])
	row.ExternalRefundID = lo.ToPtr(r.ID)
	row.SubscriptionID = lo.EmptyableToPtr(r.Metadata[refund.MetadataSubscriptionID])
	row.ChargeRef = lo.EmptyableToPtr(r.Charge.ID())
	row.Amount = r.Amount
	row.Currency = r.Currency
	row.Reason = r.Reason
	row.Status = r.Status
	row.Metadata = lo.Assign(map[string]string{}, r.Metadata)
	row.CreatedAt = s.now()
	row.UpdatedAt = row.CreatedAt

	stored, err := s.RefundRepo.UpsertByExternalID(ctx, row)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to save refund").
			Mark(ierr.ErrPersistence)
	}

	s.Logger.WithContext(ctx).Infow("refund recorded",
		"refund_id", r.ID,
		"subscription_id", lo.FromPtr(stored.SubscriptionID),
		"amount", stored.Amount,
		"status", stored.Status,
	)
	return stored, nil
}

func (s *refundService) ListBySubscription(ctx context.Context, subscriptionID string) (*dto.ListRefundsResponse, error) {
	if _, err := s.SubRepo.Get(ctx, subscriptionID); err != nil {
		return nil, err
	}

	rows, err := s.RefundRepo.ListBySubscription(ctx, subscriptionID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to retrieve refunds").
			Mark(ierr.ErrDatabase)
	}

	return &dto.ListRefundsResponse{
		Items: lo.Map(rows, func(r *refund.Refund, _ int) *dto.RefundResponse {
			return &dto.RefundResponse{Refund: r}
		}),
	}, nil
}
