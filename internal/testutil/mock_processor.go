package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/subsync/subsync/internal/domain/processor"
)

var _ processor.Client = (*MockProcessor)(nil)

// MockProcessor is a testify mock of processor.Client
type MockProcessor struct {
	mock.Mock
}

func NewMockProcessor() *MockProcessor {
	return &MockProcessor{}
}

func (m *MockProcessor) CreateCustomer(ctx context.Context, params processor.CreateCustomerParams) (*processor.Customer, error) {
	args := m.Called(ctx, params)
	return returnPtr[processor.Customer](args)
}

func (m *MockProcessor) UpdateCustomer(ctx context.Context, params processor.UpdateCustomerParams) (*processor.Customer, error) {
	args := m.Called(ctx, params)
	return returnPtr[processor.Customer](args)
}

func (m *MockProcessor) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	return m.Called(ctx, customerID, paymentMethodID).Error(0)
}

func (m *MockProcessor) SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	return m.Called(ctx, customerID, paymentMethodID).Error(0)
}

func (m *MockProcessor) CreateSubscription(ctx context.Context, params processor.CreateSubscriptionParams) (*processor.Subscription, error) {
	args := m.Called(ctx, params)
	return returnPtr[processor.Subscription](args)
}

func (m *MockProcessor) RetrieveSubscription(ctx context.Context, id string, expandInvoice bool) (*processor.Subscription, error) {
	args := m.Called(ctx, id, expandInvoice)
	return returnPtr[processor.Subscription](args)
}

func (m *MockProcessor) UpdateSubscriptionItem(ctx context.Context, params processor.UpdateSubscriptionItemParams) (*processor.Subscription, error) {
	args := m.Called(ctx, params)
	return returnPtr[processor.Subscription](args)
}

func (m *MockProcessor) CancelSubscription(ctx context.Context, id string) (*processor.Subscription, error) {
	args := m.Called(ctx, id)
	return returnPtr[processor.Subscription](args)
}

func (m *MockProcessor) RetrieveInvoice(ctx context.Context, id string) (*processor.Invoice, error) {
	args := m.Called(ctx, id)
	return returnPtr[processor.Invoice](args)
}

func (m *MockProcessor) RetrievePaymentIntent(ctx context.Context, id string) (*processor.PaymentIntent, error) {
	args := m.Called(ctx, id)
	return returnPtr[processor.PaymentIntent](args)
}

func (m *MockProcessor) CreateRefund(ctx context.Context, params processor.CreateRefundParams) (*processor.Refund, error) {
	args := m.Called(ctx, params)
	return returnPtr[processor.Refund](args)
}

func (m *MockProcessor) CreateScheduleFromSubscription(ctx context.Context, subscriptionID string) (*processor.Schedule, error) {
	args := m.Called(ctx, subscriptionID)
	return returnPtr[processor.Schedule](args)
}

func (m *MockProcessor) RetrieveSchedule(ctx context.Context, id string) (*processor.Schedule, error) {
	args := m.Called(ctx, id)
	return returnPtr[processor.Schedule](args)
}

func (m *MockProcessor) UpdateSchedule(ctx context.Context, params processor.UpdateScheduleParams) (*processor.Schedule, error) {
	args := m.Called(ctx, params)
	return returnPtr[processor.Schedule](args)
}

func (m *MockProcessor) ListPrices(ctx context.Context, params processor.ListPricesParams) ([]*processor.Price, error) {
	args := m.Called(ctx, params)
	if v := args.Get(0); v != nil {
		return v.([]*processor.Price), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProcessor) RetrieveProduct(ctx context.Context, id string) (*processor.Product, error) {
	args := m.Called(ctx, id)
	return returnPtr[processor.Product](args)
}

func (m *MockProcessor) ConstructEvent(payload []byte, signature string) (*processor.Event, error) {
	args := m.Called(payload, signature)
	return returnPtr[processor.Event](args)
}

func returnPtr[T any](args mock.Arguments) (*T, error) {
	if v := args.Get(0); v != nil {
		return v.(*T), args.Error(1)
	}
	return nil, args.Error(1)
}
