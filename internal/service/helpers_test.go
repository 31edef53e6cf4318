package service

import (
	"context"

	"github.com/subsync/subsync/internal/domain/user"
	"github.com/subsync/subsync/internal/idempotency"
	"github.com/subsync/subsync/internal/testutil"
)

// newTestParams wires every service dependency to the suite's in-memory doubles
func newTestParams(s *testutil.BaseServiceTestSuite) ServiceParams {
	stores := s.GetStores()
	return ServiceParams{
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
}

func seedUser(ctx context.Context, s *testutil.BaseServiceTestSuite, email, name, customerID string) *user.User {
	u := user.NewUser(email, name, customerID)
	s.Require().NoError(s.GetStores().UserRepo.Create(ctx, u))
	return u
}
