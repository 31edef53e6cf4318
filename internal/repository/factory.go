package repository

import (
	"github.com/subsync/subsync/internal/domain/events"
	"github.com/subsync/subsync/internal/domain/plan"
	"github.com/subsync/subsync/internal/domain/refund"
	"github.com/subsync/subsync/internal/domain/subscription"
	"github.com/subsync/subsync/internal/domain/user"
	"github.com/subsync/subsync/internal/logger"
	"github.com/subsync/subsync/internal/postgres"
	postgresRepo "github.com/subsync/subsync/internal/repository/postgres"
	"go.uber.org/fx"
)

// Module provides every repository backed by postgres
var Module = fx.Provide(
	NewSubscriptionRepository,
	NewPlanRepository,
	NewUserRepository,
	NewRefundRepository,
	NewProcessedEventRepository,
)

func NewSubscriptionRepository(db *postgres.DB, logger *logger.Logger) subscription.Repository {
	return postgresRepo.NewSubscriptionRepository(db, logger)
}

func NewPlanRepository(db *postgres.DB, logger *logger.Logger) plan.Repository {
	return postgresRepo.NewPlanRepository(db, logger)
}

func NewUserRepository(db *postgres.DB, logger *logger.Logger) user.Repository {
	return postgresRepo.NewUserRepository(db, logger)
}

func NewRefundRepository(db *postgres.DB, logger *logger.Logger) refund.Repository {
	return postgresRepo.NewRefundRepository(db, logger)
}

func NewProcessedEventRepository(db *postgres.DB, logger *logger.Logger) events.ProcessedEventRepository {
	return postgresRepo.NewProcessedEventRepository(db, logger)
}
