package service

import (
	"time"

	"github.com/subsync/subsync/internal/cache"
	"github.com/subsync/subsync/internal/config"
	"github.com/subsync/subsync/internal/domain/events"
	"github.com/subsync/subsync/internal/domain/plan"
	"github.com/subsync/subsync/internal/domain/processor"
	"github.com/subsync/subsync/internal/domain/refund"
	"github.com/subsync/subsync/internal/domain/subscription"
	"github.com/subsync/subsync/internal/domain/user"
	"github.com/subsync/subsync/internal/idempotency"
	"github.com/subsync/subsync/internal/logger"
	"github.com/subsync/subsync/internal/notification"
	"github.com/subsync/subsync/internal/observability"
	"github.com/subsync/subsync/internal/postgres"
	"github.com/subsync/subsync/internal/sentry"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger  *logger.Logger
	Config  *config.Configuration
	DB      postgres.IClient
	Cache   cache.Cache
	Metrics *observability.Metrics
	Sentry  *sentry.Service

	// Repositories
	SubRepo            subscription.Repository
	PlanRepo           plan.Repository
	UserRepo           user.Repository
	RefundRepo         refund.Repository
	ProcessedEventRepo events.ProcessedEventRepository

	// Collaborators
	Processor      processor.Client
	Notifier       notification.Notifier
	IdempotencyGen *idempotency.Generator

	// Now is the service clock, injected so refund windows can be tested
	Now func() time.Time
}

// Common service params
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	cache cache.Cache,
	metrics *observability.Metrics,
	sentry *sentry.Service,
	subRepo subscription.Repository,
	planRepo plan.Repository,
	userRepo user.Repository,
	refundRepo refund.Repository,
	processedEventRepo events.ProcessedEventRepository,
	processorClient processor.Client,
	notifier notification.Notifier,
	idempotencyGen *idempotency.Generator,
) ServiceParams {
	return ServiceParams{
		Logger:             logger,
		Config:             config,
		DB:                 db,
		Cache:              cache,
		Metrics:            metrics,
		Sentry:             sentry,
		SubRepo:            subRepo,
		PlanRepo:           planRepo,
		UserRepo:           userRepo,
		RefundRepo:         refundRepo,
		ProcessedEventRepo: processedEventRepo,
		Processor:          processorClient,
		Notifier:           notifier,
		IdempotencyGen:     idempotencyGen,
		Now:                func() time.Time { return time.Now().UTC() },
	}
}

func (p ServiceParams) now() time.Time {
	if p.Now == nil {
		return time.Now().UTC()
	}
	return p.Now()
}
