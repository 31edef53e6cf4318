package testutil

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"github.com/subsync/subsync/internal/cache"
	"github.com/subsync/subsync/internal/config"
	"github.com/subsync/subsync/internal/domain/events"
	"github.com/subsync/subsync/internal/domain/plan"
	"github.com/subsync/subsync/internal/domain/refund"
	"github.com/subsync/subsync/internal/domain/subscription"
	"github.com/subsync/subsync/internal/domain/user"
	"github.com/subsync/subsync/internal/logger"
	"github.com/subsync/subsync/internal/observability"
	"github.com/subsync/subsync/internal/postgres"
	"github.com/subsync/subsync/internal/types"
	"github.com/subsync/subsync/internal/validator"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
	SubscriptionRepo   subscription.Repository
	PlanRepo           plan.Repository
	UserRepo           user.Repository
	RefundRepo         refund.Repository
	ProcessedEventRepo events.ProcessedEventRepository
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx       context.Context
	stores    Stores
	processor *FakeProcessor
	notifier  *MockNotifier
	cache     *cache.InMemoryCache
	metrics   *observability.Metrics
	db        postgres.IClient
	logger    *logger.Logger
	config    *config.Configuration
	now       time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()

	cfg := config.GetDefaultConfig()
	cfg.Logging.Level = types.LogLevelInfo
	cfg.Cache.Enabled = true
	s.config = cfg

	var err error
	s.logger, err = logger.NewLogger(cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.setupContext()
	s.setupStores()
	s.now = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	s.processor = NewFakeProcessor()
	s.processor.Now = s.GetNow
	s.notifier = NewMockNotifier()
	s.cache = cache.NewInMemoryCache(s.config)
	s.db = NewMockPostgresClient(s.logger)

	// a fresh registry per test keeps collectors from colliding
	metrics, err := observability.NewMetrics(prometheus.NewRegistry())
	if err != nil {
		s.T().Fatalf("failed to create metrics: %v", err)
	}
	s.metrics = metrics
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
}

func (s *BaseServiceTestSuite) setupContext() {
	s.ctx = SetupContext()
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		SubscriptionRepo:   NewInMemorySubscriptionStore(),
		PlanRepo:           NewInMemoryPlanStore(),
		UserRepo:           NewInMemoryUserStore(),
		RefundRepo:         NewInMemoryRefundStore(),
		ProcessedEventRepo: NewInMemoryProcessedEventStore(),
	}
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.SubscriptionRepo.(*InMemorySubscriptionStore).Clear()
	s.stores.PlanRepo.(*InMemoryPlanStore).Clear()
	s.stores.UserRepo.(*InMemoryUserStore).Clear()
	s.stores.RefundRepo.(*InMemoryRefundStore).Clear()
	s.stores.ProcessedEventRepo.(*InMemoryProcessedEventStore).Clear()
	if s.notifier != nil {
		s.notifier.Clear()
	}
	if s.cache != nil {
		s.cache.Flush(s.ctx)
	}
}

// ClearStores clears all stores
func (s *BaseServiceTestSuite) ClearStores() {
	s.clearStores()
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetStores returns all test repositories
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetProcessor returns the in-memory payment processor
func (s *BaseServiceTestSuite) GetProcessor() *FakeProcessor {
	return s.processor
}

// GetNotifier returns the recording notifier
func (s *BaseServiceTestSuite) GetNotifier() *MockNotifier {
	return s.notifier
}

func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

func (s *BaseServiceTestSuite) GetMetrics() *observability.Metrics {
	return s.metrics
}

// GetDB returns the test database client
func (s *BaseServiceTestSuite) GetDB() postgres.IClient {
	return s.db
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetNow returns the suite clock; the fake processor reads the same clock
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}

// AdvanceClock moves the shared clock forward
func (s *BaseServiceTestSuite) AdvanceClock(d time.Duration) {
	s.now = s.now.Add(d)
}

// GetUUID returns a new prefixed id
func (s *BaseServiceTestSuite) GetUUID() string {
	return types.GenerateUUID()
}
