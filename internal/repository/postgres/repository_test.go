package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
	"github.com/subsync/subsync/internal/domain/events"
	"github.com/subsync/subsync/internal/domain/subscription"
	"github.com/subsync/subsync/internal/domain/user"
	ierr "github.com/subsync/subsync/internal/errors"
	"github.com/subsync/subsync/internal/logger"
	"github.com/subsync/subsync/internal/postgres"
	"github.com/subsync/subsync/internal/types"
)

type RepositorySuite struct {
	suite.Suite
	ctx  context.Context
	mock sqlmock.Sqlmock
	db   *postgres.DB
	raw  *sql.DB
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositorySuite))
}

func (s *RepositorySuite) SetupTest() {
	raw, mock, err := sqlmock.New()
	s.Require().NoError(err)
	s.raw = raw
	s.mock = mock
	s.ctx = context.Background()
	s.db = postgres.NewFromSQLX(sqlx.NewDb(raw, "postgres"), time.Second, logger.NewNoopLogger(), nil)
}

func (s *RepositorySuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	s.raw.Close()
}

var subscriptionRowColumns = []string{
	"id", "customer_id", "external_subscription_id", "price_id", "status", "cancel_at_period_end",
	"current_period_start", "current_period_end", "scheduled_downgrade_price_id", "scheduled_downgrade_date",
	"schedule_id", "started_at", "ended_at", "cancellation_date", "canceled_at", "metadata", "created_at", "updated_at",
}

func subscriptionRow(sub *subscription.Subscription) *sqlmock.Rows {
	return sqlmock.NewRows(subscriptionRowColumns).AddRow(
		sub.ID, sub.CustomerID, sub.ExternalSubscriptionID, sub.PriceID, string(sub.Status), sub.CancelAtPeriodEnd,
		sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.ScheduledDowngradePriceID, sub.ScheduledDowngradeDate,
		sub.ScheduleID, sub.StartedAt, sub.EndedAt, sub.CancellationDate, sub.CanceledAt, []byte(`{"plan":"pro"}`),
		sub.CreatedAt, sub.UpdatedAt,
	)
}

func (s *RepositorySuite) testSubscription() *subscription.Subscription {
	now := time.Now().UTC().Truncate(time.Second)
	return &subscription.Subscription{
		ID:                     "subs_1",
		CustomerID:             "cus_1",
		ExternalSubscriptionID: "sub_ext_1",
		PriceID:                "price_pro",
		Status:                 types.SubscriptionStatusActive,
		CurrentPeriodStart:     lo.ToPtr(now),
		CurrentPeriodEnd:       lo.ToPtr(now.AddDate(0, 1, 0)),
		Metadata:               types.Metadata{"plan": "pro"},
		BaseModel:              types.BaseModel{CreatedAt: now, UpdatedAt: now},
	}
}

func (s *RepositorySuite) TestSubscription_GetByExternalID() {
	repo := NewSubscriptionRepository(s.db, logger.NewNoopLogger())
	sub := s.testSubscription()

	s.mock.ExpectQuery(regexp.QuoteMeta("FROM subscriptions WHERE external_subscription_id = $1")).
		WithArgs("sub_ext_1").
		WillReturnRows(subscriptionRow(sub))

	got, err := repo.GetByExternalID(s.ctx, "sub_ext_1")
	s.Require().NoError(err)
	s.Equal("subs_1", got.ID)
	s.Equal(types.SubscriptionStatusActive, got.Status)
	s.Equal("pro", got.Metadata["plan"])
	s.Nil(got.ScheduleID)
}

func (s *RepositorySuite) TestSubscription_GetByExternalID_NotFound() {
	repo := NewSubscriptionRepository(s.db, logger.NewNoopLogger())

	s.mock.ExpectQuery(regexp.QuoteMeta("FROM subscriptions WHERE external_subscription_id = $1")).
		WithArgs("sub_missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByExternalID(s.ctx, "sub_missing")
	s.True(ierr.IsNotFound(err))
}

func (s *RepositorySuite) TestSubscription_GetInForceByCustomer() {
	repo := NewSubscriptionRepository(s.db, logger.NewNoopLogger())
	sub := s.testSubscription()

	s.mock.ExpectQuery(regexp.QuoteMeta("WHERE customer_id = $1 AND status IN ($2, $3) ORDER BY created_at DESC LIMIT 1")).
		WithArgs("cus_1", "active", "trialing").
		WillReturnRows(subscriptionRow(sub))

	got, err := repo.GetInForceByCustomer(s.ctx, "cus_1")
	s.Require().NoError(err)
	s.Equal("sub_ext_1", got.ExternalSubscriptionID)
}

func (s *RepositorySuite) TestSubscription_SyncUpsertKeepsLocalScheduleColumns() {
	repo := NewSubscriptionRepository(s.db, logger.NewNoopLogger())
	sub := s.testSubscription()

	s.mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (external_subscription_id) DO UPDATE SET")).
		WillReturnRows(subscriptionRow(sub))

	got, err := repo.SyncUpsert(s.ctx, sub)
	s.Require().NoError(err)
	s.Equal("subs_1", got.ID)
}

func (s *RepositorySuite) TestSubscription_SyncUpsertFollowsProcessorSchedule() {
	repo := NewSubscriptionRepository(s.db, logger.NewNoopLogger())
	sub := s.testSubscription()
	sub.ScheduleID = lo.ToPtr("sub_sched_new")

	s.mock.ExpectQuery(regexp.QuoteMeta("schedule_id = NULLIF(EXCLUDED.schedule_id, '')")).
		WillReturnRows(subscriptionRow(sub))

	got, err := repo.SyncUpsert(s.ctx, sub)
	s.Require().NoError(err)
	s.Equal("sub_sched_new", lo.FromPtr(got.ScheduleID))
	s.Nil(got.ScheduledDowngradePriceID)
}

func (s *RepositorySuite) TestSubscription_SyncUpsertClearsDowngradeOnScheduleChange() {
	repo := NewSubscriptionRepository(s.db, logger.NewNoopLogger())
	sub := s.testSubscription()
	sub.ScheduleID = lo.ToPtr("sub_sched_new")

	s.mock.ExpectQuery(regexp.QuoteMeta("WHEN subscriptions.schedule_id IS DISTINCT FROM EXCLUDED.schedule_id THEN NULL")).
		WillReturnRows(subscriptionRow(sub))

	_, err := repo.SyncUpsert(s.ctx, sub)
	s.Require().NoError(err)
}

func (s *RepositorySuite) TestSubscription_UpdateMissingRow() {
	repo := NewSubscriptionRepository(s.db, logger.NewNoopLogger())
	sub := s.testSubscription()

	s.mock.ExpectQuery(regexp.QuoteMeta("UPDATE subscriptions SET")).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Update(s.ctx, sub)
	s.True(ierr.IsNotFound(err))
}

func (s *RepositorySuite) TestSubscription_ListWithFilters() {
	repo := NewSubscriptionRepository(s.db, logger.NewNoopLogger())
	sub := s.testSubscription()

	filter := types.NewSubscriptionFilter()
	filter.CustomerID = "cus_1"
	filter.Statuses = []types.SubscriptionStatus{types.SubscriptionStatusActive}

	s.mock.ExpectQuery(regexp.QuoteMeta("WHERE customer_id = $1 AND status IN ($2) ORDER BY created_at DESC LIMIT $3 OFFSET $4")).
		WithArgs("cus_1", "active", 50, 0).
		WillReturnRows(subscriptionRow(sub))

	subs, err := repo.List(s.ctx, filter)
	s.Require().NoError(err)
	s.Len(subs, 1)
}

func (s *RepositorySuite) TestProcessedEvent_InsertOnce() {
	repo := NewProcessedEventRepository(s.db, logger.NewNoopLogger())
	evt := events.NewProcessedEvent("evt_1", "customer.subscription.updated")

	s.mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (event_id) DO NOTHING")).
		WithArgs("evt_1", "customer.subscription.updated", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (event_id) DO NOTHING")).
		WithArgs("evt_1", "customer.subscription.updated", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	s.NoError(repo.Insert(s.ctx, evt))
	err := repo.Insert(s.ctx, evt)
	s.True(ierr.IsDuplicateKey(err))
}

func (s *RepositorySuite) TestProcessedEvent_Exists() {
	repo := NewProcessedEventRepository(s.db, logger.NewNoopLogger())

	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("evt_1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.Exists(s.ctx, "evt_1")
	s.Require().NoError(err)
	s.True(exists)
}

func (s *RepositorySuite) TestUser_CreateDuplicateEmail() {
	repo := NewUserRepository(s.db, logger.NewNoopLogger())
	u := user.NewUser("a@example.com", "A", "cus_1")

	s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(s.ctx, u)
	s.True(ierr.IsAlreadyExists(err))
}

func (s *RepositorySuite) TestUser_DeleteMissing() {
	repo := NewUserRepository(s.db, logger.NewNoopLogger())

	s.mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id = $1")).
		WithArgs("user_missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(s.ctx, "user_missing")
	s.True(ierr.IsNotFound(err))
}

func (s *RepositorySuite) TestPlan_UpdateProduct() {
	repo := NewPlanRepository(s.db, logger.NewNoopLogger())

	s.mock.ExpectExec(regexp.QuoteMeta("UPDATE plans SET name = $1, description = $2, active = $3")).
		WithArgs("Pro", "Pro plan", true, sqlmock.AnyArg(), "prod_1").
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.UpdateProduct(s.ctx, "prod_1", "Pro", "Pro plan", true)
	s.Require().NoError(err)
	s.Equal(int64(2), n)
}

func (s *RepositorySuite) TestWhereBuilder() {
	w := &whereBuilder{}
	s.Equal("", w.String())

	w.add("customer_id = ?", "cus_1")
	w.in("status", []string{"active", "trialing"})
	w.in("ignored", nil)
	s.Equal(" WHERE customer_id = $1 AND status IN ($2, $3)", w.String())
	s.Equal(" LIMIT $4 OFFSET $5", w.page(10, 20))
	s.Equal([]interface{}{"cus_1", "active", "trialing", 10, 20}, w.args)
}
