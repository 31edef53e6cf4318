package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/subsync/subsync/internal/config"
	"github.com/subsync/subsync/internal/logger"
	sentryService "github.com/subsync/subsync/internal/sentry"
)

// DB wraps sqlx.DB to provide transaction management
type DB struct {
	*sqlx.DB
	logger       *logger.Logger
	sentry       *sentryService.Service
	queryTimeout time.Duration
}

// Querier interface defines all database operations
// Both *sqlx.DB and *sqlx.Tx implement these methods
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

// NewDB opens the connection pool described by the postgres config section
func NewDB(cfg *config.Configuration, logger *logger.Logger, sentry *sentryService.Service) (*DB, error) {
	db, err := sqlx.Open("postgres", cfg.Postgres.GetDSN())
	if err != nil {
		return nil, err
	}

	if cfg.Postgres.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	}
	if cfg.Postgres.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	}
	if cfg.Postgres.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)
	}

	return NewFromSQLX(db, cfg.Postgres.QueryTimeout, logger, sentry), nil
}

// NewFromSQLX wraps an existing handle; used by tests with sqlmock
func NewFromSQLX(db *sqlx.DB, queryTimeout time.Duration, logger *logger.Logger, sentry *sentryService.Service) *DB {
	return &DB{DB: db, logger: logger, sentry: sentry, queryTimeout: queryTimeout}
}

// Close closes the database connection
func (db *DB) Close() {
	if err := db.DB.Close(); err != nil {
		db.logger.Errorw("error closing database", "error", err)
	}
}

func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

// GetQuerier returns either the transaction from context or the base DB
func (db *DB) GetQuerier(ctx context.Context) Querier {
	if tx, ok := GetTx(ctx); ok {
		return NewTracedQuerier(tx.Tx, db.logger, tx.ID)
	}
	return NewTracedQuerier(db.DB, db.logger, "")
}

// WithTimeout bounds a single repository call by the configured query timeout
func (db *DB) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if db.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, db.queryTimeout)
}

// StartSpan opens a sentry span for a repository operation
func (db *DB) StartSpan(ctx context.Context, repository, operation string, params map[string]interface{}) (func(), context.Context) {
	if params == nil {
		params = map[string]interface{}{}
	}
	params["repository"] = repository
	span, spanCtx := db.sentry.StartDBSpan(ctx, repository+"."+operation, params)
	return func() { sentryService.FinishSpan(span) }, spanCtx
}
