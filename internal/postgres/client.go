package postgres

import (
	"context"

	"github.com/subsync/subsync/internal/config"
	"github.com/subsync/subsync/internal/logger"
	"go.uber.org/fx"
)

// IClient is what services need from the database: transactional scoping
type IClient interface {
	// WithTx wraps the given function in a transaction
	WithTx(ctx context.Context, fn func(context.Context) error) error
	// Ping reports whether the database is reachable
	Ping(ctx context.Context) error
}

var _ IClient = (*DB)(nil)

// Module provides the database handle and closes it on shutdown
func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			NewDB,
			func(db *DB) IClient { return db },
		),
		fx.Invoke(registerHooks),
	)
}

func registerHooks(lc fx.Lifecycle, db *DB, cfg *config.Configuration, log *logger.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := db.PingContext(ctx); err != nil {
				log.Errorw("failed to reach postgres", "host", cfg.Postgres.Host, "error", err)
				return err
			}
			log.Infow("connected to postgres", "host", cfg.Postgres.Host, "dbname", cfg.Postgres.DBName)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			db.Close()
			return nil
		},
	})
}
