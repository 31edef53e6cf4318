package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	ierr "github.com/subsync/subsync/internal/errors"
	"github.com/subsync/subsync/internal/types"
)

type txKey struct{}

// Tx is a transaction carried in the context so repositories join it through GetQuerier
type Tx struct {
	*sqlx.Tx
	ID string
}

// GetTx returns the transaction bound to ctx, if any
func GetTx(ctx context.Context) (*Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*Tx)
	return tx, ok
}

// WithTx runs fn inside a read committed transaction. A call made while a transaction is
// already bound to ctx runs fn in that transaction; the outermost call commits or rolls back.
func (db *DB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := GetTx(ctx); ok {
		return fn(ctx)
	}

	finish, ctx := db.StartSpan(ctx, "postgres", "transaction", nil)
	defer finish()

	sqlxTx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to start a database transaction").
			Mark(ierr.ErrDatabase)
	}
	tx := &Tx{Tx: sqlxTx, ID: types.GenerateUUID()}
	log := db.logger.With("tx_id", tx.ID)
	log.Debugw("transaction started")

	defer func() {
		if r := recover(); r != nil {
			log.Errorw("panic in transaction", "panic", r)
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		log.Errorw("transaction rolled back", "error", err)
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Errorw("rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to commit the database transaction").
			Mark(ierr.ErrDatabase)
	}
	log.Debugw("transaction committed")
	return nil
}
