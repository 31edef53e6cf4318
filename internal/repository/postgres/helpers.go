package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	ierr "github.com/subsync/subsync/internal/errors"
	"github.com/subsync/subsync/internal/postgres"
)

const pqUniqueViolation = "23505"

// namedGet binds a :name query against arg and scans the single returned row into dest
func namedGet(ctx context.Context, q postgres.Querier, dest interface{}, query string, arg interface{}) error {
	bound, args, err := sqlx.Named(query, arg)
	if err != nil {
		return err
	}
	return q.GetContext(ctx, dest, sqlx.Rebind(sqlx.DOLLAR, bound), args...)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

// wrapError maps driver errors onto the service taxonomy
func wrapError(err error, entity string, details map[string]any) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ierr.WithError(err).
			WithHintf("%s not found", entity).
			WithReportableDetails(details).
			Mark(ierr.ErrNotFound)
	case isUniqueViolation(err):
		return ierr.WithError(err).
			WithHintf("%s already exists", entity).
			WithReportableDetails(details).
			Mark(ierr.ErrDuplicateKey)
	default:
		return ierr.WithError(err).
			WithHintf("Failed to access %s", strings.ToLower(entity)).
			WithReportableDetails(details).
			Mark(ierr.ErrDatabase)
	}
}

// whereBuilder accumulates AND-ed conditions with positional placeholders
type whereBuilder struct {
	conds []string
	args  []interface{}
}

func (w *whereBuilder) add(cond string, args ...interface{}) {
	for _, arg := range args {
		w.args = append(w.args, arg)
		cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", len(w.args)), 1)
	}
	w.conds = append(w.conds, cond)
}

// in adds column IN (...) for a non-empty list
func (w *whereBuilder) in(column string, values []string) {
	if len(values) == 0 {
		return
	}
	placeholders := make([]string, len(values))
	args := make([]interface{}, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		args[i] = v
	}
	w.add(fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")), args...)
}

func (w *whereBuilder) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// page appends LIMIT and OFFSET placeholders and returns the clause
func (w *whereBuilder) page(limit, offset int) string {
	w.args = append(w.args, limit, offset)
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(w.args)-1, len(w.args))
}

// requireRow turns a zero row write into a not found error
func requireRow(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return wrapError(err, entity, map[string]any{"id": id})
	}
	if n == 0 {
		return ierr.NewError(strings.ToLower(entity)+" not found").
			WithHintf("%s not found", entity).
			WithReportableDetails(map[string]any{"id": id}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}
