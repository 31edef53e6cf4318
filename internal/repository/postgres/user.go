package postgres

import (
	"context"
	"time"

	"github.com/subsync/subsync/internal/domain/user"
	ierr "github.com/subsync/subsync/internal/errors"
	"github.com/subsync/subsync/internal/logger"
	"github.com/subsync/subsync/internal/postgres"
	"github.com/subsync/subsync/internal/types"
)

type userRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewUserRepository(db *postgres.DB, logger *logger.Logger) user.Repository {
	return &userRepository{db: db, logger: logger}
}

const userColumns = `id, email, name, external_customer_id, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, u *user.User) error {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	query := `INSERT INTO users (` + userColumns + `)
		VALUES (:id, :email, :name, :external_customer_id, :created_at, :updated_at)`

	r.logger.Debugw("creating user", "user_id", u.ID, "external_customer_id", u.ExternalCustomerID)

	if _, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, u); err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("A user with this email already exists").
				WithReportableDetails(map[string]any{"email": u.Email}).
				Mark(ierr.ErrAlreadyExists)
		}
		return wrapError(err, "User", map[string]any{"user_id": u.ID})
	}
	return nil
}

func (r *userRepository) Get(ctx context.Context, id string) (*user.User, error) {
	return r.getOne(ctx, `id = $1`, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getOne(ctx, `LOWER(email) = LOWER($1)`, email)
}

func (r *userRepository) GetByExternalCustomerID(ctx context.Context, customerID string) (*user.User, error) {
	return r.getOne(ctx, `external_customer_id = $1`, customerID)
}

func (r *userRepository) getOne(ctx context.Context, cond string, value string) (*user.User, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	var u user.User
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE `+cond, value); err != nil {
		return nil, wrapError(err, "User", map[string]any{"lookup": value})
	}
	return &u, nil
}

func (r *userRepository) filter(filter *types.UserFilter) *whereBuilder {
	w := &whereBuilder{}
	if filter != nil && filter.Email != "" {
		w.add("LOWER(email) = LOWER(?)", filter.Email)
	}
	return w
}

func (r *userRepository) List(ctx context.Context, filter *types.UserFilter) ([]*user.User, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	if filter == nil {
		filter = types.NewUserFilter()
	}
	w := r.filter(filter)
	query := `SELECT ` + userColumns + ` FROM users` + w.String() + ` ORDER BY created_at DESC`
	query += w.page(filter.GetLimit(), filter.GetOffset())

	users := make([]*user.User, 0)
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &users, query, w.args...); err != nil {
		return nil, wrapError(err, "User", nil)
	}
	return users, nil
}

func (r *userRepository) Count(ctx context.Context, filter *types.UserFilter) (int, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	w := r.filter(filter)
	var count int
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &count, `SELECT COUNT(*) FROM users`+w.String(), w.args...); err != nil {
		return 0, wrapError(err, "User", nil)
	}
	return count, nil
}

func (r *userRepository) Update(ctx context.Context, u *user.User) error {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	u.UpdatedAt = time.Now().UTC()
	query := `UPDATE users SET email = :email, name = :name, updated_at = :updated_at WHERE id = :id`

	res, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, u)
	if err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("A user with this email already exists").
				WithReportableDetails(map[string]any{"email": u.Email}).
				Mark(ierr.ErrAlreadyExists)
		}
		return wrapError(err, "User", map[string]any{"user_id": u.ID})
	}
	return requireRow(res, "User", u.ID)
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	res, err := r.db.GetQuerier(ctx).ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return wrapError(err, "User", map[string]any{"user_id": id})
	}
	return requireRow(res, "User", id)
}

func (r *userRepository) UpsertByExternalCustomerID(ctx context.Context, u *user.User) (*user.User, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = time.Now().UTC()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = u.UpdatedAt
	}

	query := `INSERT INTO users (` + userColumns + `)
		VALUES (:id, :email, :name, :external_customer_id, :created_at, :updated_at)
		ON CONFLICT (external_customer_id) DO UPDATE SET
			email = EXCLUDED.email,
			name = CASE WHEN EXCLUDED.name = '' THEN users.name ELSE EXCLUDED.name END,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + userColumns

	var stored user.User
	if err := namedGet(ctx, r.db.GetQuerier(ctx), &stored, query, u); err != nil {
		return nil, wrapError(err, "User", map[string]any{"external_customer_id": u.ExternalCustomerID})
	}
	return &stored, nil
}
