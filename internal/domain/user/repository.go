package user

import (
	"context"

	"github.com/subsync/subsync/internal/types"
)

type Repository interface {
	Create(ctx context.Context, user *User) error
	Get(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByExternalCustomerID(ctx context.Context, customerID string) (*User, error)
	List(ctx context.Context, filter *types.UserFilter) ([]*User, error)
	Count(ctx context.Context, filter *types.UserFilter) (int, error)
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id string) error
	// UpsertByExternalCustomerID keeps the email and name of a processor customer current
	UpsertByExternalCustomerID(ctx context.Context, user *User) (*User, error)
}
