package testutil

import (
	"context"
	"strings"
	"time"

	"github.com/subsync/subsync/internal/domain/user"
	ierr "github.com/subsync/subsync/internal/errors"
	"github.com/subsync/subsync/internal/types"
)

var _ user.Repository = (*InMemoryUserStore)(nil)

// InMemoryUserStore implements user.Repository with a case-insensitive unique email
type InMemoryUserStore struct {
	*InMemoryStore[*user.User]
}

func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{
		InMemoryStore: NewInMemoryStore[*user.User](),
	}
}

func userFilterFn(ctx context.Context, u *user.User, filter interface{}) bool {
	f, ok := filter.(*types.UserFilter)
	if !ok || f == nil {
		return true
	}
	return f.Email == "" || strings.EqualFold(u.Email, f.Email)
}

func userSortFn(i, j *user.User) bool {
	return i.CreatedAt.After(j.CreatedAt)
}

func copyUser(u *user.User) *user.User {
	c := *u
	return &c
}

func duplicateEmail(email string) error {
	return ierr.NewError("duplicate email").
		WithHint("A user with this email already exists").
		WithReportableDetails(map[string]any{"email": email}).
		Mark(ierr.ErrAlreadyExists)
}

func userNotFound(field, value string) error {
	return ierr.NewError("user not found").
		WithHintf("User with %s %s was not found", field, value).
		Mark(ierr.ErrNotFound)
}

func emailTaken(items map[string]*user.User, email, exceptID string) bool {
	for id, existing := range items {
		if id != exceptID && strings.EqualFold(existing.Email, email) {
			return true
		}
	}
	return false
}

func (s *InMemoryUserStore) Create(ctx context.Context, u *user.User) error {
	return s.Mutate(func(items map[string]*user.User) error {
		if emailTaken(items, u.Email, "") {
			return duplicateEmail(u.Email)
		}
		if _, exists := items[u.ID]; exists {
			return ierr.NewError("user already exists").Mark(ierr.ErrAlreadyExists)
		}
		items[u.ID] = copyUser(u)
		return nil
	})
}

func (s *InMemoryUserStore) Get(ctx context.Context, id string) (*user.User, error) {
	u, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, userNotFound("id", id)
	}
	return copyUser(u), nil
}

func (s *InMemoryUserStore) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	u, ok := s.Find(func(item *user.User) bool { return strings.EqualFold(item.Email, email) })
	if !ok {
		return nil, userNotFound("email", email)
	}
	return copyUser(u), nil
}

func (s *InMemoryUserStore) GetByExternalCustomerID(ctx context.Context, customerID string) (*user.User, error) {
	u, ok := s.Find(func(item *user.User) bool { return item.ExternalCustomerID == customerID })
	if !ok {
		return nil, userNotFound("external_customer_id", customerID)
	}
	return copyUser(u), nil
}

func (s *InMemoryUserStore) List(ctx context.Context, filter *types.UserFilter) ([]*user.User, error) {
	if filter == nil {
		filter = types.NewUserFilter()
	}
	return s.InMemoryStore.List(ctx, filter, userFilterFn, userSortFn)
}

func (s *InMemoryUserStore) Count(ctx context.Context, filter *types.UserFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, filter, userFilterFn)
}

func (s *InMemoryUserStore) Update(ctx context.Context, u *user.User) error {
	return s.Mutate(func(items map[string]*user.User) error {
		if _, exists := items[u.ID]; !exists {
			return userNotFound("id", u.ID)
		}
		if emailTaken(items, u.Email, u.ID) {
			return duplicateEmail(u.Email)
		}
		u.UpdatedAt = time.Now().UTC()
		items[u.ID] = copyUser(u)
		return nil
	})
}

func (s *InMemoryUserStore) Delete(ctx context.Context, id string) error {
	if err := s.InMemoryStore.Delete(ctx, id); err != nil {
		return userNotFound("id", id)
	}
	return nil
}

func (s *InMemoryUserStore) UpsertByExternalCustomerID(ctx context.Context, u *user.User) (*user.User, error) {
	var stored *user.User
	err := s.Mutate(func(items map[string]*user.User) error {
		for id, existing := range items {
			if existing.ExternalCustomerID != u.ExternalCustomerID {
				continue
			}
			if emailTaken(items, u.Email, id) {
				return duplicateEmail(u.Email)
			}
			updated := copyUser(existing)
			updated.Email = u.Email
			if u.Name != "" {
				updated.Name = u.Name
			}
			updated.UpdatedAt = u.UpdatedAt
			items[id] = updated
			stored = updated
			return nil
		}
		if emailTaken(items, u.Email, "") {
			return duplicateEmail(u.Email)
		}
		stored = copyUser(u)
		items[stored.ID] = stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return copyUser(stored), nil
}
