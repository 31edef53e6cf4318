package dto

import (
	"github.com/subsync/subsync/internal/domain/user"
	ierr "github.com/subsync/subsync/internal/errors"
	"github.com/subsync/subsync/internal/types"
	"github.com/subsync/subsync/internal/validator"
)

// CreateUserRequest represents the request to create a new user
type CreateUserRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"omitempty,max=255"`
}

func (r *CreateUserRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// UpdateUserRequest changes the name or email of a user
type UpdateUserRequest struct {
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
	Name  *string `json:"name,omitempty" validate:"omitempty,max=255"`
}

func (r *UpdateUserRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}

	if r.Email == nil && r.Name == nil {
		return ierr.NewError("nothing to update").
			WithHint("Provide an email or a name").
			Mark(ierr.ErrValidation)
	}
	return nil
}

type UserResponse struct {
	*user.User
}

// ListUsersResponse represents the response for listing users
type ListUsersResponse = types.ListResponse[*UserResponse]
