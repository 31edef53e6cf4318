package service

import (
	"context"
	"strings"

	"github.com/samber/lo"
	"github.com/subsync/subsync/internal/api/dto"
	"github.com/subsync/subsync/internal/domain/processor"
	"github.com/subsync/subsync/internal/domain/user"
	ierr "github.com/subsync/subsync/internal/errors"
	"github.com/subsync/subsync/internal/types"
)

type UserService interface {
	// CreateUser creates the processor customer first, then the local user linked to it
	CreateUser(ctx context.Context, req dto.CreateUserRequest) (*dto.UserResponse, error)
	GetUser(ctx context.Context, id string) (*dto.UserResponse, error)
	GetUserByEmail(ctx context.Context, email string) (*dto.UserResponse, error)
	ListUsers(ctx context.Context, filter *types.UserFilter) (*dto.ListUsersResponse, error)
	UpdateUser(ctx context.Context, id string, req dto.UpdateUserRequest) (*dto.UserResponse, error)
	DeleteUser(ctx context.Context, id string) error
	// UpsertFromCustomer mirrors a processor customer; customers without an email are ignored
	UpsertFromCustomer(ctx context.Context, customer *processor.Customer) (*user.User, error)
}

type userService struct {
	ServiceParams
}

func NewUserService(params ServiceParams) UserService {
	return &userService{ServiceParams: params}
}

func (s *userService) CreateUser(ctx context.Context, req dto.CreateUserRequest) (*dto.UserResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	email := strings.TrimSpace(req.Email)
	existing, err := s.UserRepo.GetByEmail(ctx, email)
	if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return nil, ierr.NewError("user already exists").
			WithHint("A user with this email already exists").
			WithReportableDetails(map[string]any{"email": email}).
			Mark(ierr.ErrAlreadyExists)
	}

	params := processor.CreateCustomerParams{Email: email, Name: req.Name}
	if requestID := types.GetRequestID(ctx); requestID != "" {
		params.IdempotencyKey = s.IdempotencyGen.CreateCustomerKey(email, requestID)
	}
	customer, err := s.Processor.CreateCustomer(ctx, params)
	if err != nil {
		return nil, err
	}

	u := user.NewUser(email, req.Name, customer.ID)
	u.CreatedAt = s.now()
	u.UpdatedAt = u.CreatedAt
	if err := s.UserRepo.Create(ctx, u); err != nil {
		// the customer.created event may have beaten us to it
		if ierr.IsAlreadyExists(err) {
			if stored, lookupErr := s.UserRepo.GetByExternalCustomerID(ctx, customer.ID); lookupErr == nil {
				return &dto.UserResponse{User: stored}, nil
			}
		}
		return nil, err
	}

	s.Logger.WithContext(ctx).Infow("user created",
		"user_id", u.ID,
		"customer_id", u.ExternalCustomerID,
	)
	return &dto.UserResponse{User: u}, nil
}

func (s *userService) GetUser(ctx context.Context, id string) (*dto.UserResponse, error) {
	if id == "" {
		return nil, ierr.NewError("user ID is required").
			WithHint("Please provide a valid user ID").
			Mark(ierr.ErrValidation)
	}

	u, err := s.UserRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.UserResponse{User: u}, nil
}

func (s *userService) GetUserByEmail(ctx context.Context, email string) (*dto.UserResponse, error) {
	u, err := s.UserRepo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	return &dto.UserResponse{User: u}, nil
}

func (s *userService) ListUsers(ctx context.Context, filter *types.UserFilter) (*dto.ListUsersResponse, error) {
	if filter == nil {
		filter = types.NewUserFilter()
	}

	if err := filter.Validate(); err != nil {
		return nil, err
	}

	users, err := s.UserRepo.List(ctx, filter)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to retrieve users").
			Mark(ierr.ErrDatabase)
	}

	total, err := s.UserRepo.Count(ctx, filter)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to count users").
			Mark(ierr.ErrDatabase)
	}

	resp := types.NewListResponse(lo.Map(users, func(u *user.User, _ int) *dto.UserResponse {
		return &dto.UserResponse{User: u}
	}), total, filter.GetLimit(), filter.GetOffset())
	return &resp, nil
}

func (s *userService) UpdateUser(ctx context.Context, id string, req dto.UpdateUserRequest) (*dto.UserResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	u, err := s.UserRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		u.Email = strings.TrimSpace(*req.Email)
	}
	if req.Name != nil {
		u.Name = *req.Name
	}
	u.UpdatedAt = s.now()

	if u.ExternalCustomerID != "" {
		if _, err := s.Processor.UpdateCustomer(ctx, processor.UpdateCustomerParams{
			ID:    u.ExternalCustomerID,
			Email: u.Email,
			Name:  u.Name,
		}); err != nil {
			return nil, err
		}
	}

	if err := s.UserRepo.Update(ctx, u); err != nil {
		return nil, err
	}
	return &dto.UserResponse{User: u}, nil
}

func (s *userService) DeleteUser(ctx context.Context, id string) error {
	if err := s.UserRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.Logger.WithContext(ctx).Infow("user deleted", "user_id", id)
	return nil
}

func (s *userService) UpsertFromCustomer(ctx context.Context, customer *processor.Customer) (*user.User, error) {
	if customer == nil || customer.ID == "" {
		return nil, ierr.NewError("customer id is required").
			WithHint("Customer payload is missing its id").
			Mark(ierr.ErrValidation)
	}

	log := s.Logger.WithContext(ctx)
	if customer.Deleted || customer.Email == "" {
		log.Infow("skipping customer without email", "customer_id", customer.ID, "deleted", customer.Deleted)
		return nil, nil
	}

	u := user.NewUser(customer.Email, customer.Name, customer.ID)
	u.CreatedAt = s.now()
	u.UpdatedAt = u.CreatedAt

	stored, err := s.UserRepo.UpsertByExternalCustomerID(ctx, u)
	if err != nil {
		return nil, err
	}

	log.Infow("user synchronized from customer", "user_id", stored.ID, "customer_id", customer.ID)
	return stored, nil
}
