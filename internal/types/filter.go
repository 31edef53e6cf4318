package types

import (
	"github.com/samber/lo"
	ierr "github.com/subsync/subsync/internal/errors"
)

const (
	FILTER_DEFAULT_LIMIT = 50
	FILTER_MAX_LIMIT     = 1000
)

// QueryFilter carries pagination for list endpoints
type QueryFilter struct {
	Limit  *int `json:"limit,omitempty" form:"limit" validate:"omitempty,min=1,max=1000"`
	Offset *int `json:"offset,omitempty" form:"offset" validate:"omitempty,min=0"`
}

func NewDefaultQueryFilter() *QueryFilter {
	return &QueryFilter{
		Limit:  lo.ToPtr(FILTER_DEFAULT_LIMIT),
		Offset: lo.ToPtr(0),
	}
}

func (f *QueryFilter) GetLimit() int {
	if f == nil || f.Limit == nil {
		return FILTER_DEFAULT_LIMIT
	}
	return *f.Limit
}

func (f *QueryFilter) GetOffset() int {
	if f == nil || f.Offset == nil {
		return 0
	}
	return *f.Offset
}

func (f *QueryFilter) Validate() error {
	if f == nil {
		return nil
	}
	if f.Limit != nil && (*f.Limit < 1 || *f.Limit > FILTER_MAX_LIMIT) {
		return ierr.NewError("invalid limit").
			WithHintf("Limit must be between 1 and %d", FILTER_MAX_LIMIT).
			Mark(ierr.ErrValidation)
	}
	if f.Offset != nil && *f.Offset < 0 {
		return ierr.NewError("invalid offset").
			WithHint("Offset must be non-negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// SubscriptionFilter narrows subscription listings
type SubscriptionFilter struct {
	*QueryFilter
	CustomerID string               `json:"customer_id,omitempty" form:"customer_id"`
	Statuses   []SubscriptionStatus `json:"statuses,omitempty" form:"status"`
}

func NewSubscriptionFilter() *SubscriptionFilter {
	return &SubscriptionFilter{QueryFilter: NewDefaultQueryFilter()}
}

// PlanFilter narrows plan listings
type PlanFilter struct {
	*QueryFilter
	ProductID  string `json:"product_id,omitempty" form:"product_id"`
	ActiveOnly bool   `json:"active_only,omitempty" form:"active_only"`
}

func NewPlanFilter() *PlanFilter {
	return &PlanFilter{QueryFilter: NewDefaultQueryFilter()}
}

// UserFilter narrows user listings
type UserFilter struct {
	*QueryFilter
	Email string `json:"email,omitempty" form:"email"`
}

func NewUserFilter() *UserFilter {
	return &UserFilter{QueryFilter: NewDefaultQueryFilter()}
}
