package types

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	ierr "github.com/subsync/subsync/internal/errors"
)

func TestQueryFilterDefaults(t *testing.T) {
	var f *QueryFilter
	assert.Equal(t, FILTER_DEFAULT_LIMIT, f.GetLimit())
	assert.Equal(t, 0, f.GetOffset())
	assert.NoError(t, f.Validate())

	sf := NewSubscriptionFilter()
	assert.Equal(t, FILTER_DEFAULT_LIMIT, sf.GetLimit())
	assert.Equal(t, 0, sf.GetOffset())
}

func TestQueryFilterValidate(t *testing.T) {
	tests := []struct {
		name    string
		filter  QueryFilter
		wantErr bool
	}{
		{name: "empty", filter: QueryFilter{}},
		{name: "max limit", filter: QueryFilter{Limit: lo.ToPtr(FILTER_MAX_LIMIT)}},
		{name: "zero limit", filter: QueryFilter{Limit: lo.ToPtr(0)}, wantErr: true},
		{name: "limit above max", filter: QueryFilter{Limit: lo.ToPtr(FILTER_MAX_LIMIT + 1)}, wantErr: true},
		{name: "negative offset", filter: QueryFilter{Offset: lo.ToPtr(-1)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.filter.Validate()
			if tt.wantErr {
				assert.True(t, ierr.IsValidation(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewListResponse(t *testing.T) {
	empty := NewListResponse[string](nil, 0, 10, 0)
	assert.NotNil(t, empty.Items)
	assert.False(t, empty.Pagination.HasMore)

	page := NewListResponse([]string{"a", "b"}, 5, 2, 2)
	assert.True(t, page.Pagination.HasMore)

	last := NewListResponse([]string{"e"}, 5, 2, 4)
	assert.False(t, last.Pagination.HasMore)
}
