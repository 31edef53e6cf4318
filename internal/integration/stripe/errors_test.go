package stripe

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v82"
	ierr "github.com/subsync/subsync/internal/errors"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantMarks  []error
		wantStatus int
	}{
		{
			name: "missing object",
			err: &stripe.Error{
				Type:           stripe.ErrorTypeInvalidRequest,
				Code:           stripe.ErrorCodeResourceMissing,
				HTTPStatusCode: http.StatusNotFound,
				Msg:            "No such subscription",
			},
			wantMarks:  []error{ierr.ErrNotFound, ierr.ErrProcessor},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "rejected request",
			err: &stripe.Error{
				Type:           stripe.ErrorTypeInvalidRequest,
				HTTPStatusCode: http.StatusBadRequest,
				Msg:            "Invalid price",
			},
			wantMarks:  []error{ierr.ErrInvalidRequest, ierr.ErrProcessor},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "card declined",
			err: &stripe.Error{
				Type:           stripe.ErrorTypeCard,
				HTTPStatusCode: http.StatusPaymentRequired,
				Msg:            "Your card was declined",
			},
			wantMarks: []error{ierr.ErrPaymentNotSuccessful, ierr.ErrProcessor},
		},
		{
			name:      "breaker open",
			err:       gobreaker.ErrOpenState,
			wantMarks: []error{ierr.ErrProcessor},
		},
		{
			name:      "timeout",
			err:       context.DeadlineExceeded,
			wantMarks: []error{ierr.ErrProcessor},
		},
		{
			name:      "network failure",
			err:       errors.New("connection reset by peer"),
			wantMarks: []error{ierr.ErrProcessor},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError("retrieve_subscription", tt.err, map[string]any{"subscription_id": "sub_1"})
			for _, mark := range tt.wantMarks {
				assert.True(t, ierr.Is(got, mark), "expected mark %v", mark)
			}
			if tt.wantStatus != 0 {
				assert.Equal(t, tt.wantStatus, ierr.HTTPStatusFromErr(got))
			}
		})
	}

	assert.Nil(t, mapError("noop", nil, nil))
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, isRetryable(nil))
	assert.False(t, isRetryable(gobreaker.ErrOpenState))
	assert.False(t, isRetryable(context.Canceled))
	assert.False(t, isRetryable(&stripe.Error{HTTPStatusCode: http.StatusBadRequest}))
	assert.True(t, isRetryable(&stripe.Error{HTTPStatusCode: http.StatusTooManyRequests}))
	assert.True(t, isRetryable(&stripe.Error{HTTPStatusCode: http.StatusBadGateway}))
	assert.True(t, isRetryable(errors.New("connection reset")))
}
