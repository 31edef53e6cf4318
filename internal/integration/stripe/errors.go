package stripe

import (
	"context"
	"errors"
	"net/http"

	"github.com/sony/gobreaker"
	"github.com/stripe/stripe-go/v82"
	ierr "github.com/subsync/subsync/internal/errors"
)

// isClientError reports whether stripe rejected the request itself
func isClientError(err error) bool {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return false
	}
	return stripeErr.HTTPStatusCode >= 400 && stripeErr.HTTPStatusCode < 500 &&
		stripeErr.HTTPStatusCode != http.StatusTooManyRequests
}

// isRetryable reports whether repeating the same call could succeed
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return !isClientError(err)
}

// mapError converts a stripe failure into the service error taxonomy.
// Every mapped error is marked ErrProcessor; rejected requests, missing objects and
// declined cards carry an additional, more specific mark.
func mapError(op string, err error, details map[string]any) error {
	if err == nil {
		return nil
	}
	if details == nil {
		details = map[string]any{}
	}
	details["operation"] = op

	var stripeErr *stripe.Error
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return ierr.WithError(err).
			WithHint("Payment processor is temporarily unavailable").
			WithReportableDetails(details).
			Mark(ierr.ErrProcessor)

	case errors.Is(err, context.DeadlineExceeded):
		return ierr.WithError(err).
			WithHint("Payment processor did not respond in time").
			WithReportableDetails(details).
			Mark(ierr.ErrProcessor)

	case errors.As(err, &stripeErr):
		details["stripe_error_type"] = string(stripeErr.Type)
		details["stripe_error_code"] = string(stripeErr.Code)
		if stripeErr.RequestID != "" {
			details["stripe_request_id"] = stripeErr.RequestID
		}

		var specific error
		switch {
		case stripeErr.HTTPStatusCode == http.StatusNotFound || stripeErr.Code == stripe.ErrorCodeResourceMissing:
			specific = ierr.ErrNotFound
		case stripeErr.Type == stripe.ErrorTypeCard:
			specific = ierr.ErrPaymentNotSuccessful
		case stripeErr.Type == stripe.ErrorTypeInvalidRequest:
			specific = ierr.ErrInvalidRequest
		}

		b := ierr.WithError(err).
			WithHint(hintFor(stripeErr)).
			WithReportableDetails(details)
		if specific == nil {
			return b.Mark(ierr.ErrProcessor)
		}
		return ierr.WithError(b.Mark(specific)).Mark(ierr.ErrProcessor)

	default:
		return ierr.WithError(err).
			WithHint("Payment processor request failed").
			WithReportableDetails(details).
			Mark(ierr.ErrProcessor)
	}
}

func hintFor(stripeErr *stripe.Error) string {
	if stripeErr.Msg != "" {
		return stripeErr.Msg
	}
	return "Payment processor request failed"
}
