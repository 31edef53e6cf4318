package errors

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Sentinel errors. Callers attach them with the builder's Mark and test them with the Is helpers below.
var (
	ErrNotFound                = new(ErrCodeNotFound, "resource not found")
	ErrAlreadyExists           = new(ErrCodeAlreadyExists, "resource already exists")
	ErrValidation              = new(ErrCodeValidation, "validation error")
	ErrInvalidOperation        = new(ErrCodeInvalidOperation, "invalid operation")
	ErrInvalidSignature        = new(ErrCodeInvalidSignature, "invalid webhook signature")
	ErrDuplicateEvent          = new(ErrCodeDuplicateEvent, "event already processed")
	ErrDuplicateKey            = new(ErrCodeDuplicateKey, "duplicate key")
	ErrAlreadySubscribed       = new(ErrCodeAlreadySubscribed, "customer already has an active subscription")
	ErrPaymentNotSuccessful    = new(ErrCodePaymentNotSuccessful, "payment not successful")
	ErrInvalidDowngradeRequest = new(ErrCodeInvalidDowngradeRequest, "invalid downgrade request")
	ErrNotSchedulable          = new(ErrCodeNotSchedulable, "subscription cannot be scheduled")
	ErrNoCurrentPhase          = new(ErrCodeNoCurrentPhase, "schedule has no current phase")
	ErrInvalidRequest          = new(ErrCodeInvalidRequest, "processor rejected the request")
	ErrProcessor               = new(ErrCodeProcessor, "payment processor error")
	ErrPersistence             = new(ErrCodePersistence, "persistence failure")
	ErrDatabase                = new(ErrCodeDatabase, "database error")
	ErrInternal                = new(ErrCodeInternal, "internal error")

	// checked in order, first match wins
	statusCodes = []struct {
		err    error
		status int
	}{
		{ErrInvalidSignature, http.StatusBadRequest},
		{ErrValidation, http.StatusBadRequest},
		{ErrInvalidOperation, http.StatusBadRequest},
		{ErrPaymentNotSuccessful, http.StatusBadRequest},
		{ErrInvalidDowngradeRequest, http.StatusBadRequest},
		{ErrNotSchedulable, http.StatusBadRequest},
		{ErrNoCurrentPhase, http.StatusBadRequest},
		{ErrNotFound, http.StatusNotFound},
		{ErrAlreadySubscribed, http.StatusConflict},
		{ErrAlreadyExists, http.StatusConflict},
		{ErrDuplicateKey, http.StatusConflict},
		{ErrInvalidRequest, http.StatusBadRequest},
		{ErrProcessor, http.StatusBadGateway},
		{ErrPersistence, http.StatusInternalServerError},
		{ErrDatabase, http.StatusInternalServerError},
		{ErrInternal, http.StatusInternalServerError},
	}
)

const (
	ErrCodeNotFound                = "not_found"
	ErrCodeAlreadyExists           = "already_exists"
	ErrCodeValidation              = "validation_error"
	ErrCodeInvalidOperation        = "invalid_operation"
	ErrCodeInvalidSignature        = "invalid_signature"
	ErrCodeDuplicateEvent          = "duplicate_event"
	ErrCodeDuplicateKey            = "duplicate_key"
	ErrCodeAlreadySubscribed       = "already_subscribed"
	ErrCodePaymentNotSuccessful    = "payment_not_successful"
	ErrCodeInvalidDowngradeRequest = "invalid_downgrade_request"
	ErrCodeNotSchedulable          = "not_schedulable"
	ErrCodeNoCurrentPhase          = "no_current_phase"
	ErrCodeInvalidRequest          = "invalid_request"
	ErrCodeProcessor               = "processor_error"
	ErrCodePersistence             = "persistence_failure"
	ErrCodeDatabase                = "database_error"
	ErrCodeInternal                = "internal_error"
)

// InternalError represents a domain error
type InternalError struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Op      string // Logical operation name
	Err     error  // Underlying error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.DisplayError()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) DisplayError() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped errors
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

func new(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is is a passthrough to cockroachdb errors.Is so callers need a single errors import
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsDuplicateKey checks if an insert collided with an existing key
func IsDuplicateKey(err error) bool {
	return errors.Is(err, ErrDuplicateKey)
}

// IsDuplicateEvent checks if a webhook event was already recorded as processed
func IsDuplicateEvent(err error) bool {
	return errors.Is(err, ErrDuplicateEvent)
}

// IsInvalidSignature checks if a webhook payload failed verification
func IsInvalidSignature(err error) bool {
	return errors.Is(err, ErrInvalidSignature)
}

// IsInvalidRequest checks if the processor rejected a request as malformed
func IsInvalidRequest(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}

func IsProcessor(err error) bool {
	return errors.Is(err, ErrProcessor)
}

func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistence)
}

func HTTPStatusFromErr(err error) int {
	for _, sc := range statusCodes {
		if errors.Is(err, sc.err) {
			return sc.status
		}
	}
	return http.StatusInternalServerError
}
