package types

import (
	"context"
)

// ContextKey is a type for the keys of values stored in the context
type ContextKey string

// HeaderRequestID carries the request id on requests and responses
const HeaderRequestID = "X-Request-ID"

const (
	CtxRequestID     ContextKey = "ctx_request_id"
	CtxDBTransaction ContextKey = "ctx_db_transaction"
	CtxEventID       ContextKey = "ctx_event_id"
)

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(CtxRequestID).(string); ok {
		return requestID
	}
	return ""
}

// GetEventID returns the processor event id when the context belongs to a webhook delivery
func GetEventID(ctx context.Context) string {
	if eventID, ok := ctx.Value(CtxEventID).(string); ok {
		return eventID
	}
	return ""
}

func WithEventID(ctx context.Context, eventID string) context.Context {
	return context.WithValue(ctx, CtxEventID, eventID)
}
