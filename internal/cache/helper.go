package cache

import (
	"context"

	"github.com/getsentry/sentry-go"
)

const spanOp = "cache"

// startSpan opens a sentry span for a cache operation when the context carries a hub
func startSpan(ctx context.Context, backend, operation, key string) *sentry.Span {
	if sentry.GetHubFromContext(ctx) == nil {
		return nil
	}

	span := sentry.StartSpan(ctx, spanOp)
	span.Description = backend + "." + operation
	span.SetData("cache.backend", backend)
	span.SetData("cache.key", key)
	return span
}

// finishSpan records whether the lookup hit and closes the span
func finishSpan(span *sentry.Span, hit bool) {
	if span == nil {
		return
	}
	span.SetData("cache.hit", hit)
	span.Status = sentry.SpanStatusOK
	span.Finish()
}
