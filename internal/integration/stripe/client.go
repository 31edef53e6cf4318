package stripe

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stripe/stripe-go/v82"
	"github.com/subsync/subsync/internal/config"
	"github.com/subsync/subsync/internal/domain/processor"
	"github.com/subsync/subsync/internal/logger"
	"github.com/subsync/subsync/internal/observability"
)

// Client implements processor.Client on top of stripe-go. It is the only package that imports stripe-go.
type Client struct {
	api     *stripe.Client
	config  config.StripeConfig
	breaker CircuitBreaker
	metrics *observability.Metrics
	logger  *logger.Logger

	newBackOff func() backoff.BackOff
}

var _ processor.Client = (*Client)(nil)

// NewClient creates a new Stripe client
func NewClient(cfg *config.Configuration, logger *logger.Logger, metrics *observability.Metrics) *Client {
	if cfg.Stripe.SecretKey == "" {
		logger.Warnw("stripe secret key is not configured, processor calls will fail")
	}

	return &Client{
		api:     stripe.NewClient(cfg.Stripe.SecretKey, nil),
		config:  cfg.Stripe,
		breaker: NewCircuitBreaker(cfg.Stripe.Breaker, metrics),
		metrics: metrics,
		logger:  logger,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			b.MaxElapsedTime = 10 * time.Second
			return b
		},
	}
}

// retryPolicy says whether a call may be repeated after a transient failure
type retryPolicy bool

const (
	// retrySafe is for reads and for writes carrying an idempotency key
	retrySafe retryPolicy = true
	// noRetry is for writes that must run at most once, like cancellation
	noRetry retryPolicy = false
)

// call runs fn under the request timeout and the circuit breaker, retrying transient
// failures with exponential backoff when policy allows
func (c *Client) call(ctx context.Context, op string, policy retryPolicy, fn func(ctx context.Context) error) error {
	start := time.Now()

	attempt := func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
		defer cancel()
		return c.breaker.Execute(func() error { return fn(callCtx) })
	}

	var err error
	if policy == retrySafe && c.config.MaxRetries > 0 {
		b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.config.MaxRetries), ctx)
		err = backoff.RetryNotify(func() error {
			if err := attempt(); err != nil {
				if !isRetryable(err) {
					return backoff.Permanent(err)
				}
				return err
			}
			return nil
		}, b, func(err error, wait time.Duration) {
			c.logger.Warnw("retrying stripe call",
				"operation", op,
				"error", err,
				"wait", wait,
			)
		})
	} else {
		err = attempt()
	}

	c.metrics.ObserveProcessorCall(op, err, time.Since(start))
	if err != nil {
		c.logger.Errorw("stripe call failed",
			"operation", op,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	return err
}
