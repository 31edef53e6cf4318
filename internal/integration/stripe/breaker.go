package stripe

import (
	"github.com/sony/gobreaker"
	"github.com/subsync/subsync/internal/config"
	"github.com/subsync/subsync/internal/observability"
)

// CircuitBreaker guards outbound processor calls
type CircuitBreaker interface {
	Execute(fn func() error) error
}

type noopBreaker struct{}

func (noopBreaker) Execute(fn func() error) error {
	return fn()
}

type gobreakerWrapper struct {
	cb *gobreaker.CircuitBreaker
}

func (g *gobreakerWrapper) Execute(fn func() error) error {
	_, err := g.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

// NewCircuitBreaker returns a gobreaker backed breaker, or a pass through one when disabled.
// Rejected requests (4xx) do not count as failures.
func NewCircuitBreaker(cfg config.BreakerConfig, metrics *observability.Metrics) CircuitBreaker {
	if !cfg.Enabled {
		return noopBreaker{}
	}

	settings := gobreaker.Settings{
		Name:        "stripe",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || isClientError(err)
		},
		OnStateChange: func(name string, _ gobreaker.State, to gobreaker.State) {
			metrics.SetBreakerState(name, int(to))
		},
	}

	return &gobreakerWrapper{cb: gobreaker.NewCircuitBreaker(settings)}
}
