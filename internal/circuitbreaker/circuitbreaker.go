// Package circuitbreaker wraps a remote backend call with a three-state
// (closed/open/half-open) circuit breaker and exponential back-off retries,
// per §5: five consecutive failures open the circuit for 60s; the first
// attempted call after the open window transitions to half-open and a
// single success closes it.
package circuitbreaker

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/kgstore/kgstore/internal/domain"
	"github.com/kgstore/kgstore/internal/logging"
)

var log = logging.GetLogger("circuitbreaker")

// Config controls the breaker and retry policy.
type Config struct {
	Name             string
	MaxFailures      uint32
	OpenTimeout      time.Duration
	RetryBaseDelay   time.Duration
	RetryMaxAttempts int
}

// DefaultConfig matches §5: 5 consecutive failures, 60s open window, back-off
// 1s/2s/4s (3 retries after the first call). RetryMaxAttempts counts those
// retries, not the first call.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxFailures:      5,
		OpenTimeout:      60 * time.Second,
		RetryBaseDelay:   1 * time.Second,
		RetryMaxAttempts: 3,
	}
}

// Breaker wraps calls against a remote backend.
type Breaker struct {
	cb  *gobreaker.CircuitBreaker
	cfg Config
}

func New(cfg Config) *Breaker {
	settings := gobreaker.Settings{
		Name:    cfg.Name,
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings), cfg: cfg}
}

// isRetriable mirrors §7's propagation policy: only transient errors
// (timeouts, connect failures, 5xx-equivalents) are retried locally.
func isRetriable(err error) bool {
	if err == nil {
		return false
	}
	kind := domain.KindBackendUnavailable
	return domain.IsKind(err, kind)
}

// Call executes fn through the breaker, retrying retriable failures with
// exponential back-off (1s, 2s, 4s) before the breaker's own failure count is
// charged. A request against an open circuit fails fast with CircuitOpen.
func (b *Breaker) Call(ctx context.Context, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = b.cfg.RetryBaseDelay
		eb.Multiplier = 2
		eb.RandomizationFactor = 0
		eb.MaxElapsedTime = 0
		bo := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(b.cfg.RetryMaxAttempts)), ctx)

		var res interface{}
		opErr := backoff.Retry(func() error {
			var e error
			res, e = fn(ctx)
			if e != nil && isRetriable(e) {
				return e
			}
			if e != nil {
				return backoff.Permanent(e)
			}
			return nil
		}, bo)
		return res, opErr
	})

	if err == gobreaker.ErrOpenState {
		return nil, domain.NewError(domain.KindCircuitOpen, "circuit breaker is open", map[string]interface{}{"name": b.cfg.Name})
	}
	return result, err
}

// State reports the breaker's current state for health/diagnostics.
func (b *Breaker) State() string {
	return b.cb.State().String()
}
