package worklog

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// Default breaker configuration constants.
const (
	defaultBreakerMaxFailures = 3
	defaultBreakerOpenTimeout = 30 * time.Second
)

// BreakerSettings configures WithBreaker.
type BreakerSettings struct {
	// MaxFailures is the number of consecutive unavailable answers that
	// opens the circuit.
	MaxFailures uint32
	// OpenTimeout is how long the circuit stays open before a trial request.
	OpenTimeout time.Duration
	// OnStateChange is called on every transition. Optional.
	OnStateChange func(source string, from, to gobreaker.State)
}

type breakerSource struct {
	src Source
	cb  *gobreaker.CircuitBreaker
}

// WithBreaker wraps src so that repeated unavailability short-circuits
// further calls. While the circuit is open the wrapper answers Unavailable
// with ErrCircuitOpen and the backend is not contacted.
func WithBreaker(src Source, settings BreakerSettings) Source {
	if settings.MaxFailures == 0 {
		settings.MaxFailures = defaultBreakerMaxFailures
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = defaultBreakerOpenTimeout
	}
	st := gobreaker.Settings{
		Name:    src.Name(),
		Timeout: settings.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= settings.MaxFailures
		},
		// Cancellation by the caller says nothing about the backend.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	if settings.OnStateChange != nil {
		st.OnStateChange = func(name string, from, to gobreaker.State) {
			settings.OnStateChange(name, from, to)
		}
	}
	return &breakerSource{src: src, cb: gobreaker.NewCircuitBreaker(st)}
}

// Name implements Source.
func (b *breakerSource) Name() string { return b.src.Name() }

// FetchTotals implements Source.
func (b *breakerSource) FetchTotals(ctx context.Context, q Query) Result {
	out, err := b.cb.Execute(func() (interface{}, error) {
		res := b.src.FetchTotals(ctx, q)
		if res.Unavailable {
			return res, res.Err
		}
		return res, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return Unavailable(ErrCircuitOpen)
	}
	res, _ := out.(Result)
	if err != nil && !res.Unavailable {
		return Unavailable(err)
	}
	return res
}
