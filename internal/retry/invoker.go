// Package retry wraps destination writes with an unbounded, fixed-backoff
// retry loop. A write is expected to succeed eventually; the loop only ends
// early when the context is cancelled, the operation reports a Permanent
// error, or MaxAttempts is set.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultBackoff is the wait between two attempts.
const DefaultBackoff = time.Second

// ErrAttemptsExhausted is returned only when MaxAttempts is set.
var ErrAttemptsExhausted = errors.New("retry attempts exhausted")

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Do returns the wrapped error
// immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Invoker re-runs a failing operation until it succeeds.
type Invoker struct {
	// Backoff is the fixed wait after every failed attempt.
	Backoff time.Duration

	// MaxAttempts caps the number of attempts. Zero means no cap, which is
	// how the ingestion run is configured.
	MaxAttempts int

	Logger *zap.Logger

	// OnRecovered is called after an operation succeeds on an attempt
	// greater than one.
	OnRecovered func(attempt int)
}

// New creates an unbounded invoker.
func New(backoff time.Duration, logger *zap.Logger) *Invoker {
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Invoker{Backoff: backoff, Logger: logger}
}

// Run invokes op until it returns nil.
func (inv *Invoker) Run(ctx context.Context, op func(ctx context.Context) error) error {
	_, err := Do(ctx, inv, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Do invokes op until it succeeds and returns its result.
func Do[T any](ctx context.Context, inv *Invoker, op func(ctx context.Context) (T, error)) (T, error) {
	log := inv.Logger
	if log == nil {
		log = zap.NewNop()
	}

	var zero T
	for attempt := 1; ; attempt++ {
		res, err := op(ctx)
		if err == nil {
			if attempt > 1 {
				log.Info("write succeeded after retry", zap.Int("attempt", attempt))
				if inv.OnRecovered != nil {
					inv.OnRecovered(attempt)
				}
			}
			return res, nil
		}

		var permanent *permanentError
		if errors.As(err, &permanent) {
			return zero, permanent.err
		}

		if inv.MaxAttempts > 0 && attempt >= inv.MaxAttempts {
			return zero, fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, attempt, err)
		}

		log.Warn("write failed, will retry", zap.Int("attempt", attempt), zap.Duration("backoff", inv.Backoff), zap.Error(err))

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(inv.Backoff):
		}
	}
}
