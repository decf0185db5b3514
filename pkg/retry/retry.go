// Package retry runs operations again when they fail transiently.
//
// Only errors marked with [Retryable] (or wrapped in [RetryableError]) are
// retried; everything else is returned on the first failure. Backoff timing
// comes from github.com/cenkalti/backoff/v4.
//
//	err := retry.Do(ctx, retry.Constant(5, 2*time.Second), func() error {
//	    if err := submit(); err != nil {
//	        return retry.Retryable(err)
//	    }
//	    return nil
//	})
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryableError wraps an error to indicate it should trigger a retry.
// Wrap transient failures (dropped connections, throttling, 5xx responses)
// with this type so that [Do] knows to attempt the operation again.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable marks err as retryable. A nil error stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err carries a [RetryableError] in its chain.
func IsRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}

// Policy controls how many times and how often an operation is attempted.
type Policy struct {
	// Attempts is the total number of tries, including the first. Values
	// below 1 are treated as 1.
	Attempts int
	// Interval is the delay before the first retry.
	Interval time.Duration
	// Exponential doubles the delay after each retry instead of keeping it
	// constant.
	Exponential bool
	// MaxInterval caps exponential delays. Zero keeps the backoff default
	// of one minute.
	MaxInterval time.Duration
}

// Constant returns a policy with a fixed delay between attempts.
func Constant(attempts int, interval time.Duration) Policy {
	return Policy{Attempts: attempts, Interval: interval}
}

// Exponential returns a policy whose delay doubles after each attempt.
func Exponential(attempts int, initial time.Duration) Policy {
	return Policy{Attempts: attempts, Interval: initial, Exponential: true}
}

// DefaultPolicy is 3 attempts with a 1 second initial delay, doubling.
var DefaultPolicy = Exponential(3, time.Second)

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	var b backoff.BackOff
	if p.Exponential {
		opts := []backoff.ExponentialBackOffOpts{
			backoff.WithInitialInterval(p.Interval),
			backoff.WithMultiplier(2),
			backoff.WithRandomizationFactor(0),
			backoff.WithMaxElapsedTime(0),
		}
		if p.MaxInterval > 0 {
			opts = append(opts, backoff.WithMaxInterval(p.MaxInterval))
		}
		b = backoff.NewExponentialBackOff(opts...)
	} else {
		b = backoff.NewConstantBackOff(p.Interval)
	}
	retries := max(p.Attempts, 1) - 1
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// Do executes fn according to policy. Errors that are not retryable are
// returned immediately. Returns the last error if all attempts fail, or
// ctx.Err() if the context is cancelled while waiting.
func Do(ctx context.Context, policy Policy, fn func() error) error {
	return DoNotify(ctx, policy, fn, nil)
}

// DoNotify is [Do] with a callback invoked before each wait, receiving the
// failed attempt's error and the delay until the next attempt.
func DoNotify(ctx context.Context, policy Policy, fn func() error, notify func(err error, next time.Duration)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	op := func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	var n backoff.Notify
	if notify != nil {
		n = backoff.Notify(notify)
	}

	return backoff.RetryNotify(op, policy.backOff(ctx), n)
}

// WithBackoff is a convenience wrapper around [Do] using [DefaultPolicy].
func WithBackoff(ctx context.Context, fn func() error) error {
	return Do(ctx, DefaultPolicy, fn)
}
