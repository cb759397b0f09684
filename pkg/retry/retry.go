// Package retry runs an operation until it succeeds, waiting between
// attempts on an injectable clock.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/facebookgo/clock"
)

// Config controls one retry loop.
type Config struct {
	MaxAttempts int           // 0 retries forever
	InitialWait time.Duration // wait after the first failure
	MaxWait     time.Duration // cap on any single wait; 0 means no cap
	Multiplier  float64       // growth per attempt; <= 1 keeps the wait fixed
	Jitter      float64       // +/- fraction of each wait, 0..1

	// ShouldRetry reports whether err deserves another attempt.
	// Nil retries only errors marked with Retryable.
	ShouldRetry func(err error) bool

	// OnRetry runs before each wait with the 1-based failed attempt.
	OnRetry func(attempt int, wait time.Duration, err error)

	// Clock drives the waits. Nil means the wall clock.
	Clock clock.Clock
}

// Exponential returns a bounded policy that doubles the wait after each
// failure, up to maxWait, with 10% jitter.
func Exponential(attempts int, initial, maxWait time.Duration) Config {
	return Config{
		MaxAttempts: attempts,
		InitialWait: initial,
		MaxWait:     maxWait,
		Multiplier:  2,
		Jitter:      0.1,
	}
}

// Fixed returns an unbounded policy that retries every error, always
// waiting delay.
func Fixed(delay time.Duration) Config {
	return Config{
		InitialWait: delay,
		MaxWait:     delay,
		Multiplier:  1,
		ShouldRetry: Always,
	}
}

// Always retries every error.
func Always(error) bool { return true }

type retryableError struct{ err error }

func (e retryableError) Error() string { return e.err.Error() }
func (e retryableError) Unwrap() error { return e.err }

// Retryable marks err as transient. It returns nil for a nil err.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return retryableError{err: err}
}

// IsRetryable reports whether err, or an error it wraps, was marked with
// Retryable.
func IsRetryable(err error) bool {
	var r retryableError
	return errors.As(err, &r)
}

// Do runs fn until it succeeds, the policy gives up or ctx is done.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	_, err := DoWithResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoWithResult is Do for operations that return a value. On failure it
// returns the last error from fn, or ctx.Err() when the context ended
// the loop.
func DoWithResult[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var zero T
	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsRetryable
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}

	for attempt := 1; ; attempt++ {
		v, err := fn()
		switch {
		case err == nil:
			return v, nil
		case !shouldRetry(err):
			return zero, err
		case ctx.Err() != nil:
			return zero, ctx.Err()
		case cfg.MaxAttempts > 0 && attempt >= cfg.MaxAttempts:
			return zero, err
		}

		wait := Backoff(cfg, attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, wait, err)
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-clk.After(wait):
		}
	}
}

// Backoff returns the wait that follows failed attempt n (1-based).
func Backoff(cfg Config, n int) time.Duration {
	wait := float64(cfg.InitialWait)
	if cfg.Multiplier > 1 {
		wait *= math.Pow(cfg.Multiplier, float64(n-1))
	}
	if cfg.MaxWait > 0 {
		wait = math.Min(wait, float64(cfg.MaxWait))
	}
	if cfg.Jitter > 0 {
		wait += wait * cfg.Jitter * (2*rand.Float64() - 1)
	}
	return time.Duration(wait)
}
