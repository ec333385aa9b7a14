// Package retrylimit retries an operation with exponential backoff while a
// token-bucket limiter caps how often attempts may start.
//
// Example usage:
//
//	cfg := retrylimit.DefaultConfig()
//	err := retrylimit.Do(ctx, cfg, func(ctx context.Context) error {
//	    return client.Ping(ctx)
//	})
package retrylimit

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/time/rate"
)

// FatalError wraps errors that should stop retries immediately.
type FatalError struct {
	Err error
}

func (f *FatalError) Error() string { return f.Err.Error() }
func (f *FatalError) Unwrap() error { return f.Err }

// Fatal marks err as not worth retrying.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// Config configures retry behavior.
type Config struct {
	MaxAttempts  int           // 0 = until the context ends
	InitialDelay time.Duration // delay after the first failure
	MaxDelay     time.Duration // cap for the exponential delay
	Multiplier   float64       // delay growth per failure
	Jitter       bool          // add up to 25% random jitter
	// Limit caps attempt starts per second; 0 disables the limiter.
	Limit   rate.Limit
	OnRetry func(attempt int, err error, next time.Duration)
}

// DefaultConfig returns the settings used for backend connection attempts.
func DefaultConfig() Config {
	return Config{
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
		Limit:        rate.Limit(2),
	}
}

// ErrMaxAttempts is returned, wrapping the last failure, when attempts run out.
var ErrMaxAttempts = errors.New("max attempts exceeded")

// Do calls fn until it succeeds, returns a FatalError, the context ends or
// MaxAttempts is reached.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	var lim *rate.Limiter
	if cfg.Limit > 0 {
		lim = rate.NewLimiter(cfg.Limit, 1)
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}

	delay := cfg.InitialDelay
	for attempt := 1; ; attempt++ {
		if lim != nil {
			if err := lim.Wait(ctx); err != nil {
				return err
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}

		var fatal *FatalError
		if errors.As(err, &fatal) {
			return fatal.Err
		}
		if cfg.MaxAttempts > 0 && attempt >= cfg.MaxAttempts {
			return fmt.Errorf("%w (%d): %w", ErrMaxAttempts, cfg.MaxAttempts, err)
		}

		next := delay
		if cfg.Jitter {
			next = addJitter(delay)
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, next)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(next):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
}

// addJitter adds random jitter (0-25% of delay) to prevent thundering herd problem.
func addJitter(delay time.Duration) time.Duration {
	if delay < 4 {
		return delay
	}
	return delay + time.Duration(rand.Int63n(int64(delay/4)))
}
