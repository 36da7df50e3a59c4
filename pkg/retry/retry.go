// Package retry wraps a fallible operation in a bounded retry loop with a
// fixed delay between attempts.
package retry

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type Config struct {
	MaxAttempts int
	Delay       time.Duration
	Logger      *zap.Logger
}

// DefaultConfig matches the import pipelines' tuning: five attempts, one
// second apart, no backoff growth.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 5,
		Delay:       time.Second,
		Logger:      zap.NewNop(),
	}
}

// Do runs operation until it succeeds, the attempt budget is exhausted, or
// ctx is cancelled. The last error is returned after the final attempt.
func Do(ctx context.Context, cfg Config, operation func() error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Delay <= 0 {
		cfg.Delay = time.Second
	}

	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := operation()
		if err == nil {
			if attempt > 1 && cfg.Logger != nil {
				cfg.Logger.Info("Operation succeeded after retry",
					zap.Int("attempt", attempt),
				)
			}
			return nil
		}
		lastErr = err

		if attempt == cfg.MaxAttempts {
			break
		}

		if cfg.Logger != nil {
			cfg.Logger.Warn("Operation failed, retrying",
				zap.Error(err),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", cfg.MaxAttempts),
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.Delay):
		}
	}

	return lastErr
}

// DoWithResult is Do for operations that produce a value.
func DoWithResult[T any](ctx context.Context, cfg Config, operation func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, cfg, func() error {
		var err error
		result, err = operation()
		return err
	})
	return result, err
}
