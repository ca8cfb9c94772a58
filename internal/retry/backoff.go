// Package retry runs remote operations with exponential backoff.
package retry

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"switchscan/internal/logging"
	"switchscan/internal/services"
)

// Policy configures retry behavior with exponential backoff.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	Jitter     bool
	// Retryable decides whether a failure is worth another attempt. Nil
	// falls back to services.Retryable.
	Retryable func(error) bool
}

// DefaultPolicy suits gateway connects and history fetches.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   15 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
	}
}

// Result describes a completed retry run.
type Result struct {
	Attempts      int
	TotalDuration time.Duration
	LastError     error
}

// Do runs op until it succeeds, returns a non-retryable error, exhausts the
// policy, or ctx ends. The returned error is the last one observed.
func Do(ctx context.Context, policy Policy, logger *slog.Logger, operation string, op func(context.Context) error) (Result, error) {
	start := time.Now()
	retryable := policy.Retryable
	if retryable == nil {
		retryable = services.Retryable
	}
	var result Result
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		result.Attempts = attempt + 1
		err := op(ctx)
		if err == nil {
			result.LastError = nil
			result.TotalDuration = time.Since(start)
			if attempt > 0 && logger != nil {
				logger.Info("operation recovered",
					logging.String("operation", operation),
					logging.Int("attempts", result.Attempts),
					logging.Duration("duration", result.TotalDuration),
				)
			}
			return result, nil
		}
		result.LastError = err
		if !retryable(err) || attempt >= policy.MaxRetries {
			break
		}
		if ctx.Err() != nil {
			result.LastError = ctx.Err()
			break
		}
		delay := calculateDelay(policy, attempt)
		if logger != nil {
			logger.Warn("operation failed; retrying",
				logging.String("operation", operation),
				logging.Int("attempt", attempt+1),
				logging.Duration("delay", delay),
				logging.Error(err),
				logging.String(logging.FieldEventType, "retry_scheduled"),
			)
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			result.LastError = ctx.Err()
			result.TotalDuration = time.Since(start)
			return result, result.LastError
		case <-timer.C:
		}
	}
	result.TotalDuration = time.Since(start)
	return result, result.LastError
}

func calculateDelay(policy Policy, attempt int) time.Duration {
	multiplier := policy.Multiplier
	if multiplier <= 0 {
		multiplier = 1
	}
	delay := float64(policy.BaseDelay) * math.Pow(multiplier, float64(attempt))
	if policy.MaxDelay > 0 && delay > float64(policy.MaxDelay) {
		delay = float64(policy.MaxDelay)
	}
	if policy.Jitter {
		// up to 10% either way
		jitterRange := delay * 0.1
		delay += (rand.Float64() - 0.5) * 2 * jitterRange
		if delay < 0 {
			delay = float64(policy.BaseDelay)
		}
	}
	return time.Duration(delay)
}
