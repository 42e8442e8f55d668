package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	appErrors "github.com/ecomshop/event-pipeline/internal/errors"
)

// Config bounds a retry loop. MaxAttempts counts total invocations, so
// MaxAttempts=3 means one initial try plus two retries.
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultConfig matches the pipeline-wide default of three attempts.
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
	}
}

// Delay returns the exponential backoff delay before retry number attempt
// (0-based), with up to 25% jitter added.
func Delay(attempt int, cfg *Config) time.Duration {
	delay := time.Duration(float64(cfg.InitialDelay) * math.Pow(2, float64(attempt)))
	if delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/4 + 1))
	return delay + jitter
}

// Do runs fn up to cfg.MaxAttempts times, sleeping between attempts.
// It returns nil on the first success and the last error once attempts are
// exhausted or the context is canceled. Errors classified non-retryable stop
// the loop immediately. onAttempt, when non-nil, observes every failed
// attempt (1-based) before any backoff sleep.
func Do(ctx context.Context, cfg *Config, fn func() error, onAttempt func(attempt int, err error)) error {
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if onAttempt != nil {
			onAttempt(attempt, err)
		}

		if !appErrors.IsRetryable(err) || attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(Delay(attempt-1, cfg)):
		}
	}

	return lastErr
}
