package payment

import (
	"context"
	"errors"
	"time"
)

const (
	defaultRetryAttempts = 3
	defaultRetryBase     = 200 * time.Millisecond
)

// withRetry runs fn up to attempts times, doubling the delay between tries.
// Only processor-unavailable errors are retried; declines and other terminal
// failures return immediately.
func withRetry(ctx context.Context, attempts int, base time.Duration, fn func() error) error {
	var err error
	delay := base

	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil || !errors.Is(err, ErrProcessorUnavailable) {
			return err
		}
		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return err
}
