package network

import (
	"context"
	"time"
)

const (
	DefaultMaxRetries     = 3
	DefaultInitialBackoff = 2 * time.Second
)

type RetryPolicy struct {
	MaxRetries     int
	InitialBackoff time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     DefaultMaxRetries,
		InitialBackoff: DefaultInitialBackoff,
	}
}

// Backoff is the delay before retry number attempt+1; it grows linearly.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	return p.InitialBackoff * time.Duration(attempt+1)
}

// Retry calls fn until it succeeds, returns a non I/O error, or MaxRetries
// retries have been spent.
func Retry[T any](ctx context.Context, p RetryPolicy, fn func(context.Context) (T, error)) (T, error) {
	for attempt := 0; ; attempt++ {
		v, err := fn(ctx)
		if err == nil || !IsIOError(err) || attempt >= p.MaxRetries {
			return v, err
		}

		timer := time.NewTimer(p.Backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return v, ctx.Err()
		case <-timer.C:
		}
	}
}
