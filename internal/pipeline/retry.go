package pipeline

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/MastaChicken/Group-Project/internal/grobid"
	"github.com/MastaChicken/Group-Project/internal/summary"
)

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	if errors.Is(err, grobid.ErrUnavailable) {
		return true
	}
	var retryErr *summary.RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

// withRetry calls fn until it succeeds, fails permanently, or has been
// retried retries times.
func withRetry[T any](ctx context.Context, retries int, backoff func(int) time.Duration, fn func() (T, error)) (T, error) {
	var (
		out T
		err error
	)
	for attempt := 0; ; attempt++ {
		out, err = fn()
		if err == nil || !IsRetryable(err) || attempt >= retries {
			return out, err
		}
		select {
		case <-time.After(backoff(attempt)):
		case <-ctx.Done():
			return out, ctx.Err()
		}
	}
}
