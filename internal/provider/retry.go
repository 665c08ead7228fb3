package provider

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// Transient marks err as retryable for WithRetry. Adapters use it for
// failures worth a second attempt, like network errors and 5xx responses.
func Transient(err error) error {
	return retry.RetryableError(err)
}

// WithRetry runs fn with fibonacci backoff, retrying only errors marked
// Transient, up to maxRetries additional attempts. The context deadline
// still bounds the total time spent.
func WithRetry(ctx context.Context, maxRetries uint64, base time.Duration, fn func(ctx context.Context) error) error {
	if base <= 0 {
		base = 250 * time.Millisecond
	}
	backoff := retry.WithMaxRetries(maxRetries, retry.NewFibonacci(base))
	return retry.Do(ctx, backoff, fn)
}
