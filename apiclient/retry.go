package apiclient

import (
	"context"
	"time"
)

const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = time.Second
)

// RetryWithBackoff runs op, retrying retryable failures up to maxRetries
// times with a fixed delay between attempts. The last error is returned once
// retries are exhausted.
// TODO: switch to exponential delay once the registries' quotas are confirmed.
func RetryWithBackoff[T any](ctx context.Context, maxRetries int, delay time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	var (
		result T
		err    error
	)
	for attempt := 0; ; attempt++ {
		result, err = op(ctx)
		if err == nil || !IsRetryableError(err) || attempt >= maxRetries {
			return result, err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return result, AsError("", ctx.Err())
		case <-timer.C:
		}
	}
}
