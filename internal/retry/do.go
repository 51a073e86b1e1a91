package retry

import (
	"context"
	"time"
)

// Do runs op until it succeeds, fails with an error shouldRetry rejects,
// the policy's retries are exhausted or ctx ends. attempt starts at 1.
// onRetry, when non-nil, is called before each backoff sleep.
func (p Policy) Do(
	ctx context.Context,
	op func(ctx context.Context, attempt int) error,
	shouldRetry func(error) bool,
	onRetry func(attempt int, delay time.Duration, err error),
) error {
	var err error
	for attempt := 1; ; attempt++ {
		err = op(ctx, attempt)
		if err == nil {
			return nil
		}
		if attempt > p.MaxRetries || shouldRetry == nil || !shouldRetry(err) {
			return err
		}
		delay := p.Delay(attempt)
		if onRetry != nil {
			onRetry(attempt, delay, err)
		}
		if sleepErr := Sleep(ctx, delay); sleepErr != nil {
			return err
		}
	}
}

// Sleep waits for d or until ctx ends, returning ctx.Err() in the latter case.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
