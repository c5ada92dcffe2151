package runner

import (
	"context"
	"time"
)

const maxBackoff = 30 * time.Second

// backoff retries journal writes. Pool operations are never retried.
type backoff struct {
	retries int
	base    time.Duration
	// onRetry runs after a failed attempt that will be retried.
	onRetry func(attempt int, wait time.Duration, err error)
}

func newBackoff(retries int, base time.Duration) backoff {
	if retries < 0 {
		retries = 0
	}
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	return backoff{retries: retries, base: base}
}

// wait returns the delay before retry number attempt (0-based), doubling up
// to maxBackoff.
func (b backoff) wait(attempt int) time.Duration {
	d := b.base
	for i := 0; i < attempt && d < maxBackoff; i++ {
		d *= 2
	}
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

func (b backoff) do(ctx context.Context, fn func(context.Context) error) error {
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil || attempt >= b.retries {
			return err
		}

		delay := b.wait(attempt)
		if b.onRetry != nil {
			b.onRetry(attempt+1, delay, err)
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
