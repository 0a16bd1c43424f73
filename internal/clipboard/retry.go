package clipboard

import (
	"context"
	"fmt"
	"time"
)

// Policy bounds retries of a contended clipboard operation.
type Policy struct {
	Attempts int           // total tries, including the first
	Backoff  time.Duration // fixed wait between tries
}

// DefaultPolicy tries three times, 200ms apart.
var DefaultPolicy = Policy{Attempts: 3, Backoff: 200 * time.Millisecond}

// Retry runs op until it succeeds or p.Attempts tries have failed, waiting
// p.Backoff between failures. onRetry, when non-nil, is told about each
// failure that will be retried. Cancelling ctx stops the wait early.
func Retry(ctx context.Context, p Policy, op func() error, onRetry func(attempt int, err error)) error {
	attempts := max(p.Attempts, 1)

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}

		timer := time.NewTimer(p.Backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("after %d attempts: %w", attempts, err)
}
