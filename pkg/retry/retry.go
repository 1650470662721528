package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy bounds the retry loop: at most MaxAttempts calls, sleeping
// BaseDelay, 2*BaseDelay, 4*BaseDelay, ... between them. Intended for
// idempotent read paths only; writes must not be wrapped.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultPolicy matches the transient-network-failure budget used by the
// report fetches: 3 attempts, 100ms initial backoff.
var DefaultPolicy = Policy{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond}

// Do runs fn until it succeeds, the attempt budget is exhausted, or ctx is
// done. The last error is returned wrapped with the attempt count.
func Do(ctx context.Context, p Policy, fn func() error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}

	var lastErr error
	delay := p.BaseDelay
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == p.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return fmt.Errorf("after %d attempts: %w", p.MaxAttempts, lastErr)
}
