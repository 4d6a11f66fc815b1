package resilience

import (
	"context"
	"fmt"
	"time"
)

// WithTimeout runs fn under a deadline. It returns as soon as the deadline
// passes even if fn keeps running; fn sees the cancellation through its
// context. A non-positive timeout runs fn directly.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	cause := fmt.Errorf("%s: %w (limit %v)", name, context.DeadlineExceeded, timeout)
	tctx, cancel := context.WithTimeoutCause(ctx, timeout, cause)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(tctx) }()
	select {
	case err := <-done:
		return err
	case <-tctx.Done():
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", name, context.Cause(ctx))
		}
		return context.Cause(tctx)
	}
}
