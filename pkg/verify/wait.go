package verify

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Condition reports whether the awaited state has been reached. A non-nil
// error aborts the wait.
type Condition func(ctx context.Context) (bool, error)

// ErrConditionTimeout is returned by Until when the condition never held.
var ErrConditionTimeout = errors.New("condition not met")

// Until evaluates cond immediately and then every interval until it returns
// true, returns an error, timeout elapses or ctx is done. The condition is
// always evaluated at least once.
func Until(ctx context.Context, timeout, interval time.Duration, cond Condition) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	deadline := time.Now().Add(timeout)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ok, err := cond(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("%w within %s", ErrConditionTimeout, timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
