package retry

import (
	"context"
	"errors"
	"time"
)

// ErrDeadline is returned by Until when the condition never held within the
// timeout.
var ErrDeadline = errors.New("condition not met before deadline")

// Until polls cond at a fixed interval until it reports true, the timeout
// elapses, or cond returns an error. The condition is evaluated once
// immediately before the first sleep.
func Until(ctx context.Context, interval, timeout time.Duration, cond func(context.Context) (bool, error)) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

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
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrDeadline
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
