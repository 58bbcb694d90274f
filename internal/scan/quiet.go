// internal/scan/quiet.go
package scan

import (
	"context"
	"time"
)

// WaitForQuiet polls active every interval and returns once it has
// reported no activity for a full window. active reports whether any
// signal (captured response, DOM mutation, in-flight replay) fired since
// the previous poll; an error from active ends the wait. Returns the
// context error when cancelled.
func WaitForQuiet(ctx context.Context, window, interval time.Duration, active func(context.Context) (bool, error)) error {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	if window < interval {
		window = interval
	}

	quietSince := time.Now()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		busy, err := active(ctx)
		if err != nil {
			return err
		}
		if busy {
			quietSince = time.Now()
			continue
		}
		if time.Since(quietSince) >= window {
			return nil
		}
	}
}
