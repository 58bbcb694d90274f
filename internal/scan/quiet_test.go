// internal/scan/quiet_test.go
package scan

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWaitForQuiet_ReturnsAfterSustainedQuiet(t *testing.T) {
	start := time.Now()
	err := WaitForQuiet(context.Background(), 30*time.Millisecond, 5*time.Millisecond,
		func(context.Context) (bool, error) { return false, nil })

	if err != nil {
		t.Fatalf("WaitForQuiet() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("returned after %v, want at least the quiet window", elapsed)
	}
}

func TestWaitForQuiet_ActivityResetsWindow(t *testing.T) {
	polls := 0
	start := time.Now()
	err := WaitForQuiet(context.Background(), 20*time.Millisecond, 5*time.Millisecond,
		func(context.Context) (bool, error) {
			polls++
			// Busy for the first few polls, then quiet.
			return polls <= 4, nil
		})

	if err != nil {
		t.Fatalf("WaitForQuiet() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("returned after %v, want busy polls plus a full quiet window", elapsed)
	}
}

func TestWaitForQuiet_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WaitForQuiet(ctx, time.Second, 5*time.Millisecond,
		func(context.Context) (bool, error) { return true, nil })

	if !errors.Is(err, context.Canceled) {
		t.Errorf("WaitForQuiet() error = %v, want context.Canceled", err)
	}
}

func TestWaitForQuiet_ActiveErrorPropagates(t *testing.T) {
	boom := errors.New("evaluate failed")
	err := WaitForQuiet(context.Background(), time.Second, 5*time.Millisecond,
		func(context.Context) (bool, error) { return false, boom })

	if !errors.Is(err, boom) {
		t.Errorf("WaitForQuiet() error = %v, want %v", err, boom)
	}
}
