package waiter

import (
	"context"
	"time"
)

// Clock is the time source for a wait. Sleep suspends for up to d, returning
// early (with a nil error) when wake is closed, and with ctx.Err() when ctx
// is done. A nil wake channel never fires.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration, wake <-chan struct{}) error
}

// RealClock is the wall clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) Sleep(ctx context.Context, d time.Duration, wake <-chan struct{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-wake:
		return nil
	case <-timer.C:
		return nil
	}
}
