// Package poller runs the periodic loops that keep client-facing views
// fresh: a fixed-interval refresh and a ramped status poll that backs off
// until a condition holds. Both stop when their context is cancelled.
package poller

import (
	"context"
	"time"
)

// Every calls fn immediately and then once per interval until ctx is done.
// Calls never overlap: the next tick is measured from when fn returns.
func Every(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	if interval <= 0 {
		panic("poller: non-positive interval")
	}
	if ctx.Err() != nil {
		return
	}
	fn(ctx)

	timer := time.NewTimer(interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			fn(ctx)
			timer.Reset(interval)
		}
	}
}

// Ramp describes a growing delay: wait Initial, then Initial+Step, and so
// on, never exceeding Max.
type Ramp struct {
	Initial time.Duration
	Step    time.Duration
	Max     time.Duration
}

// DefaultRamp waits 5 seconds, growing by 5 seconds up to 30 seconds.
var DefaultRamp = Ramp{Initial: 5 * time.Second, Step: 5 * time.Second, Max: 30 * time.Second}

// Delay returns the wait before the n-th attempt, starting at 0.
func (r Ramp) Delay(n int) time.Duration {
	d := r.Initial + time.Duration(n)*r.Step
	if r.Max > 0 && d > r.Max {
		return r.Max
	}
	return d
}

// CheckFunc reports whether polling is finished.
type CheckFunc func(ctx context.Context) (done bool, err error)

// Poll waits the ramp's first delay, then calls fn until it reports done,
// returns an error, or ctx is cancelled. A cancelled context returns
// ctx.Err().
func Poll(ctx context.Context, ramp Ramp, fn CheckFunc) error {
	timer := time.NewTimer(ramp.Delay(0))
	defer timer.Stop()

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		done, err := fn(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		timer.Reset(ramp.Delay(attempt))
	}
}
