package vault

import "time"

// Clock abstracts wall-clock reads so TTL behavior is testable.
type Clock interface {
	Now() time.Time
}

// systemClock reads the real wall clock.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// CancelFunc cancels a scheduled eviction. Safe to call more than once.
type CancelFunc func()

// Scheduler abstracts timer creation so eviction is cancellable and
// testable without real wall-clock waits.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) CancelFunc
}

// systemScheduler uses time.AfterFunc.
type systemScheduler struct{}

func (systemScheduler) AfterFunc(d time.Duration, fn func()) CancelFunc {
	timer := time.AfterFunc(d, fn)
	return func() { timer.Stop() }
}
