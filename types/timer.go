package types

import "time"

// Timer wraps time.Timer behind the SetTimeout/ClearTimeout naming this
// module's packages use for ack timeouts and the client connect-timeout.
type Timer struct {
	t *time.Timer
}

// SetTimeout schedules fn to run after sleep elapses.
func SetTimeout(fn func(), sleep time.Duration) *Timer {
	return &Timer{t: time.AfterFunc(sleep, fn)}
}

// ClearTimeout cancels a pending timer. Safe to call on nil or an
// already-fired timer.
func ClearTimeout(timer *Timer) {
	if timer != nil && timer.t != nil {
		timer.t.Stop()
	}
}
