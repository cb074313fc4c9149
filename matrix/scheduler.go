package matrix

import (
	"context"
	"time"
)

// Scheduler invokes a callback from a dedicated goroutine, pacing it
// with a one-shot timer that is re-armed after every invocation. The
// callback may retune the period between fires, which is how the scan
// stretches its cadence per bit-plane weight.
//
// Invocations are strictly sequential: the timer is only re-armed once
// the callback returns, so the callback is never re-entered.
type Scheduler struct {
	period time.Duration
}

// NewScheduler returns a scheduler initially paced at period.
func NewScheduler(period time.Duration) *Scheduler {
	return &Scheduler{period: period}
}

// SetPeriod changes the pacing for subsequent fires. It must only be
// called before Start or from inside the callback, which runs on the
// scheduler's own goroutine.
func (s *Scheduler) SetPeriod(d time.Duration) {
	s.period = d
}

// Period returns the currently programmed period.
func (s *Scheduler) Period() time.Duration {
	return s.period
}

// Start launches the timer goroutine. The loop runs until ctx is
// cancelled; there is no other way to stop it.
func (s *Scheduler) Start(ctx context.Context, fn func()) {
	go s.run(ctx, fn)
}

func (s *Scheduler) run(ctx context.Context, fn func()) {
	t := time.NewTimer(s.period)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			fn()
			t.Reset(s.period)

		case <-ctx.Done():
			return
		}
	}
}

// periodTable derives the four scan periods from one base period, each
// bit-plane held twice as long as the one before it.
func periodTable(base time.Duration) [4]time.Duration {
	return [4]time.Duration{base, base << 1, base << 2, base << 3}
}
