package focus

import (
	"time"

	"focusroom/internal/core"
)

// deadlineTimer arms at most one completion timer. When it fires, the completion check is
// posted to the service queue rather than run on the timer goroutine.
type deadlineTimer struct {
	clock core.Clock
	post  func(sessionID string)
	timer core.Timer
}

// Schedule implements core.DeadlineScheduler
func (d *deadlineTimer) Schedule(sessionID string, at time.Time) {
	d.Cancel()
	delay := at.Sub(d.clock.Now())
	if delay < 0 {
		delay = 0
	}
	d.timer = d.clock.AfterFunc(delay, func() { d.post(sessionID) })
}

// Cancel implements core.DeadlineScheduler
func (d *deadlineTimer) Cancel() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
