package duel

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// arm replaces the room's phase timer. There is at most one pending timer
// per room.
func (c *Coordinator) arm(d time.Duration) {
	c.cancelTimer()
	c.timer = c.clock.NewTimer(d)
}

func (c *Coordinator) cancelTimer() {
	if c.timer != nil {
		stopAndDrainTimer(c.timer)
		c.timer = nil
	}
}

// timerC returns the pending timer's channel, or nil so the select in Run
// never fires when no timer is armed.
func (c *Coordinator) timerC() <-chan time.Time {
	if c.timer == nil {
		return nil
	}
	return c.timer.Chan()
}

func stopAndDrainTimer(t clockwork.Timer) {
	if !t.Stop() {
		select {
		case <-t.Chan():
		default:
		}
	}
}
