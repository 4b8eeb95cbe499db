package clock

import (
	"time"

	"github.com/tecu23/gameclock/pkg/timecontrol"
)

// IncrementController adds a fixed bonus to the clock after every turn that
// took longer than the threshold. The first expiry ends the player's time.
type IncrementController struct {
	base

	increment time.Duration
	threshold time.Duration

	// turnStart is the remaining time when the current turn began.
	turnStart time.Duration
	inTurn    bool
}

func newIncrement(s timecontrol.Settings, onTimeUp func(), o options) *IncrementController {
	ctl := &IncrementController{
		increment: s.Increment,
		threshold: s.IncrementThreshold,
	}
	ctl.init(timecontrol.Increment, s.Main, ctl.expire, onTimeUp, o,
		WithBeforeResume(ctl.beforeResume),
		WithBeforePause(ctl.beforePause),
	)
	return ctl
}

func (c *IncrementController) beforeResume(remaining time.Duration) time.Duration {
	c.turnStart = remaining
	c.inTurn = true
	return remaining
}

// beforePause credits the bonus to the stored time, so it survives into
// the next resume.
func (c *IncrementController) beforePause(remaining time.Duration) time.Duration {
	if !c.inTurn {
		return remaining
	}
	c.inTurn = false

	if c.turnStart-remaining > c.threshold {
		c.logger.Debug("increment granted")
		return remaining + c.increment
	}
	return remaining
}

func (c *IncrementController) expire() (time.Duration, bool) {
	// Detach so no later pause credits a bonus to a lost clock.
	c.cd.beforePause = nil
	c.inTurn = false
	return 0, false
}

// UsedThisTurn returns the running time spent since the current turn began,
// zero between turns.
func (c *IncrementController) UsedThisTurn() time.Duration {
	var used time.Duration
	c.cd.withLock(func() {
		if c.inTurn {
			used = c.turnStart - c.cd.remaining
		}
	})
	return used
}

// Snapshot captures the clock state
func (c *IncrementController) Snapshot() Snapshot {
	var s Snapshot
	c.cd.withLock(func() {
		s = c.snapshotLocked()
	})
	return s
}

// Restore replaces the clock state with s. A running snapshot starts a new
// turn at the restored time.
func (c *IncrementController) Restore(s Snapshot) error {
	if err := c.checkKind(s); err != nil {
		return err
	}

	c.cd.mu.Lock()
	defer c.cd.mu.Unlock()

	c.cd.restoreLocked(s.remaining(), s.IsRunning, s.TimeUp)
	c.inTurn = c.cd.runningSince != nil
	c.turnStart = c.cd.remaining
	if s.TimeUp {
		c.cd.beforePause = nil
	} else {
		c.cd.beforePause = c.beforePause
	}
	return nil
}

// Attributes reports the whole seconds used in the current turn
func (c *IncrementController) Attributes() []Attribute {
	return []Attribute{
		{
			Name:  "usedTime",
			Label: "Used Time",
			Value: int64(c.UsedThisTurn() / time.Second),
		},
	}
}
