package clock

import (
	"time"

	"go.uber.org/zap"

	"github.com/tecu23/gameclock/pkg/timecontrol"
)

// YingshiController grants a bounded number of penalty periods after the
// main time runs out. The expiry after the last penalty ends the player's
// time.
type YingshiController struct {
	base

	penaltyTime  time.Duration
	maxPenalties int

	penaltiesUsed int
}

func newYingshi(s timecontrol.Settings, onTimeUp func(), o options) *YingshiController {
	ctl := &YingshiController{
		penaltyTime:  s.PenaltyTime,
		maxPenalties: s.MaxPenalties,
	}
	ctl.init(timecontrol.Yingshi, s.Main, ctl.expire, onTimeUp, o)
	return ctl
}

func (c *YingshiController) expire() (time.Duration, bool) {
	if c.penaltiesUsed < c.maxPenalties {
		c.penaltiesUsed++
		c.logger.Debug("penalty period granted", zap.Int("penalties_used", c.penaltiesUsed))
		return c.penaltyTime, true
	}
	return 0, false
}

// PenaltiesUsed returns the number of penalty periods granted so far
func (c *YingshiController) PenaltiesUsed() int {
	var n int
	c.cd.withLock(func() {
		n = c.penaltiesUsed
	})
	return n
}

// Snapshot captures the clock state and penalty counter
func (c *YingshiController) Snapshot() Snapshot {
	var s Snapshot
	c.cd.withLock(func() {
		s = c.snapshotLocked()
		s.PenaltiesUsed = c.penaltiesUsed
	})
	return s
}

// Restore replaces the clock state and penalty counter with s
func (c *YingshiController) Restore(s Snapshot) error {
	if err := c.checkKind(s); err != nil {
		return err
	}

	c.cd.mu.Lock()
	defer c.cd.mu.Unlock()

	c.penaltiesUsed = min(s.PenaltiesUsed, c.maxPenalties)
	c.cd.restoreLocked(s.remaining(), s.IsRunning, s.TimeUp)
	return nil
}

// Attributes reports the penalty counter
func (c *YingshiController) Attributes() []Attribute {
	return []Attribute{
		{Name: "penaltiesUsed", Label: "Penalties Used", Value: c.PenaltiesUsed()},
	}
}
