package clock

import (
	"time"

	"go.uber.org/zap"

	"github.com/tecu23/gameclock/pkg/timecontrol"
)

// ByoyomiController gives a player a number of periods once the main time
// runs out. Entering byoyomi does not consume a period; a period is only
// lost when it runs out completely, and running out of the last one ends the
// player's time.
type ByoyomiController struct {
	base

	periodTime    time.Duration
	periods       int
	resetOnResume bool

	remainingPeriods int
	inByoyomi        bool
}

func newByoyomi(s timecontrol.Settings, onTimeUp func(), o options) *ByoyomiController {
	ctl := &ByoyomiController{
		periodTime:       s.PeriodTime,
		periods:          s.Periods,
		resetOnResume:    s.ByoyomiResetOnResume,
		remainingPeriods: s.Periods,
	}
	ctl.init(timecontrol.Byoyomi, s.Main, ctl.expire, onTimeUp, o,
		WithBeforeResume(ctl.beforeResume),
	)
	return ctl
}

func (c *ByoyomiController) expire() (time.Duration, bool) {
	if !c.inByoyomi {
		c.inByoyomi = true
		c.logger.Debug("entered byoyomi", zap.Int("remaining_periods", c.remainingPeriods))
		return c.periodTime, true
	}

	if c.remainingPeriods > 1 {
		c.remainingPeriods--
		c.logger.Debug("byoyomi period used", zap.Int("remaining_periods", c.remainingPeriods))
		return c.periodTime, true
	}

	return 0, false
}

// beforeResume refills the period on every turn when configured to.
func (c *ByoyomiController) beforeResume(remaining time.Duration) time.Duration {
	if c.resetOnResume && c.inByoyomi {
		return c.periodTime
	}
	return remaining
}

// RemainingPeriods returns the number of periods left
func (c *ByoyomiController) RemainingPeriods() int {
	var n int
	c.cd.withLock(func() {
		n = c.remainingPeriods
	})
	return n
}

// InByoyomi reports whether the main time has run out
func (c *ByoyomiController) InByoyomi() bool {
	var in bool
	c.cd.withLock(func() {
		in = c.inByoyomi
	})
	return in
}

// Snapshot captures the clock state and period counters
func (c *ByoyomiController) Snapshot() Snapshot {
	var s Snapshot
	c.cd.withLock(func() {
		s = c.snapshotLocked()
		s.RemainingPeriods = c.remainingPeriods
		s.InByoyomi = c.inByoyomi
	})
	return s
}

// Restore replaces the clock state and period counters with s
func (c *ByoyomiController) Restore(s Snapshot) error {
	if err := c.checkKind(s); err != nil {
		return err
	}

	c.cd.mu.Lock()
	defer c.cd.mu.Unlock()

	c.remainingPeriods = min(s.RemainingPeriods, c.periods)
	c.inByoyomi = s.InByoyomi
	c.cd.restoreLocked(s.remaining(), s.IsRunning, s.TimeUp)
	return nil
}

// Attributes reports the period counters
func (c *ByoyomiController) Attributes() []Attribute {
	var periods int
	var in bool
	c.cd.withLock(func() {
		periods = c.remainingPeriods
		in = c.inByoyomi
	})

	return []Attribute{
		{Name: "remainingPeriods", Label: "Remaining Periods", Value: periods},
		{Name: "inByoyomi", Label: "In Byoyomi", Value: in},
	}
}
