// Package clock implements the countdown primitive and the per-protocol
// controllers that decide what happens when a player's time runs out.
package clock

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// ExpiryFunc decides what happens when a countdown reaches zero. Returning
// ok grants next as the new remaining time and the countdown keeps running;
// otherwise the countdown stays paused for good.
//
// It runs with the countdown locked and must not call its methods.
type ExpiryFunc func() (next time.Duration, ok bool)

// Hook runs right before a resume or pause. It receives the stored
// remaining time, already reconciled, and returns the value to store.
//
// Like ExpiryFunc it runs with the countdown locked.
type Hook func(remaining time.Duration) time.Duration

// Countdown is a single clock. Elapsed time is folded into the remaining
// time lazily, when the time is read or the countdown is paused. A one-shot
// timer fires the expiry decision when the time runs out.
type Countdown struct {
	mu    sync.Mutex
	clock clockwork.Clock

	remaining    time.Duration
	runningSince *time.Time

	// timer is live iff runningSince is set. generation identifies the
	// current timer so a cancelled one that fires late is ignored.
	timer      clockwork.Timer
	generation uint64

	exhausted bool

	onExpire     ExpiryFunc
	onExhausted  func()
	beforeResume Hook
	beforePause  Hook
}

// CountdownOption configures a Countdown
type CountdownOption func(*Countdown)

// WithClock sets the time source. Defaults to the real clock.
func WithClock(c clockwork.Clock) CountdownOption {
	return func(cd *Countdown) {
		cd.clock = c
	}
}

// WithBeforeResume sets the hook run before every resume
func WithBeforeResume(h Hook) CountdownOption {
	return func(cd *Countdown) {
		cd.beforeResume = h
	}
}

// WithBeforePause sets the hook run before every pause
func WithBeforePause(h Hook) CountdownOption {
	return func(cd *Countdown) {
		cd.beforePause = h
	}
}

// WithExhausted sets the function notified once the expiry decision
// declines to continue. It runs after the countdown is unlocked.
func WithExhausted(f func()) CountdownOption {
	return func(cd *Countdown) {
		cd.onExhausted = f
	}
}

// NewCountdown creates a paused countdown holding initial
func NewCountdown(initial time.Duration, onExpire ExpiryFunc, opts ...CountdownOption) *Countdown {
	cd := &Countdown{
		clock:     clockwork.NewRealClock(),
		remaining: clamp(initial),
		onExpire:  onExpire,
	}

	for _, opt := range opts {
		opt(cd)
	}

	return cd
}

// Time returns the remaining time. If the time ran out since the last read,
// the expiry decision runs before Time returns and the post-expiry value is
// reported.
func (c *Countdown) Time() time.Duration {
	c.mu.Lock()
	exhausted := c.reconcileLocked()
	remaining := c.remaining
	c.mu.Unlock()

	if exhausted {
		c.notifyExhausted()
	}

	return remaining
}

// SetTime replaces the remaining time without touching the running state.
// A running countdown reschedules its expiry from now.
func (c *Countdown) SetTime(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.remaining = clamp(d)
	if c.runningSince != nil {
		c.armLocked()
	}
}

// IsRunning reports whether the countdown is running
func (c *Countdown) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.runningSince != nil
}

// Exhausted reports whether an expiry decision has ended this countdown
func (c *Countdown) Exhausted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.exhausted
}

// Resume runs the before-resume hook and starts counting down. Callers
// check IsRunning first; controllers use ResumeIfIdle.
func (c *Countdown) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resumeLocked(true)
}

// Pause folds the elapsed time in, runs the before-pause hook and cancels
// the scheduled expiry.
func (c *Countdown) Pause() {
	c.mu.Lock()
	exhausted := c.pauseLocked()
	c.mu.Unlock()

	if exhausted {
		c.notifyExhausted()
	}
}

// ResumeIfIdle resumes the countdown unless it is running or exhausted.
// It reports whether the countdown was resumed.
func (c *Countdown) ResumeIfIdle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.runningSince != nil || c.exhausted {
		return false
	}

	c.resumeLocked(true)
	return true
}

// PauseIfRunning pauses the countdown if it is running. It reports whether
// the countdown was running.
func (c *Countdown) PauseIfRunning() bool {
	c.mu.Lock()
	if c.runningSince == nil {
		c.mu.Unlock()
		return false
	}
	exhausted := c.pauseLocked()
	c.mu.Unlock()

	if exhausted {
		c.notifyExhausted()
	}
	return true
}

// restoreLocked overwrites the state with a snapshot. A running snapshot resumes
// without the before-resume hook.
func (c *Countdown) restoreLocked(remaining time.Duration, running, exhausted bool) {
	c.stopLocked()
	c.remaining = clamp(remaining)
	c.exhausted = exhausted
	if running && !exhausted {
		c.resumeLocked(false)
	}
}

// withLock runs f on reconciled state. An expiry triggered by the
// reconciliation is notified after unlocking.
func (c *Countdown) withLock(f func()) {
	c.mu.Lock()
	exhausted := c.reconcileLocked()
	f()
	c.mu.Unlock()

	if exhausted {
		c.notifyExhausted()
	}
}

func (c *Countdown) resumeLocked(runHook bool) {
	c.resumeAtLocked(c.clock.Now(), runHook)
}

// resumeAtLocked resumes as if the countdown had started running at since.
func (c *Countdown) resumeAtLocked(since time.Time, runHook bool) {
	if runHook && c.beforeResume != nil {
		c.remaining = clamp(c.beforeResume(c.remaining))
	}

	c.armAtLocked(since)
}

// armLocked marks the countdown running from now and schedules the expiry.
func (c *Countdown) armLocked() {
	c.armAtLocked(c.clock.Now())
}

// armAtLocked marks the countdown running from since and schedules the
// expiry at since+remaining. Any previous timer is cancelled first so only
// one is ever live.
func (c *Countdown) armAtLocked(since time.Time) {
	c.stopLocked()

	c.runningSince = &since

	c.generation++
	generation := c.generation
	delay := since.Add(c.remaining).Sub(c.clock.Now())
	c.timer = c.clock.AfterFunc(delay, func() {
		c.fire(generation)
	})
}

// pauseLocked reports whether reconciling ran the time out and ended the
// countdown, in which case there is nothing left to pause.
func (c *Countdown) pauseLocked() bool {
	if c.reconcileLocked() {
		return true
	}

	if c.beforePause != nil {
		c.remaining = clamp(c.beforePause(c.remaining))
	}

	c.stopLocked()
	return false
}

// stopLocked clears the running state and cancels the timer together.
func (c *Countdown) stopLocked() {
	c.runningSince = nil
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.generation++
}

// reconcileLocked folds the time elapsed since the last reconciliation into
// the remaining time. Every deadline passed on the way runs the expiry
// decision; a granted replacement starts at the deadline, not at the time
// of the read. The result reports whether the countdown ended.
func (c *Countdown) reconcileLocked() bool {
	for c.runningSince != nil {
		now := c.clock.Now()
		elapsed := now.Sub(*c.runningSince)

		if elapsed < c.remaining {
			if elapsed > 0 {
				c.remaining -= elapsed
				c.runningSince = &now
			}
			return false
		}

		deadline := c.runningSince.Add(c.remaining)
		if c.expireLocked(deadline) {
			return true
		}
	}
	return false
}

// expireLocked stops the countdown at exactly zero and asks the expiry
// decision how to go on. A granted replacement is scheduled before the
// lock is released.
func (c *Countdown) expireLocked(at time.Time) bool {
	c.remaining = 0
	c.stopLocked()

	next, ok := c.onExpire()
	if !ok {
		c.exhausted = true
		return true
	}

	c.remaining = clamp(next)
	c.resumeAtLocked(at, true)
	return false
}

func (c *Countdown) fire(generation uint64) {
	c.mu.Lock()
	if generation != c.generation || c.runningSince == nil {
		c.mu.Unlock()
		return
	}

	exhausted := c.reconcileLocked()
	if !exhausted && c.generation == generation {
		// Fired ahead of the reconciled deadline; wait for the rest.
		c.armLocked()
	}
	c.mu.Unlock()

	if exhausted {
		c.notifyExhausted()
	}
}

func (c *Countdown) notifyExhausted() {
	if c.onExhausted != nil {
		c.onExhausted()
	}
}

func clamp(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
