package clock

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func never() (time.Duration, bool) {
	return 0, false
}

func TestCountdownSubtractsOnlyRunningTime(t *testing.T) {
	fc := clockwork.NewFakeClock()
	cd := NewCountdown(10*time.Second, never, WithClock(fc))

	assert.False(t, cd.IsRunning())

	cd.Resume()
	assert.True(t, cd.IsRunning())

	fc.Advance(3 * time.Second)
	assert.Equal(t, 7*time.Second, cd.Time())

	cd.Pause()
	assert.False(t, cd.IsRunning())

	fc.Advance(5 * time.Second)
	assert.Equal(t, 7*time.Second, cd.Time())

	cd.Resume()
	fc.Advance(1500 * time.Millisecond)
	cd.Pause()
	assert.Equal(t, 5500*time.Millisecond, cd.Time())
}

func TestCountdownExpiryGrantsReplacement(t *testing.T) {
	fc := clockwork.NewFakeClock()

	var calls atomic.Int32
	cd := NewCountdown(2*time.Second, func() (time.Duration, bool) {
		if calls.Add(1) == 1 {
			return 5 * time.Second, true
		}
		return 0, false
	}, WithClock(fc))

	cd.Resume()
	fc.Advance(2 * time.Second)

	assert.Equal(t, 5*time.Second, cd.Time())
	assert.True(t, cd.IsRunning())
	assert.False(t, cd.Exhausted())
	assert.Equal(t, int32(1), calls.Load())

	fc.Advance(2 * time.Second)
	assert.Equal(t, 3*time.Second, cd.Time())
}

func TestCountdownExhaustionNotifiesOnce(t *testing.T) {
	fc := clockwork.NewFakeClock()

	var notified atomic.Int32
	cd := NewCountdown(time.Second, never,
		WithClock(fc),
		WithExhausted(func() { notified.Add(1) }),
	)

	cd.Resume()
	fc.Advance(3 * time.Second)

	assert.Equal(t, time.Duration(0), cd.Time())
	assert.False(t, cd.IsRunning())
	assert.True(t, cd.Exhausted())

	require.Eventually(t, func() bool {
		return notified.Load() == 1
	}, time.Second, 5*time.Millisecond)

	// The timer goroutine arriving late must not notify again.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), notified.Load())
}

func TestCountdownPauseCancelsExpiry(t *testing.T) {
	fc := clockwork.NewFakeClock()

	var calls atomic.Int32
	cd := NewCountdown(time.Second, func() (time.Duration, bool) {
		calls.Add(1)
		return 0, false
	}, WithClock(fc))

	cd.Resume()
	fc.Advance(500 * time.Millisecond)
	cd.Pause()

	fc.Advance(time.Minute)
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, 500*time.Millisecond, cd.Time())
	assert.False(t, cd.Exhausted())
}

func TestCountdownSetTimeKeepsRunningState(t *testing.T) {
	fc := clockwork.NewFakeClock()
	cd := NewCountdown(time.Second, never, WithClock(fc))

	cd.SetTime(4 * time.Second)
	assert.False(t, cd.IsRunning())
	assert.Equal(t, 4*time.Second, cd.Time())

	cd.Resume()
	cd.SetTime(10 * time.Second)
	assert.True(t, cd.IsRunning())

	// The expiry follows the new time, not the one scheduled at resume.
	fc.Advance(5 * time.Second)
	assert.Equal(t, 5*time.Second, cd.Time())
	assert.False(t, cd.Exhausted())

	cd.SetTime(-time.Second)
	assert.Equal(t, time.Duration(0), cd.Time())
}

func TestCountdownHooks(t *testing.T) {
	fc := clockwork.NewFakeClock()

	var resumes, pauses int
	cd := NewCountdown(10*time.Second, never,
		WithClock(fc),
		WithBeforeResume(func(remaining time.Duration) time.Duration {
			resumes++
			return remaining
		}),
		WithBeforePause(func(remaining time.Duration) time.Duration {
			pauses++
			assert.Equal(t, 8*time.Second, remaining)
			return remaining + time.Second
		}),
	)

	cd.Resume()
	fc.Advance(2 * time.Second)
	cd.Pause()

	assert.Equal(t, 1, resumes)
	assert.Equal(t, 1, pauses)
	assert.Equal(t, 9*time.Second, cd.Time())
}

func TestCountdownIfIdleGuards(t *testing.T) {
	fc := clockwork.NewFakeClock()

	var resumes int
	cd := NewCountdown(10*time.Second, never,
		WithClock(fc),
		WithBeforeResume(func(remaining time.Duration) time.Duration {
			resumes++
			return remaining
		}),
	)

	assert.False(t, cd.PauseIfRunning())
	assert.True(t, cd.ResumeIfIdle())
	assert.False(t, cd.ResumeIfIdle())
	assert.Equal(t, 1, resumes)

	assert.True(t, cd.PauseIfRunning())
	assert.False(t, cd.PauseIfRunning())
}

func TestCountdownExhaustedDoesNotResumeIfIdle(t *testing.T) {
	fc := clockwork.NewFakeClock()
	cd := NewCountdown(time.Second, never, WithClock(fc))

	cd.Resume()
	fc.Advance(time.Second)
	require.Equal(t, time.Duration(0), cd.Time())

	assert.False(t, cd.ResumeIfIdle())
	assert.False(t, cd.IsRunning())
}

func TestCountdownRealClock(t *testing.T) {
	fired := make(chan struct{})
	cd := NewCountdown(20*time.Millisecond, never, WithExhausted(func() {
		close(fired)
	}))

	cd.Resume()

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("countdown did not expire")
	}

	assert.Equal(t, time.Duration(0), cd.Time())
	assert.False(t, cd.IsRunning())
}
