package clock

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/tecu23/gameclock/pkg/timecontrol"
)

// Controller runs one player's clock under a time-control protocol
type Controller interface {
	Kind() timecontrol.Kind

	// IsRunning reports whether the clock is counting down.
	IsRunning() bool

	// Time returns the remaining time of the current phase.
	Time() time.Duration

	// Resume starts the clock. No-op when running or after time-up.
	Resume()

	// Pause stops the clock. No-op when paused.
	Pause()

	// TimeUp reports whether the protocol has ended this clock.
	TimeUp() bool

	Snapshot() Snapshot
	Restore(s Snapshot) error

	// Attributes returns protocol state for display.
	Attributes() []Attribute
}

// Attribute is a labelled value shown next to a player's clock
type Attribute struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Value any    `json:"value"`
}

// Option configures a controller
type Option func(*options)

type options struct {
	clock  clockwork.Clock
	logger *zap.Logger
}

// WithTimeSource sets the clock controllers read time from and schedule on
func WithTimeSource(c clockwork.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithLogger sets the controller logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New creates the controller for settings.Kind. Settings are copied; later
// changes to the caller's value do not affect the controller. onTimeUp is
// called once, outside any controller lock, when the protocol reports
// time-up.
func New(settings timecontrol.Settings, onTimeUp func(), opts ...Option) (Controller, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	o := options{
		clock:  clockwork.NewRealClock(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	switch settings.Kind {
	case timecontrol.Fixed:
		return newFixed(settings, onTimeUp, o), nil
	case timecontrol.Increment:
		return newIncrement(settings, onTimeUp, o), nil
	case timecontrol.Byoyomi:
		return newByoyomi(settings, onTimeUp, o), nil
	case timecontrol.Yingshi:
		return newYingshi(settings, onTimeUp, o), nil
	default:
		return nil, fmt.Errorf("%w: unsupported kind %s", timecontrol.ErrInvalidSettings, settings.Kind)
	}
}

// base holds what every protocol shares: the countdown and the plumbing
// around it. Protocol state lives in the embedding controller and is
// guarded by the countdown's mutex.
type base struct {
	kind   timecontrol.Kind
	cd     *Countdown
	logger *zap.Logger
}

func (b *base) init(
	kind timecontrol.Kind,
	main time.Duration,
	expire ExpiryFunc,
	onTimeUp func(),
	o options,
	hooks ...CountdownOption,
) {
	b.kind = kind
	b.logger = o.logger.With(zap.String("time_control", kind.String()))

	cdOpts := []CountdownOption{
		WithClock(o.clock),
		WithExhausted(func() {
			b.logger.Info("clock time up")
			if onTimeUp != nil {
				onTimeUp()
			}
		}),
	}
	cdOpts = append(cdOpts, hooks...)

	b.cd = NewCountdown(main, expire, cdOpts...)
}

func (b *base) Kind() timecontrol.Kind {
	return b.kind
}

func (b *base) IsRunning() bool {
	return b.cd.IsRunning()
}

func (b *base) Time() time.Duration {
	return b.cd.Time()
}

func (b *base) Resume() {
	if b.cd.ResumeIfIdle() {
		b.logger.Debug("clock resumed")
	}
}

func (b *base) Pause() {
	if b.cd.PauseIfRunning() {
		b.logger.Debug("clock paused")
	}
}

func (b *base) TimeUp() bool {
	return b.cd.Exhausted()
}

// snapshotLocked captures the countdown part of a snapshot
func (b *base) snapshotLocked() Snapshot {
	return Snapshot{
		Kind:            b.kind,
		IsRunning:       b.cd.runningSince != nil,
		RemainingTimeMs: b.cd.remaining.Milliseconds(),
		TimeUp:          b.cd.exhausted,
	}
}

func (b *base) checkKind(s Snapshot) error {
	if s.Kind != b.kind {
		return fmt.Errorf("%w: snapshot of a %s clock restored into a %s controller",
			ErrSnapshotMismatch, s.Kind, b.kind)
	}
	return nil
}

// FixedController ends the player's time at the first expiry
type FixedController struct {
	base
}

func newFixed(s timecontrol.Settings, onTimeUp func(), o options) *FixedController {
	ctl := &FixedController{}
	ctl.init(timecontrol.Fixed, s.Main, ctl.expire, onTimeUp, o)
	return ctl
}

func (c *FixedController) expire() (time.Duration, bool) {
	return 0, false
}

// Snapshot captures the clock state
func (c *FixedController) Snapshot() Snapshot {
	var s Snapshot
	c.cd.withLock(func() {
		s = c.snapshotLocked()
	})
	return s
}

// Restore replaces the clock state with s
func (c *FixedController) Restore(s Snapshot) error {
	if err := c.checkKind(s); err != nil {
		return err
	}

	c.cd.mu.Lock()
	defer c.cd.mu.Unlock()

	c.cd.restoreLocked(s.remaining(), s.IsRunning, s.TimeUp)
	return nil
}

// Attributes returns no extra state; a fixed clock is just its time.
func (c *FixedController) Attributes() []Attribute {
	return []Attribute{}
}
