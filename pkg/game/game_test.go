package game

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tecu23/gameclock/pkg/clock"
	"github.com/tecu23/gameclock/pkg/timecontrol"
)

type stopRecorder struct {
	mu    sync.Mutex
	calls [][2]Role
}

func (r *stopRecorder) record(stopper, timeUp Role) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, [2]Role{stopper, timeUp})
}

func (r *stopRecorder) get() [][2]Role {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][2]Role(nil), r.calls...)
}

func fixed(d time.Duration) timecontrol.Settings {
	return timecontrol.Settings{Kind: timecontrol.Fixed, Main: d}
}

func newTestGame(t *testing.T, fc clockwork.Clock, settings timecontrol.Settings, opts ...Option) *Game {
	t.Helper()
	opts = append(opts, WithClockOptions(clock.WithTimeSource(fc)))
	g, err := New(DefaultRoles(), settings, opts...)
	require.NoError(t, err)
	return g
}

func mustController(t *testing.T, g *Game, role Role) clock.Controller {
	t.Helper()
	p, err := g.Player(role)
	require.NoError(t, err)
	ctl, err := p.Controller()
	require.NoError(t, err)
	return ctl
}

func TestFixedGameStopsOnTimeUp(t *testing.T) {
	fc := clockwork.NewFakeClock()
	var stops stopRecorder

	g := newTestGame(t, fc, fixed(5*time.Second), WithStopCallback(stops.record))
	require.NoError(t, g.Start())

	a := mustController(t, g, "A")
	a.Resume()

	fc.Advance(5 * time.Second)

	require.Eventually(t, func() bool {
		return len(stops.get()) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, StatusStopped, g.Status())
	assert.Equal(t, Role("A"), g.TimeUpRole())
	assert.Equal(t, Role(""), g.StopperRole())
	assert.Equal(t, [][2]Role{{"", "A"}}, stops.get())
	assert.False(t, mustController(t, g, "B").IsRunning())
}

func TestNewValidatesRoles(t *testing.T) {
	settings := fixed(time.Minute)

	_, err := New(nil, settings)
	assert.ErrorIs(t, err, ErrInvalidRoles)

	_, err = New([]Role{"A", "A"}, settings)
	assert.ErrorIs(t, err, ErrInvalidRoles)

	_, err = New([]Role{"A", ""}, settings)
	assert.ErrorIs(t, err, ErrInvalidRoles)

	_, err = New(DefaultRoles(), timecontrol.Settings{Kind: timecontrol.Fixed})
	assert.ErrorIs(t, err, timecontrol.ErrInvalidSettings)
}

func TestControllerBeforeStart(t *testing.T) {
	g := newTestGame(t, clockwork.NewFakeClock(), fixed(time.Minute))

	p, err := g.Player("A")
	require.NoError(t, err)

	_, err = p.Controller()
	assert.ErrorIs(t, err, ErrControllerNotInitialized)

	_, err = p.Attributes()
	assert.ErrorIs(t, err, ErrControllerNotInitialized)

	_, err = g.Player("C")
	assert.ErrorIs(t, err, ErrRoleNotFound)
}

func TestStatusGuards(t *testing.T) {
	g := newTestGame(t, clockwork.NewFakeClock(), fixed(time.Minute))

	assert.ErrorIs(t, g.Pause(), ErrInvalidStatus)
	assert.ErrorIs(t, g.Resume(), ErrInvalidStatus)

	require.NoError(t, g.Start())
	assert.ErrorIs(t, g.Start(), ErrInvalidStatus)
	assert.ErrorIs(t, g.Resume(), ErrInvalidStatus)

	require.NoError(t, g.Pause())
	assert.ErrorIs(t, g.Pause(), ErrInvalidStatus)

	p, _ := g.Player("A")
	assert.ErrorIs(t, p.Tap(), ErrInvalidStatus)

	assert.ErrorIs(t, g.Stop("C"), ErrRoleNotFound)
	assert.ErrorIs(t, g.TimeUp("C"), ErrRoleNotFound)

	require.NoError(t, g.Stop("B"))
	assert.ErrorIs(t, g.Stop("A"), ErrInvalidStatus)
	assert.ErrorIs(t, g.TimeUp("A"), ErrInvalidStatus)
	assert.Equal(t, Role("B"), g.StopperRole())
}

func TestStopFromPendingFiresCallbackOnce(t *testing.T) {
	var stops stopRecorder
	g := newTestGame(t, clockwork.NewFakeClock(), fixed(time.Minute), WithStopCallback(stops.record))

	require.NoError(t, g.Stop("A"))
	assert.Error(t, g.Stop("A"))

	assert.Equal(t, [][2]Role{{"A", ""}}, stops.get())
	assert.Equal(t, StatusStopped, g.Status())
}

func TestSetTimeControl(t *testing.T) {
	g := newTestGame(t, clockwork.NewFakeClock(), fixed(time.Minute))
	p, _ := g.Player("B")

	byo := timecontrol.Default(timecontrol.Byoyomi)
	require.NoError(t, p.SetTimeControl(byo))
	assert.Equal(t, byo, p.TimeControl())

	assert.ErrorIs(t, p.SetTimeControl(timecontrol.Settings{Kind: timecontrol.Yingshi}), timecontrol.ErrInvalidSettings)

	require.NoError(t, g.Start())
	assert.Equal(t, timecontrol.Byoyomi, mustController(t, g, "B").Kind())
	assert.Equal(t, timecontrol.Fixed, mustController(t, g, "A").Kind())

	assert.ErrorIs(t, p.SetTimeControl(fixed(time.Second)), ErrInvalidStatus)
}

func TestTapHandsOverTheClock(t *testing.T) {
	fc := clockwork.NewFakeClock()
	g := newTestGame(t, fc, fixed(time.Minute))
	require.NoError(t, g.Start())

	a, _ := g.Player("A")
	b, _ := g.Player("B")
	ctlA := mustController(t, g, "A")
	ctlB := mustController(t, g, "B")

	// B taps to start A's clock.
	require.NoError(t, b.Tap())
	assert.True(t, ctlA.IsRunning())
	assert.False(t, ctlB.IsRunning())

	fc.Advance(10 * time.Second)
	require.NoError(t, a.Tap())
	assert.False(t, ctlA.IsRunning())
	assert.True(t, ctlB.IsRunning())
	assert.Equal(t, 50*time.Second, ctlA.Time())

	fc.Advance(4 * time.Second)
	assert.Equal(t, 56*time.Second, ctlB.Time())
	assert.Equal(t, []Role{"B"}, g.RunningRoles())
}

func TestNextRoleWraps(t *testing.T) {
	g, err := New([]Role{"black", "white", "red"}, fixed(time.Minute))
	require.NoError(t, err)

	next, err := g.NextRole("white")
	require.NoError(t, err)
	assert.Equal(t, Role("red"), next)

	next, err = g.NextRole("red")
	require.NoError(t, err)
	assert.Equal(t, Role("black"), next)

	_, err = g.NextRole("green")
	assert.ErrorIs(t, err, ErrRoleNotFound)
}

func TestPauseResumeRestoresRunningSet(t *testing.T) {
	fc := clockwork.NewFakeClock()
	g := newTestGame(t, fc, fixed(time.Minute))
	require.NoError(t, g.Start())

	ctlA := mustController(t, g, "A")
	ctlB := mustController(t, g, "B")
	ctlB.Resume()
	fc.Advance(time.Second)

	require.NoError(t, g.Pause())
	assert.Equal(t, StatusPaused, g.Status())
	assert.False(t, ctlB.IsRunning())
	assert.Equal(t, []Role{"B"}, g.RunningRoles())

	fc.Advance(time.Hour)

	require.NoError(t, g.Resume())
	assert.Equal(t, StatusStarted, g.Status())
	assert.False(t, ctlA.IsRunning())
	assert.True(t, ctlB.IsRunning())
	assert.Equal(t, 59*time.Second, ctlB.Time())
}

func TestSnapshotRestore(t *testing.T) {
	fc := clockwork.NewFakeClock()
	settings := timecontrol.Settings{
		Kind:         timecontrol.Yingshi,
		Main:         10 * time.Second,
		PenaltyTime:  5 * time.Second,
		MaxPenalties: 2,
	}

	g := newTestGame(t, fc, settings)
	require.NoError(t, g.Start())
	mustController(t, g, "A").Resume()
	fc.Advance(12 * time.Second)

	snap := g.Snapshot()
	data, err := json.Marshal(snap)
	require.NoError(t, err)

	var decoded Snapshot
	require.NoError(t, json.Unmarshal(data, &decoded))

	var stops stopRecorder
	restored, err := Restore(decoded,
		WithClockOptions(clock.WithTimeSource(fc)),
		WithStopCallback(stops.record),
	)
	require.NoError(t, err)

	assert.Equal(t, g.ID, restored.ID)
	assert.Equal(t, StatusStarted, restored.Status())
	assert.Equal(t, DefaultRoles(), restored.Roles())

	ctlA := mustController(t, restored, "A")
	assert.True(t, ctlA.IsRunning())
	assert.Equal(t, 3*time.Second, ctlA.Time())
	assert.Equal(t, 1, ctlA.(*clock.YingshiController).PenaltiesUsed())
	assert.False(t, mustController(t, restored, "B").IsRunning())

	// The original keeps running on its own; stop it so only the restored
	// game reacts to the time.
	require.NoError(t, g.Stop(""))

	fc.Advance(8 * time.Second)
	require.Eventually(t, func() bool {
		return len(stops.get()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, StatusStopped, restored.Status())
	assert.Equal(t, Role("A"), restored.TimeUpRole())
	assert.Equal(t, [][2]Role{{"", "A"}}, stops.get())
}

func TestRestorePausedGame(t *testing.T) {
	fc := clockwork.NewFakeClock()
	g := newTestGame(t, fc, fixed(time.Minute))
	require.NoError(t, g.Start())
	mustController(t, g, "B").Resume()
	fc.Advance(5 * time.Second)
	require.NoError(t, g.Pause())

	restored, err := Restore(g.Snapshot(), WithClockOptions(clock.WithTimeSource(fc)))
	require.NoError(t, err)

	assert.Equal(t, StatusPaused, restored.Status())
	assert.Equal(t, []Role{"B"}, restored.RunningRoles())
	assert.False(t, mustController(t, restored, "B").IsRunning())

	require.NoError(t, restored.Resume())
	assert.True(t, mustController(t, restored, "B").IsRunning())
	assert.Equal(t, 55*time.Second, mustController(t, restored, "B").Time())
}

func TestRestorePendingGame(t *testing.T) {
	g := newTestGame(t, clockwork.NewFakeClock(), fixed(time.Minute))
	p, _ := g.Player("B")
	require.NoError(t, p.SetTimeControl(timecontrol.Default(timecontrol.Increment)))

	restored, err := Restore(g.Snapshot())
	require.NoError(t, err)

	assert.Equal(t, StatusPending, restored.Status())
	rb, _ := restored.Player("B")
	assert.Equal(t, timecontrol.Default(timecontrol.Increment), rb.TimeControl())
	_, err = rb.Controller()
	assert.ErrorIs(t, err, ErrControllerNotInitialized)
}

func TestRestoreRejectsUnknownStatus(t *testing.T) {
	g := newTestGame(t, clockwork.NewFakeClock(), fixed(time.Minute))
	snap := g.Snapshot()
	snap.Status = "finished"

	_, err := Restore(snap)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestRestoreExpiredRunningClock(t *testing.T) {
	fc := clockwork.NewFakeClock()
	snap := Snapshot{
		ID:     uuid.New(),
		Status: StatusStarted,
		Players: []PlayerSnapshot{
			{
				Role:     "A",
				Settings: fixed(time.Minute),
				Clock:    &clock.Snapshot{Kind: timecontrol.Fixed, IsRunning: true},
			},
			{
				Role:     "B",
				Settings: fixed(time.Minute),
				Clock:    &clock.Snapshot{Kind: timecontrol.Fixed, RemainingTimeMs: 30000},
			},
		},
	}

	var stops stopRecorder
	restored, err := Restore(snap,
		WithClockOptions(clock.WithTimeSource(fc)),
		WithStopCallback(stops.record),
	)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(stops.get()) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, StatusStopped, restored.Status())
	assert.Equal(t, Role("A"), restored.TimeUpRole())
	assert.Equal(t, [][2]Role{{"", "A"}}, stops.get())
	assert.False(t, mustController(t, restored, "A").IsRunning())
	assert.False(t, mustController(t, restored, "B").IsRunning())
	assert.Equal(t, 30*time.Second, mustController(t, restored, "B").Time())
}
