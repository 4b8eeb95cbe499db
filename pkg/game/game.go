// Package game ties the players' clocks of one game together: who holds the
// clock, when the game starts, pauses and stops, and who ran out of time.
package game

import (
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tecu23/gameclock/pkg/clock"
	"github.com/tecu23/gameclock/pkg/timecontrol"
)

// Role labels a player within a game
type Role string

// Status is the lifecycle state of a game
type Status string

const (
	StatusPending Status = "pending"
	StatusStarted Status = "started"
	StatusPaused  Status = "paused"
	StatusStopped Status = "stopped"
)

// StopFunc is called once when a game stops. stopper is set for a manual
// stop, timeUp when a player ran out of time.
type StopFunc func(stopper, timeUp Role)

// DefaultRoles returns the roles of a two-player game
func DefaultRoles() []Role {
	return []Role{"A", "B"}
}

// Option configures a Game
type Option func(*Game)

// WithID sets the game id. A random one is generated otherwise.
func WithID(id uuid.UUID) Option {
	return func(g *Game) {
		g.ID = id
	}
}

// WithStopCallback registers the function notified when the game stops
func WithStopCallback(f StopFunc) Option {
	return func(g *Game) {
		g.onStop = f
	}
}

// WithClockOptions sets the options every controller is created with
func WithClockOptions(opts ...clock.Option) Option {
	return func(g *Game) {
		g.clockOpts = append(g.clockOpts, opts...)
	}
}

// WithLogger sets the game logger
func WithLogger(logger *zap.Logger) Option {
	return func(g *Game) {
		g.logger = logger
	}
}

// Game is a set of players sharing one status. The role list and the
// players are fixed at construction.
type Game struct {
	ID uuid.UUID

	roles   []Role
	players map[Role]*Player

	mu           sync.Mutex
	status       Status
	timeUpRole   Role
	stopperRole  Role
	runningRoles []Role

	onStop    StopFunc
	clockOpts []clock.Option
	logger    *zap.Logger
}

// New creates a pending game with one player per role, each starting with
// settings as its time control.
func New(roles []Role, settings timecontrol.Settings, opts ...Option) (*Game, error) {
	if len(roles) == 0 {
		return nil, fmt.Errorf("%w: a game needs at least one role", ErrInvalidRoles)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	g := &Game{
		ID:      uuid.New(),
		roles:   slices.Clone(roles),
		players: make(map[Role]*Player, len(roles)),
		status:  StatusPending,
		logger:  zap.NewNop(),
	}

	for _, opt := range opts {
		opt(g)
	}

	for _, role := range g.roles {
		if role == "" {
			return nil, fmt.Errorf("%w: empty role", ErrInvalidRoles)
		}
		if _, ok := g.players[role]; ok {
			return nil, fmt.Errorf("%w: duplicate role %q", ErrInvalidRoles, role)
		}
		g.players[role] = &Player{
			role:     role,
			game:     g,
			settings: settings,
		}
	}

	g.logger = g.logger.With(zap.String("game_id", g.ID.String()))

	return g, nil
}

// Roles returns the roles in turn order
func (g *Game) Roles() []Role {
	return slices.Clone(g.roles)
}

// Player returns the player holding role
func (g *Game) Player(role Role) (*Player, error) {
	p, ok := g.players[role]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrRoleNotFound, role)
	}
	return p, nil
}

// Players returns the players in turn order
func (g *Game) Players() []*Player {
	players := make([]*Player, 0, len(g.roles))
	for _, role := range g.roles {
		players = append(players, g.players[role])
	}
	return players
}

// NextRole returns the role whose turn follows role, wrapping around
func (g *Game) NextRole(role Role) (Role, error) {
	i := slices.Index(g.roles, role)
	if i < 0 {
		return "", fmt.Errorf("%w: %q", ErrRoleNotFound, role)
	}
	return g.roles[(i+1)%len(g.roles)], nil
}

func (g *Game) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.status
}

// TimeUpRole returns the role that ran out of time, if any
func (g *Game) TimeUpRole() Role {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.timeUpRole
}

// StopperRole returns the role that stopped the game manually, if any
func (g *Game) StopperRole() Role {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.stopperRole
}

// RunningRoles returns the roles whose clocks are running, or for a paused
// game the roles that will be resumed.
func (g *Game) RunningRoles() []Role {
	g.mu.Lock()
	if g.status == StatusPaused {
		defer g.mu.Unlock()
		return slices.Clone(g.runningRoles)
	}
	g.mu.Unlock()

	var running []Role
	for _, p := range g.Players() {
		if ctl, err := p.Controller(); err == nil && ctl.IsRunning() {
			running = append(running, p.role)
		}
	}
	return running
}

// Start creates every player's controller. No clock is resumed; the first
// tap or resume does that.
func (g *Game) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.status != StatusPending {
		return fmt.Errorf("%w: cannot start a %s game", ErrInvalidStatus, g.status)
	}

	controllers := make(map[Role]clock.Controller, len(g.roles))
	for _, p := range g.Players() {
		ctl, err := p.newController()
		if err != nil {
			return fmt.Errorf("create controller for %q: %w", p.role, err)
		}
		controllers[p.role] = ctl
	}

	for role, ctl := range controllers {
		g.players[role].setController(ctl)
	}
	g.status = StatusStarted

	g.logger.Info("game started", zap.Int("players", len(g.roles)))
	return nil
}

// Pause stops every running clock and remembers which ones were running
func (g *Game) Pause() error {
	g.mu.Lock()
	if g.status != StatusStarted {
		defer g.mu.Unlock()
		return fmt.Errorf("%w: cannot pause a %s game", ErrInvalidStatus, g.status)
	}
	g.status = StatusPaused
	g.runningRoles = nil
	g.mu.Unlock()

	// Controllers may report time-up while pausing, which calls back into
	// the game, so the lock is not held here.
	var running []Role
	for _, p := range g.Players() {
		ctl := p.loadController()
		if ctl.IsRunning() {
			running = append(running, p.role)
			ctl.Pause()
		}
	}

	g.mu.Lock()
	if g.status == StatusPaused {
		g.runningRoles = running
	}
	g.mu.Unlock()

	g.logger.Info("game paused", zap.Int("running", len(running)))
	return nil
}

// Resume restarts exactly the clocks that were running when the game was
// paused.
func (g *Game) Resume() error {
	g.mu.Lock()
	if g.status != StatusPaused {
		defer g.mu.Unlock()
		return fmt.Errorf("%w: cannot resume a %s game", ErrInvalidStatus, g.status)
	}
	g.status = StatusStarted
	running := g.runningRoles
	g.runningRoles = nil
	g.mu.Unlock()

	for _, role := range running {
		g.players[role].loadController().Resume()
	}

	g.logger.Info("game resumed", zap.Int("running", len(running)))
	return nil
}

// Stop ends the game on behalf of stopper
func (g *Game) Stop(stopper Role) error {
	if stopper != "" {
		if _, err := g.Player(stopper); err != nil {
			return err
		}
	}
	return g.stop(stopper, "")
}

// TimeUp ends the game because role ran out of time
func (g *Game) TimeUp(role Role) error {
	if _, err := g.Player(role); err != nil {
		return err
	}
	return g.stop("", role)
}

func (g *Game) stop(stopper, timeUp Role) error {
	g.mu.Lock()
	if g.status == StatusStopped {
		defer g.mu.Unlock()
		return fmt.Errorf("%w: game already stopped", ErrInvalidStatus)
	}
	g.status = StatusStopped
	g.stopperRole = stopper
	g.timeUpRole = timeUp
	g.runningRoles = nil
	onStop := g.onStop
	g.mu.Unlock()

	for _, p := range g.Players() {
		if ctl := p.loadController(); ctl != nil {
			ctl.Pause()
		}
	}

	g.logger.Info("game stopped",
		zap.String("stopper", string(stopper)),
		zap.String("time_up", string(timeUp)),
	)

	if onStop != nil {
		onStop(stopper, timeUp)
	}
	return nil
}
