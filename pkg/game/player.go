package game

import (
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/tecu23/gameclock/pkg/clock"
	"github.com/tecu23/gameclock/pkg/timecontrol"
)

// Player owns one clock of a game. Its controller exists only once the game
// has started.
type Player struct {
	role Role
	game *Game

	mu         sync.Mutex
	settings   timecontrol.Settings
	controller clock.Controller
}

func (p *Player) Role() Role {
	return p.role
}

// TimeControl returns the player's time-control settings
func (p *Player) TimeControl() timecontrol.Settings {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.settings
}

// SetTimeControl replaces the player's settings. Only allowed before the
// game starts.
func (p *Player) SetTimeControl(s timecontrol.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}

	if status := p.game.Status(); status != StatusPending {
		return fmt.Errorf("%w: time control is fixed once the game is %s", ErrInvalidStatus, status)
	}

	p.mu.Lock()
	p.settings = s
	p.mu.Unlock()
	return nil
}

// Controller returns the player's clock
func (p *Player) Controller() (clock.Controller, error) {
	ctl := p.loadController()
	if ctl == nil {
		return nil, fmt.Errorf("%w: player %q", ErrControllerNotInitialized, p.role)
	}
	return ctl, nil
}

// Tap hands the clock over: this player's clock stops and the next
// player's starts. No move is validated.
func (p *Player) Tap() error {
	if status := p.game.Status(); status != StatusStarted {
		return fmt.Errorf("%w: cannot tap in a %s game", ErrInvalidStatus, status)
	}

	own, err := p.Controller()
	if err != nil {
		return err
	}

	nextRole, err := p.game.NextRole(p.role)
	if err != nil {
		return err
	}
	next, err := p.game.players[nextRole].Controller()
	if err != nil {
		return err
	}

	own.Pause()

	// Pausing may have run the clock out and stopped the game.
	if p.game.Status() != StatusStarted {
		return nil
	}

	next.Resume()

	p.game.logger.Debug("clock tapped",
		zap.String("role", string(p.role)),
		zap.String("next", string(nextRole)),
	)
	return nil
}

// Attributes returns the protocol state shown next to the player's clock
func (p *Player) Attributes() ([]clock.Attribute, error) {
	ctl, err := p.Controller()
	if err != nil {
		return nil, err
	}
	return ctl.Attributes(), nil
}

func (p *Player) timeUp() {
	if err := p.game.TimeUp(p.role); err != nil {
		p.game.logger.Warn("time up ignored",
			zap.String("role", string(p.role)),
			zap.Error(err),
		)
	}
}

func (p *Player) newController() (clock.Controller, error) {
	opts := append(slices.Clone(p.game.clockOpts),
		clock.WithLogger(p.game.logger.With(zap.String("role", string(p.role)))),
	)

	return clock.New(p.TimeControl(), p.timeUp, opts...)
}

func (p *Player) loadController() clock.Controller {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.controller
}

func (p *Player) setController(ctl clock.Controller) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.controller = ctl
}
