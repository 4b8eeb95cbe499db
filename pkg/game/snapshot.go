package game

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/tecu23/gameclock/pkg/clock"
	"github.com/tecu23/gameclock/pkg/timecontrol"
)

// Snapshot is the persisted state of a game
type Snapshot struct {
	ID           uuid.UUID        `json:"id"`
	Status       Status           `json:"status"`
	TimeUpRole   Role             `json:"timeUpRole,omitempty"`
	StopperRole  Role             `json:"stopperRole,omitempty"`
	RunningRoles []Role           `json:"runningRoles,omitempty"`
	Players      []PlayerSnapshot `json:"players"`
}

// PlayerSnapshot is the persisted state of one player. Clock is nil until
// the game has started.
type PlayerSnapshot struct {
	Role     Role                 `json:"role"`
	Settings timecontrol.Settings `json:"settings"`
	Clock    *clock.Snapshot      `json:"clock,omitempty"`
}

// Snapshot captures the game and every player's clock
func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	s := Snapshot{
		ID:          g.ID,
		Status:      g.status,
		TimeUpRole:  g.timeUpRole,
		StopperRole: g.stopperRole,
	}
	if g.status == StatusPaused {
		s.RunningRoles = append([]Role(nil), g.runningRoles...)
	}
	g.mu.Unlock()

	for _, p := range g.Players() {
		ps := PlayerSnapshot{
			Role:     p.role,
			Settings: p.TimeControl(),
		}
		if ctl := p.loadController(); ctl != nil {
			cs := ctl.Snapshot()
			ps.Clock = &cs
		}
		s.Players = append(s.Players, ps)
	}

	return s
}

// Restore rebuilds a game from a snapshot. Clocks that were running resume
// from their restored time. The stop callback is not fired for a game that
// was already stopped.
func Restore(s Snapshot, opts ...Option) (*Game, error) {
	if len(s.Players) == 0 {
		return nil, fmt.Errorf("%w: snapshot has no players", ErrInvalidRoles)
	}

	roles := make([]Role, 0, len(s.Players))
	for _, ps := range s.Players {
		roles = append(roles, ps.Role)
	}

	g, err := New(roles, s.Players[0].Settings, append([]Option{WithID(s.ID)}, opts...)...)
	if err != nil {
		return nil, err
	}

	for _, ps := range s.Players {
		if err := ps.Settings.Validate(); err != nil {
			return nil, fmt.Errorf("settings of %q: %w", ps.Role, err)
		}
		g.players[ps.Role].settings = ps.Settings
	}

	switch s.Status {
	case StatusPending:
		return g, nil
	case StatusStarted, StatusPaused, StatusStopped:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidStatus, s.Status)
	}

	for _, role := range s.RunningRoles {
		if _, err := g.Player(role); err != nil {
			return nil, err
		}
	}

	// Status is published before any clock runs: a restored clock may
	// expire at once and stop the game from its timer.
	g.mu.Lock()
	g.status = s.Status
	g.timeUpRole = s.TimeUpRole
	g.stopperRole = s.StopperRole
	if s.Status == StatusPaused {
		g.runningRoles = append([]Role(nil), s.RunningRoles...)
	}
	g.mu.Unlock()

	for _, ps := range s.Players {
		p := g.players[ps.Role]
		ctl, err := p.newController()
		if err != nil {
			return nil, fmt.Errorf("create controller for %q: %w", ps.Role, err)
		}

		if ps.Clock != nil {
			cs := *ps.Clock
			// Only a started game has running clocks.
			if s.Status != StatusStarted {
				cs.IsRunning = false
			}
			if err := ctl.Restore(cs); err != nil {
				return nil, fmt.Errorf("restore clock of %q: %w", ps.Role, err)
			}
		}
		p.setController(ctl)
	}

	// A stop that raced the loop only paused the controllers set so far.
	if s.Status == StatusStarted && g.Status() == StatusStopped {
		for _, p := range g.Players() {
			if ctl := p.loadController(); ctl != nil {
				ctl.Pause()
			}
		}
	}

	return g, nil
}
