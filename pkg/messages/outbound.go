package messages

import (
	"github.com/tecu23/gameclock/pkg/clock"
	"github.com/tecu23/gameclock/pkg/game"
	"github.com/tecu23/gameclock/pkg/timecontrol"
)

// Outbound events
const (
	EventConnected   = "CONNECTED"
	EventGameCreated = "GAME_CREATED"
	EventGameState   = "GAME_STATE"
	EventClockUpdate = "CLOCK_UPDATE"
	EventTimeUp      = "TIME_UP"
	EventGameStopped = "GAME_STOPPED"
	EventSnapshot    = "SNAPSHOT"
	EventError       = "ERROR"
)

// OutboundMessage is how we wrap responses before sending
// them to the client
type OutboundMessage struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

type ConnectedPayload struct {
	ConnectionID string `json:"connection_id"`
}

// GameStatePayload describes a game and every player's clock
type GameStatePayload struct {
	GameID      string        `json:"game_id"`
	Status      game.Status   `json:"status"`
	TimeUpRole  string        `json:"time_up_role,omitempty"`
	StopperRole string        `json:"stopper_role,omitempty"`
	Players     []PlayerState `json:"players"`
}

// PlayerState is one player's clock as shown to clients. Until the game
// starts it shows the main time of the player's settings.
type PlayerState struct {
	Role        string            `json:"role"`
	TimeControl timecontrol.Kind  `json:"time_control"`
	RemainingMs int64             `json:"remaining_ms"`
	Display     string            `json:"display"`
	IsRunning   bool              `json:"is_running"`
	TimeUp      bool              `json:"time_up"`
	Attributes  []clock.Attribute `json:"attributes,omitempty"`
}

// ClockUpdatePayload is sent periodically while a game is running
type ClockUpdatePayload struct {
	GameID  string       `json:"game_id"`
	Players []ClockState `json:"players"`
}

type ClockState struct {
	Role        string `json:"role"`
	RemainingMs int64  `json:"remaining_ms"`
	Display     string `json:"display"`
	IsRunning   bool   `json:"is_running"`
}

// TimeUpPayload names the player who ran out of time
type TimeUpPayload struct {
	GameID string `json:"game_id"`
	Role   string `json:"role"`
}

type GameStoppedPayload struct {
	GameID      string `json:"game_id"`
	StopperRole string `json:"stopper_role,omitempty"`
	TimeUpRole  string `json:"time_up_role,omitempty"`
}

type SnapshotPayload struct {
	Snapshot game.Snapshot `json:"snapshot"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// NewGameState describes g for clients
func NewGameState(g *game.Game) GameStatePayload {
	state := GameStatePayload{
		GameID:      g.ID.String(),
		Status:      g.Status(),
		TimeUpRole:  string(g.TimeUpRole()),
		StopperRole: string(g.StopperRole()),
	}

	for _, p := range g.Players() {
		ps := PlayerState{
			Role:        string(p.Role()),
			TimeControl: p.TimeControl().Kind,
		}

		if ctl, err := p.Controller(); err == nil {
			remaining := ctl.Time()
			ps.RemainingMs = remaining.Milliseconds()
			ps.Display = clock.FormatTime(remaining)
			ps.IsRunning = ctl.IsRunning()
			ps.TimeUp = ctl.TimeUp()
			ps.Attributes = ctl.Attributes()
		} else {
			main := p.TimeControl().Main
			ps.RemainingMs = main.Milliseconds()
			ps.Display = clock.FormatTime(main)
		}

		state.Players = append(state.Players, ps)
	}

	return state
}

// NewClockUpdate reports the current time of every started clock in g
func NewClockUpdate(g *game.Game) ClockUpdatePayload {
	update := ClockUpdatePayload{GameID: g.ID.String()}

	for _, p := range g.Players() {
		ctl, err := p.Controller()
		if err != nil {
			continue
		}
		remaining := ctl.Time()
		update.Players = append(update.Players, ClockState{
			Role:        string(p.Role()),
			RemainingMs: remaining.Milliseconds(),
			Display:     clock.FormatTime(remaining),
			IsRunning:   ctl.IsRunning(),
		})
	}

	return update
}
