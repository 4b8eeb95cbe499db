package messages

import (
	"encoding/json"

	"github.com/tecu23/gameclock/pkg/game"
	"github.com/tecu23/gameclock/pkg/timecontrol"
)

// Inbound events
const (
	EventCreateGame  = "CREATE_GAME"
	EventJoinGame    = "JOIN_GAME"
	EventStartGame   = "START_GAME"
	EventTap         = "TAP"
	EventPauseGame   = "PAUSE_GAME"
	EventResumeGame  = "RESUME_GAME"
	EventStopGame    = "STOP_GAME"
	EventGetSnapshot = "GET_SNAPSHOT"
	EventRestoreGame = "RESTORE_GAME"
)

// InboundMessage is the generic wrapper for messages coming from the client.
// The "event" field tells us the action; "payload" is the data we parse further.
type InboundMessage struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// CreateGamePayload represents the payload for creating a new game. The
// time control is taken from TimeControl, else from the named Preset, else
// the default of the increment protocol. PlayerTimeControls overrides it per
// role.
type CreateGamePayload struct {
	Roles              []string                        `json:"roles,omitempty"`
	TimeControl        *timecontrol.Settings           `json:"time_control,omitempty"`
	Preset             string                          `json:"preset,omitempty"`
	PlayerTimeControls map[string]timecontrol.Settings `json:"player_time_controls,omitempty"`
}

// GameActionPayload addresses a game, and for taps and manual stops the
// role acting on it
type GameActionPayload struct {
	GameID string `json:"game_id"`
	Role   string `json:"role,omitempty"`
}

// RestoreGamePayload carries a snapshot previously sent in a SNAPSHOT
// message
type RestoreGamePayload struct {
	Snapshot game.Snapshot `json:"snapshot"`
}
