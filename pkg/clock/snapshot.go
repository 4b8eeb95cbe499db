package clock

import (
	"errors"
	"time"

	"github.com/tecu23/gameclock/pkg/timecontrol"
)

// ErrSnapshotMismatch is returned when a snapshot is restored into a
// controller of another protocol.
var ErrSnapshotMismatch = errors.New("snapshot does not match controller")

// Snapshot is the persisted state of a controller. Protocol counters a kind
// does not use stay zero.
type Snapshot struct {
	Kind            timecontrol.Kind `json:"kind"`
	IsRunning       bool             `json:"isRunning"`
	RemainingTimeMs int64            `json:"remainingTimeMs"`
	TimeUp          bool             `json:"timeUp,omitempty"`

	RemainingPeriods int  `json:"remainingPeriods,omitempty"`
	InByoyomi        bool `json:"inByoyomi,omitempty"`
	PenaltiesUsed    int  `json:"penaltiesUsed,omitempty"`
}

func (s Snapshot) remaining() time.Duration {
	return time.Duration(s.RemainingTimeMs) * time.Millisecond
}
