// Package timecontrol defines the time-control protocols a game clock can
// run under and the settings each protocol reads.
package timecontrol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidSettings is returned by Validate for settings the clock cannot run.
var ErrInvalidSettings = errors.New("invalid time control settings")

// Kind selects the protocol a controller implements
type Kind int

// The supported time-control protocols
const (
	Fixed Kind = iota
	Increment
	Byoyomi
	Yingshi
)

var kindNames = map[Kind]string{
	Fixed:     "fixed",
	Increment: "increment",
	Byoyomi:   "byoyomi",
	Yingshi:   "yingshi",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps a protocol name to its Kind. Matching is case-insensitive.
func ParseKind(s string) (Kind, error) {
	for kind, name := range kindNames {
		if strings.EqualFold(name, s) {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("unknown time control kind %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("unknown time control kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *Kind) UnmarshalText(text []byte) error {
	kind, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// Settings holds the protocol parameters of one player's clock. Fields a
// protocol does not use are ignored by it.
type Settings struct {
	Kind Kind

	// Main is the initial allotted time.
	Main time.Duration

	// Increment is the bonus added after a turn longer than
	// IncrementThreshold (Increment kind).
	Increment          time.Duration
	IncrementThreshold time.Duration

	// PeriodTime and Periods configure byoyomi. With ByoyomiResetOnResume
	// the period refills on every resume instead of only on expiry.
	PeriodTime           time.Duration
	Periods              int
	ByoyomiResetOnResume bool

	// PenaltyTime and MaxPenalties configure Yingshi penalty periods.
	PenaltyTime  time.Duration
	MaxPenalties int
}

// Default returns the standard settings for a kind
func Default(kind Kind) Settings {
	switch kind {
	case Increment:
		return Settings{
			Kind:               Increment,
			Main:               30 * time.Minute,
			Increment:          20 * time.Second,
			IncrementThreshold: 20 * time.Second,
		}
	case Byoyomi:
		return Settings{
			Kind:       Byoyomi,
			Main:       10 * time.Minute,
			PeriodTime: 30 * time.Second,
			Periods:    3,
		}
	case Yingshi:
		return Settings{
			Kind:         Yingshi,
			Main:         30 * time.Minute,
			PenaltyTime:  20 * time.Minute,
			MaxPenalties: 2,
		}
	default:
		return Settings{
			Kind: Fixed,
			Main: 10 * time.Minute,
		}
	}
}

// Validate checks the parameters the selected protocol reads
func (s Settings) Validate() error {
	if _, ok := kindNames[s.Kind]; !ok {
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidSettings, int(s.Kind))
	}
	if s.Main <= 0 {
		return fmt.Errorf("%w: main time must be positive", ErrInvalidSettings)
	}

	switch s.Kind {
	case Increment:
		if s.Increment < 0 || s.IncrementThreshold < 0 {
			return fmt.Errorf("%w: increment and threshold must not be negative", ErrInvalidSettings)
		}
	case Byoyomi:
		if s.PeriodTime <= 0 {
			return fmt.Errorf("%w: period time must be positive", ErrInvalidSettings)
		}
		if s.Periods < 1 {
			return fmt.Errorf("%w: at least one period is required", ErrInvalidSettings)
		}
	case Yingshi:
		if s.PenaltyTime <= 0 {
			return fmt.Errorf("%w: penalty time must be positive", ErrInvalidSettings)
		}
		if s.MaxPenalties < 0 {
			return fmt.Errorf("%w: max penalties must not be negative", ErrInvalidSettings)
		}
	}

	return nil
}

// settingsJSON is the wire shape of Settings; durations are milliseconds.
type settingsJSON struct {
	Kind                 Kind  `json:"kind"`
	MainMs               int64 `json:"main_ms"`
	IncrementMs          int64 `json:"increment_ms,omitempty"`
	IncrementThresholdMs int64 `json:"increment_threshold_ms,omitempty"`
	PeriodTimeMs         int64 `json:"period_time_ms,omitempty"`
	Periods              int   `json:"periods,omitempty"`
	ByoyomiResetOnResume bool  `json:"byoyomi_reset_on_resume,omitempty"`
	PenaltyTimeMs        int64 `json:"penalty_time_ms,omitempty"`
	MaxPenalties         int   `json:"max_penalties,omitempty"`
}

// MarshalJSON encodes durations as integer milliseconds
func (s Settings) MarshalJSON() ([]byte, error) {
	return json.Marshal(settingsJSON{
		Kind:                 s.Kind,
		MainMs:               s.Main.Milliseconds(),
		IncrementMs:          s.Increment.Milliseconds(),
		IncrementThresholdMs: s.IncrementThreshold.Milliseconds(),
		PeriodTimeMs:         s.PeriodTime.Milliseconds(),
		Periods:              s.Periods,
		ByoyomiResetOnResume: s.ByoyomiResetOnResume,
		PenaltyTimeMs:        s.PenaltyTime.Milliseconds(),
		MaxPenalties:         s.MaxPenalties,
	})
}

// UnmarshalJSON decodes the millisecond wire shape
func (s *Settings) UnmarshalJSON(data []byte) error {
	var raw settingsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = Settings{
		Kind:                 raw.Kind,
		Main:                 time.Duration(raw.MainMs) * time.Millisecond,
		Increment:            time.Duration(raw.IncrementMs) * time.Millisecond,
		IncrementThreshold:   time.Duration(raw.IncrementThresholdMs) * time.Millisecond,
		PeriodTime:           time.Duration(raw.PeriodTimeMs) * time.Millisecond,
		Periods:              raw.Periods,
		ByoyomiResetOnResume: raw.ByoyomiResetOnResume,
		PenaltyTime:          time.Duration(raw.PenaltyTimeMs) * time.Millisecond,
		MaxPenalties:         raw.MaxPenalties,
	}
	return nil
}
