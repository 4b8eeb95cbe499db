package timecontrol

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// presetFile is the YAML layout of a presets file:
//
//	presets:
//	  blitz:
//	    kind: increment
//	    main: 5m
//	    increment: 3s
type presetFile struct {
	Presets map[string]presetEntry `yaml:"presets"`
}

type presetEntry struct {
	Kind                 Kind          `yaml:"kind"`
	Main                 time.Duration `yaml:"main"`
	Increment            time.Duration `yaml:"increment"`
	IncrementThreshold   time.Duration `yaml:"increment_threshold"`
	PeriodTime           time.Duration `yaml:"period_time"`
	Periods              int           `yaml:"periods"`
	ByoyomiResetOnResume bool          `yaml:"byoyomi_reset_on_resume"`
	PenaltyTime          time.Duration `yaml:"penalty_time"`
	MaxPenalties         int           `yaml:"max_penalties"`
}

// Presets maps a preset name to its settings
type Presets map[string]Settings

// DefaultPresets returns one preset per kind, named after the kind.
func DefaultPresets() Presets {
	presets := make(Presets, len(kindNames))
	for kind, name := range kindNames {
		presets[name] = Default(kind)
	}
	return presets
}

// LoadPresets reads a YAML presets file. Every preset is validated.
func LoadPresets(path string) (Presets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read presets file: %w", err)
	}

	return ParsePresets(data)
}

// ParsePresets decodes YAML presets
func ParsePresets(data []byte) (Presets, error) {
	var file presetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse presets: %w", err)
	}

	presets := make(Presets, len(file.Presets))
	for name, entry := range file.Presets {
		settings := Settings(entry)
		if err := settings.Validate(); err != nil {
			return nil, fmt.Errorf("preset %q: %w", name, err)
		}
		presets[name] = settings
	}

	return presets, nil
}

// Lookup returns the preset with the given name
func (p Presets) Lookup(name string) (Settings, bool) {
	s, ok := p[name]
	return s, ok
}
