// Package config loads the server configuration from flags, the
// environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/tecu23/gameclock/pkg/timecontrol"
)

// Config holds everything cmd/server needs to run
type Config struct {
	Debug bool
	Port  string

	// FrontendOrigin is the only origin allowed to open websockets and make
	// cross-origin requests. Empty allows any origin.
	FrontendOrigin string

	APIKeys []string

	// NATSURL enables event forwarding when set
	NATSURL           string
	NATSSubjectPrefix string

	// PresetsPath is a YAML file of named time controls. Empty uses one
	// preset per protocol.
	PresetsPath string

	TickInterval time.Duration
}

// Load reads the .env file at envFile (a missing file is not an error),
// then takes defaults from the environment and lets args override them.
func Load(envFile string, args []string) (*Config, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading env file: %w", err)
	}

	cfg := &Config{
		Debug:             getEnvAsBool("DEBUG", false),
		Port:              getEnv("PORT", "8080"),
		FrontendOrigin:    getEnv("FRONTEND_PATH", ""),
		APIKeys:           splitList(getEnv("API_KEYS", "")),
		NATSURL:           getEnv("NATS_URL", ""),
		NATSSubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "gameclock.events"),
		PresetsPath:       getEnv("PRESETS_PATH", ""),
		TickInterval:      getEnvAsDuration("TICK_INTERVAL", 100*time.Millisecond),
	}

	var apiKeys string

	flagSet := pflag.NewFlagSet("gameclock", pflag.ContinueOnError)
	flagSet.BoolVar(&cfg.Debug, "debug", cfg.Debug, "enable debug logging")
	flagSet.StringVar(&cfg.Port, "port", cfg.Port, "server port")
	flagSet.StringVar(&cfg.FrontendOrigin, "frontend-origin", cfg.FrontendOrigin, "allowed websocket origin")
	flagSet.StringVar(&apiKeys, "api-keys", "", "comma-separated list of API keys")
	flagSet.StringVar(&cfg.NATSURL, "nats-url", cfg.NATSURL, "NATS server to forward game events to")
	flagSet.StringVar(&cfg.NATSSubjectPrefix, "nats-subject-prefix", cfg.NATSSubjectPrefix, "subject prefix of forwarded events")
	flagSet.StringVar(&cfg.PresetsPath, "presets", cfg.PresetsPath, "YAML file of time-control presets")
	flagSet.DurationVar(&cfg.TickInterval, "tick-interval", cfg.TickInterval, "interval between clock updates")

	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}

	if flagSet.Changed("api-keys") {
		cfg.APIKeys = splitList(apiKeys)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values no default can fix
func (c *Config) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("invalid port %q", c.Port)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", c.TickInterval)
	}
	return nil
}

// Presets loads the configured time-control presets
func (c *Config) Presets() (timecontrol.Presets, error) {
	if c.PresetsPath == "" {
		return timecontrol.DefaultPresets(), nil
	}
	return timecontrol.LoadPresets(c.PresetsPath)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// splitList splits a comma-separated list, dropping empty items
func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
