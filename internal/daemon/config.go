// Package daemon manages the RoboOS daemon lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/roboos-network/roboos/internal/domain"
	"github.com/roboos-network/roboos/internal/engine/clock"
	"github.com/roboos-network/roboos/internal/engine/rules"
	"github.com/roboos-network/roboos/internal/engine/session"
	"github.com/roboos-network/roboos/internal/health"
)

// Config holds all daemon configuration.
type Config struct {
	API        APIConfig        `toml:"api"`
	Simulation SimulationConfig `toml:"simulation"`
	Session    SessionConfig    `toml:"session"`
	Journal    JournalConfig    `toml:"journal"`
	Health     HealthConfig     `toml:"health"`
	Logging    LoggingConfig    `toml:"logging"`
	Telemetry  TelemetryConfig  `toml:"telemetry"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// SimulationConfig controls the tick clock and the rule table.
type SimulationConfig struct {
	TickInterval      string                 `toml:"tick_interval"`
	Seed              uint64                 `toml:"seed"` // 0 = entropy-seeded
	ClampOpenChannels bool                   `toml:"clamp_open_channels"`
	StartETA          string                 `toml:"start_eta"`
	TaskTransitions   []rules.TaskTransition `toml:"task_transitions,omitempty"`

	// Manual disables the background loop for headless runs.
	Manual bool `toml:"-"`
}

// SessionConfig sets the starting network and the placeholder wallet.
type SessionConfig struct {
	Network         string  `toml:"network"`
	WalletAddress   string  `toml:"wallet_address"`
	StartingBalance float64 `toml:"starting_balance"`
}

// JournalConfig controls the tick journal. An empty path keeps it in memory.
type JournalConfig struct {
	Path      string `toml:"path"`
	Retention int    `toml:"retention"`
}

// HealthConfig controls the background health checker.
type HealthConfig struct {
	Interval string `toml:"interval"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `toml:"level"` // "info" or "debug"
}

// TelemetryConfig controls metrics export.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	rc := rules.DefaultConfig()
	return Config{
		API: APIConfig{
			Host:        "127.0.0.1",
			Port:        8420,
			CORSOrigins: []string{"*"},
		},
		Simulation: SimulationConfig{
			TickInterval: clock.DefaultInterval.String(),
			StartETA:     rc.StartETA.String(),
		},
		Session: SessionConfig{
			Network:         string(domain.NetworkDevnet),
			WalletAddress:   domain.DefaultWalletAddress,
			StartingBalance: domain.DefaultStartingBalance,
		},
		Journal: JournalConfig{
			Retention: 10000,
		},
		Health: HealthConfig{
			Interval: health.DefaultInterval.String(),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			Prometheus: true,
		},
	}
}

// LoadConfig reads config from $ROBOOS_HOME/config.toml, falling back to defaults.
func LoadConfig() (Config, error) {
	return LoadConfigFile(ConfigPath())
}

// LoadConfigFile reads config from path, falling back to defaults when the
// file does not exist.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil // No config file yet, use defaults
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveConfig writes the config to $ROBOOS_HOME/config.toml.
func SaveConfig(cfg Config) error {
	return SaveConfigFile(ConfigPath(), cfg)
}

// SaveConfigFile writes the config to path.
func SaveConfigFile(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// Validate checks the fields that have no safe fallback.
func (c Config) Validate() error {
	if _, err := domain.ParseNetwork(c.Session.Network); err != nil {
		return err
	}
	if c.Session.StartingBalance < 0 {
		return fmt.Errorf("session.starting_balance must be >= 0, got %v", c.Session.StartingBalance)
	}
	if c.Journal.Retention < 0 {
		return fmt.Errorf("journal.retention must be >= 0, got %d", c.Journal.Retention)
	}
	if _, err := c.Rules(); err != nil {
		return err
	}
	return nil
}

// Rules converts the simulation section into a validated rule config.
func (c Config) Rules() (rules.Config, error) {
	rc := rules.DefaultConfig()
	rc.ClampOpenChannels = c.Simulation.ClampOpenChannels
	rc.StartETA = parseDuration(c.Simulation.StartETA, rc.StartETA)
	if len(c.Simulation.TaskTransitions) > 0 {
		rc.Transitions = c.Simulation.TaskTransitions
	}
	if err := rc.Validate(); err != nil {
		return rc, fmt.Errorf("simulation: %w", err)
	}
	return rc, nil
}

// Clock converts the simulation section into a clock config.
func (c Config) Clock() clock.Config {
	return clock.Config{
		Interval: parseDuration(c.Simulation.TickInterval, clock.DefaultInterval),
		Verbose:  c.Logging.Level == "debug",
		Manual:   c.Simulation.Manual,
	}
}

// SessionController converts the session section into a controller config.
func (c Config) SessionController() session.Config {
	return session.Config{
		WalletAddress:   c.Session.WalletAddress,
		StartingBalance: c.Session.StartingBalance,
	}
}

// Network returns the configured starting network.
func (c Config) Network() domain.Network {
	n, err := domain.ParseNetwork(c.Session.Network)
	if err != nil {
		return domain.NetworkDevnet
	}
	return n
}

// ConfigPath is the config file location.
func ConfigPath() string {
	return filepath.Join(roboosHome(), "config.toml")
}

// roboosHome returns the RoboOS data directory.
func roboosHome() string {
	if env := os.Getenv("ROBOOS_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".roboos")
}

// parseDuration parses a duration string, returning a fallback on error.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
