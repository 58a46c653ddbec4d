// Package config loads runtime settings for the decksync engine.
//
// Sources are layered, later ones winning: built-in defaults, a JSON file
// (-c/-config), environment variables (optionally from a .env file), and
// command-line flags.
package config

import "time"

// Config holds runtime settings.
//
// Units: OnlineCheckInterval and PingTimeout are time.Durations.
type Config struct {
	// LocalDBPath is the SQLite file holding the local mirror.
	LocalDBPath string

	// RemoteDSN is the PostgreSQL connection string of the authoritative
	// store.
	RemoteDSN string

	// OwnerID is the opaque identifier of the user whose decks this
	// device manages.
	OwnerID string

	// OnlineCheckInterval is how often the watcher probes connectivity.
	OnlineCheckInterval time.Duration

	// PingTimeout bounds a single connectivity probe.
	PingTimeout time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.LocalDBPath = "decksync.db"
	c.RemoteDSN = "postgres://localhost:5432/decksync"
	c.OnlineCheckInterval = 3 * time.Second
	c.PingTimeout = 2 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present), the environment, and command-line flags. Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
