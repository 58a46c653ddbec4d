package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config with values from the environment. A .env file in
// the working directory is loaded first if present; real environment
// variables win over it (godotenv.Load never overrides existing vars).
//
// Recognized variables:
//
//	DECKSYNC_LOCAL_DB       path to the local SQLite file
//	DECKSYNC_REMOTE_DSN     PostgreSQL DSN of the authoritative store
//	DECKSYNC_OWNER_ID       owning user identifier
//	DECKSYNC_CHECK_INTERVAL connectivity probe interval, e.g. "3s"
//	DECKSYNC_PING_TIMEOUT   single probe timeout, e.g. "2s"
func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("DECKSYNC_LOCAL_DB"); v != "" {
		cfg.LocalDBPath = v
	}
	if v := os.Getenv("DECKSYNC_REMOTE_DSN"); v != "" {
		cfg.RemoteDSN = v
	}
	if v := os.Getenv("DECKSYNC_OWNER_ID"); v != "" {
		cfg.OwnerID = v
	}
	if v := os.Getenv("DECKSYNC_CHECK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.OnlineCheckInterval = d
		}
	}
	if v := os.Getenv("DECKSYNC_PING_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.PingTimeout = d
		}
	}
}
