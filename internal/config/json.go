package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/akuzmenko/decksync/internal/flagx"
	"github.com/akuzmenko/decksync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "3s"
// or as integer nanoseconds.
type JsonConfig struct {
	LocalDBPath         string         `json:"local_db_path"`
	RemoteDSN           string         `json:"remote_dsn"`
	OwnerID             string         `json:"owner_id"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	PingTimeout         timex.Duration `json:"ping_timeout"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// the -c/-config flags. Missing file path means no JSON stage. Read or
// unmarshal errors panic; config is resolved once at startup and a broken
// file should stop the process.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.LocalDBPath != "" {
		cfg.LocalDBPath = jc.LocalDBPath
	}
	if jc.RemoteDSN != "" {
		cfg.RemoteDSN = jc.RemoteDSN
	}
	if jc.OwnerID != "" {
		cfg.OwnerID = jc.OwnerID
	}
	if jc.OnlineCheckInterval.Duration != 0 {
		cfg.OnlineCheckInterval = time.Duration(jc.OnlineCheckInterval.Duration)
	}
	if jc.PingTimeout.Duration != 0 {
		cfg.PingTimeout = time.Duration(jc.PingTimeout.Duration)
	}
}
