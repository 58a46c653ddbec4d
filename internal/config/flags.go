package config

import (
	"flag"
	"os"
	"time"

	"github.com/akuzmenko/decksync/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   path to the local SQLite database
//	-r string   PostgreSQL DSN of the remote store
//	-u string   owning user identifier
//	-i int      online check interval in seconds
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-r", "-u", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.LocalDBPath, "d", cfg.LocalDBPath, "path to the local database file")
	fs.StringVar(&cfg.RemoteDSN, "r", cfg.RemoteDSN, "remote store DSN")
	fs.StringVar(&cfg.OwnerID, "u", cfg.OwnerID, "owning user identifier")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}
