// Package cli is the interactive front end of the decksync engine: a small
// REPL over the sync orchestrator, with a connectivity watcher running in
// the background that triggers reconciliation on every reconnect.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/akuzmenko/decksync/internal/config"
	"github.com/akuzmenko/decksync/internal/local"
	"github.com/akuzmenko/decksync/internal/logging"
	"github.com/akuzmenko/decksync/internal/netx"
	"github.com/akuzmenko/decksync/internal/reconcile"
	"github.com/akuzmenko/decksync/internal/remote/postgres"
	"github.com/akuzmenko/decksync/internal/scheduler"
	"github.com/akuzmenko/decksync/internal/syncsvc"

	_ "modernc.org/sqlite"
)

type App struct {
	config  *config.Config
	db      *sql.DB
	backend *postgres.DB
	svc     *syncsvc.Service
	engine  *reconcile.Engine
	watcher *netx.Watcher
	logger  logging.Logger
	reader  *bufio.Reader
}

func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()
	logger := logging.Default()

	db, err := local.Open(ctx, c.LocalDBPath)
	if err != nil {
		return nil, fmt.Errorf("error initializing local database: %w", err)
	}

	backend, err := postgres.New(ctx, c.RemoteDSN)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	store := postgres.NewStore(backend)

	monitor := netx.NewPingMonitor(store, c.PingTimeout)
	svc := syncsvc.New(db, store, monitor, scheduler.NewSM2(), c.OwnerID, logger)
	engine := reconcile.New(db, store, c.OwnerID, svc.Locks(), logger)

	watcher := netx.NewWatcher(monitor, c.OnlineCheckInterval, logger)
	watcher.OnReconnect = func(ctx context.Context) {
		if _, err := engine.Run(ctx); err != nil {
			logger.Warn(ctx, "reconciliation interrupted", "error", err)
		}
	}

	return &App{
		config:  c,
		db:      db,
		backend: backend,
		svc:     svc,
		engine:  engine,
		watcher: watcher,
		logger:  logger,
		reader:  bufio.NewReader(os.Stdin),
	}, nil
}

// Run starts the connectivity watcher and hands the terminal to the REPL.
// It returns when the user exits or stdin closes.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.Close()

	go a.watcher.Run(ctx)

	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.status, scanner)
}

func (a *App) Close() {
	a.backend.Close()
	_ = a.db.Close()
}

func (a *App) status() string {
	return string(a.watcher.Mode())
}
