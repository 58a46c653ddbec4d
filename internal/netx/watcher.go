package netx

import (
	"context"
	"sync"
	"time"

	"github.com/akuzmenko/decksync/internal/logging"
)

// Mode is the engine's current connectivity mode.
type Mode string

const (
	ModeOnline  Mode = "online"
	ModeOffline Mode = "offline"
)

// Watcher polls a Monitor on a ticker and tracks mode transitions. On every
// offline→online edge it invokes OnReconnect; that callback is where the
// reconciliation engine is triggered.
type Watcher struct {
	monitor  Monitor
	interval time.Duration
	logger   logging.Logger

	// OnReconnect runs on the watcher goroutine; long work should either
	// be quick or guard itself (the reconciliation engine does).
	OnReconnect func(ctx context.Context)

	mu   sync.RWMutex
	mode Mode
}

func NewWatcher(m Monitor, interval time.Duration, logger logging.Logger) *Watcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Watcher{
		monitor:  m,
		interval: interval,
		logger:   logger,
		mode:     ModeOffline,
	}
}

// Mode returns the last observed mode.
func (w *Watcher) Mode() Mode {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.mode
}

func (w *Watcher) setMode(m Mode) {
	w.mu.Lock()
	w.mode = m
	w.mu.Unlock()
}

// Run polls until ctx is cancelled. It performs one immediate check before
// the first tick so startup doesn't wait a full interval.
func (w *Watcher) Run(ctx context.Context) {
	w.check(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.check(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) check(ctx context.Context) {
	online := w.monitor.IsOnline(ctx)

	switch {
	case online && w.Mode() != ModeOnline:
		w.setMode(ModeOnline)
		w.logger.Info(ctx, "switched mode", "mode", ModeOnline)
		if w.OnReconnect != nil {
			w.OnReconnect(ctx)
		}
	case !online && w.Mode() != ModeOffline:
		w.setMode(ModeOffline)
		w.logger.Info(ctx, "switched mode", "mode", ModeOffline)
	}
}
