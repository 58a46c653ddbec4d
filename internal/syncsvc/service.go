// Package syncsvc is the per-operation dispatcher of the offline-first
// engine. Every create/read/update/delete decides, at call time, whether to
// act against the remote store, the local store, or both:
//
//	ONLINE_PRIMARY  -- network check false --> OFFLINE
//	ONLINE_PRIMARY  -- remote unavailable  --> ONLINE_FALLBACK
//	ONLINE_FALLBACK -- serve from the local store
//	OFFLINE         -- serve from the local store
//
// Only connectivity failures fall back; a remote rejection surfaces to the
// caller, because hiding it behind a local write would swallow a real error.
package syncsvc

import (
	"database/sql"
	"time"

	"github.com/akuzmenko/decksync/internal/logging"
	"github.com/akuzmenko/decksync/internal/netx"
	"github.com/akuzmenko/decksync/internal/remote"
	"github.com/akuzmenko/decksync/internal/repository/cards"
	"github.com/akuzmenko/decksync/internal/repository/decks"
	"github.com/akuzmenko/decksync/internal/resolver"
	"github.com/akuzmenko/decksync/internal/scheduler"
	"github.com/akuzmenko/decksync/internal/syncx"
)

type Service struct {
	db       *sql.DB
	deckRepo decks.Repository
	cardRepo cards.Repository
	remote   remote.Store
	monitor  netx.Monitor
	resolver *resolver.Resolver
	sched    scheduler.Scheduler
	steps    scheduler.Steps
	ownerID  string
	logger   logging.Logger
	locks    *syncx.KMutex

	now func() time.Time
}

// New wires the orchestrator over an opened (and migrated) local database.
// If logger is nil, a default stderr logger is used.
func New(db *sql.DB, rs remote.Store, mon netx.Monitor, sched scheduler.Scheduler, ownerID string, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}

	deckRepo := decks.NewSQLiteRepository(db)
	cardRepo := cards.NewSQLiteRepository(db)

	return &Service{
		db:       db,
		deckRepo: deckRepo,
		cardRepo: cardRepo,
		remote:   rs,
		monitor:  mon,
		resolver: resolver.New(deckRepo, cardRepo),
		sched:    sched,
		steps:    scheduler.DefaultSteps(),
		ownerID:  ownerID,
		logger:   logger,
		locks:    syncx.NewKMutex(),
		now:      time.Now,
	}
}

// Resolver exposes the identifier resolver for collaborators (the
// reconciliation engine shares it).
func (s *Service) Resolver() *resolver.Resolver { return s.resolver }

// Locks exposes the per-entity lock table. The reconciliation engine takes
// the same locks before replaying a row, so a replay and a live mutation on
// the same entity never interleave.
func (s *Service) Locks() *syncx.KMutex { return s.locks }
