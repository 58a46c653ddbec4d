// Package reconcile replays offline work against the authoritative store.
// A pass walks decks awaiting replay in creation order (parents before the
// cards that reference them), then pending cards of every synced deck, then
// deck tombstones. Every step is idempotent: an interrupted pass leaves
// only rows that the next pass picks up again, and adoption by client token
// keeps an interrupted create from producing a duplicate.
package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"sync/atomic"
	"time"

	"github.com/akuzmenko/decksync/internal/common"
	"github.com/akuzmenko/decksync/internal/dbx"
	"github.com/akuzmenko/decksync/internal/logging"
	"github.com/akuzmenko/decksync/internal/models"
	"github.com/akuzmenko/decksync/internal/remote"
	"github.com/akuzmenko/decksync/internal/repository/cards"
	"github.com/akuzmenko/decksync/internal/repository/decks"
	"github.com/akuzmenko/decksync/internal/syncx"
)

// Stats summarizes one reconciliation pass.
type Stats struct {
	DecksCreated int
	DecksAdopted int
	DecksUpdated int
	DecksDeleted int
	CardsCreated int
	CardsAdopted int
	CardsUpdated int
	CardsDeleted int

	// Failed counts entities whose replay was rejected and skipped; they
	// stay pending for the next pass.
	Failed int
}

func (s Stats) Empty() bool { return s == Stats{} }

// Engine runs reconciliation passes. At most one pass runs at a time; a
// trigger arriving while one is in flight is dropped, because the running
// pass already covers everything pending.
type Engine struct {
	db       *sql.DB
	deckRepo decks.Repository
	cardRepo cards.Repository
	remote   remote.Store
	ownerID  string
	logger   logging.Logger
	locks    *syncx.KMutex
	running  atomic.Bool

	now func() time.Time
}

// New wires an engine over the same database the orchestrator uses. Pass
// the orchestrator's lock table so replays and live mutations on the same
// entity serialize; a nil locks gets a private table.
func New(db *sql.DB, rs remote.Store, ownerID string, locks *syncx.KMutex, logger logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Default()
	}
	if locks == nil {
		locks = syncx.NewKMutex()
	}
	return &Engine{
		db:       db,
		deckRepo: decks.NewSQLiteRepository(db),
		cardRepo: cards.NewSQLiteRepository(db),
		remote:   rs,
		ownerID:  ownerID,
		logger:   logger,
		locks:    locks,
		now:      time.Now,
	}
}

// Run executes one pass. A concurrent trigger is a silent no-op. The pass
// aborts (returning what it managed so far) as soon as the backend becomes
// unreachable; rejected entities are logged, counted in Stats.Failed, and
// left pending.
func (e *Engine) Run(ctx context.Context) (Stats, error) {
	if !e.running.CompareAndSwap(false, true) {
		e.logger.Debug(ctx, "reconciliation already in progress, skipping")
		return Stats{}, nil
	}
	defer e.running.Store(false)

	var st Stats
	started := e.now()

	unsynced, err := e.deckRepo.ListUnsynced(ctx, e.ownerID, e.now())
	if err != nil {
		return st, err
	}
	for _, d := range unsynced {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		if err := e.replayDeck(ctx, &st, d); err != nil {
			return st, err
		}
	}

	all, err := e.deckRepo.List(ctx, e.ownerID, e.now())
	if err != nil {
		return st, err
	}
	for _, d := range all {
		if d.RemoteID.IsZero() {
			continue
		}
		if err := e.replayDeckCards(ctx, &st, d); err != nil {
			return st, err
		}
	}

	stones, err := e.deckRepo.ListTombstoned(ctx, e.ownerID, e.now())
	if err != nil {
		return st, err
	}
	for _, d := range stones {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		if err := e.replayDeckTombstone(ctx, &st, d); err != nil {
			return st, err
		}
	}

	if !st.Empty() {
		e.logger.Info(ctx, "reconciliation finished",
			"decks_created", st.DecksCreated,
			"decks_adopted", st.DecksAdopted,
			"decks_updated", st.DecksUpdated,
			"decks_deleted", st.DecksDeleted,
			"cards_created", st.CardsCreated,
			"cards_adopted", st.CardsAdopted,
			"cards_updated", st.CardsUpdated,
			"cards_deleted", st.CardsDeleted,
			"failed", st.Failed,
			"duration", time.Since(started),
		)
	}
	return st, nil
}

// replayDeck pushes a pending (never-synced or modified) deck remotely and
// clears its flags. A never-synced deck is first matched against existing
// remote decks so a retry of an interrupted pass adopts instead of
// duplicating.
func (e *Engine) replayDeck(ctx context.Context, st *Stats, d models.Deck) error {
	key := "deck:" + d.ID.Value()
	e.locks.Lock(key)
	defer e.locks.Unlock(key)

	// re-read under the lock; a live call may have synced or removed it
	cur, err := e.deckRepo.GetByLocalID(ctx, d.ID.Value(), e.now())
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	if err != nil {
		return e.fail(ctx, st, "deck", d.ID.Value(), err)
	}
	if cur.Reconciled() {
		return nil
	}

	if cur.RemoteID.IsZero() {
		remoteID, adopted, err := e.placeDeck(ctx, cur)
		if err != nil {
			return e.fail(ctx, st, "deck", cur.ID.Value(), err)
		}
		// one transaction: a deck marked synced with cards still pointing
		// at the local namespace would never be replayed again
		err = dbx.WithTx(ctx, e.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			if err := decks.NewSQLiteRepository(tx).MarkSynced(ctx, cur.ID.Value(), remoteID); err != nil {
				return err
			}
			_, err := cards.NewSQLiteRepository(tx).RemapDeck(ctx, cur.ID.Value(), remoteID)
			return err
		})
		if err != nil {
			return e.fail(ctx, st, "deck", cur.ID.Value(), err)
		}
		if adopted {
			st.DecksAdopted++
		} else {
			st.DecksCreated++
		}
		return nil
	}

	if _, err := e.remote.UpdateDeck(ctx, cur.RemoteID.Value(), deckPatch(cur)); err != nil {
		return e.fail(ctx, st, "deck", cur.ID.Value(), err)
	}
	if err := e.deckRepo.MarkSynced(ctx, cur.ID.Value(), cur.RemoteID.Value()); err != nil {
		return e.fail(ctx, st, "deck", cur.ID.Value(), err)
	}
	st.DecksUpdated++
	return nil
}

// placeDeck finds the remote identifier for a never-synced deck: by client
// token first, by owner and name second, creating it only when neither
// matches.
func (e *Engine) placeDeck(ctx context.Context, d *models.Deck) (remoteID string, adopted bool, err error) {
	if d.ClientToken != "" {
		found, err := e.remote.FindDeckByToken(ctx, e.ownerID, d.ClientToken)
		if err != nil {
			return "", false, err
		}
		if found != nil {
			return found.ID.Value(), true, nil
		}
	}

	found, err := e.remote.FindDeckByName(ctx, e.ownerID, d.Name)
	if err != nil {
		return "", false, err
	}
	if found != nil {
		return found.ID.Value(), true, nil
	}

	created, err := e.remote.CreateDeck(ctx, d)
	if err != nil {
		return "", false, err
	}
	return created.ID.Value(), false, nil
}

// replayDeckCards replays the pending cards of one synced deck: tombstones
// become remote deletes, never-synced cards are created (or adopted by
// client token), modified cards are updated.
func (e *Engine) replayDeckCards(ctx context.Context, st *Stats, d models.Deck) error {
	deckRemoteID := d.RemoteID.Value()

	// an earlier interrupted pass may have synced the deck without
	// remapping its cards; the sweep only touches local-namespace rows
	if _, err := e.cardRepo.RemapDeck(ctx, d.ID.Value(), deckRemoteID); err != nil {
		return e.fail(ctx, st, "deck cards", deckRemoteID, err)
	}

	pending, err := e.cardRepo.ListPendingByDeck(ctx, models.RemoteID(deckRemoteID))
	if err != nil {
		return e.fail(ctx, st, "deck cards", deckRemoteID, err)
	}
	if len(pending) == 0 {
		return nil
	}

	// cards have no server-side token lookup; one listing per deck covers
	// adoption for every pending create in it
	var byToken map[string]string
	for _, c := range pending {
		if c.RemoteID.IsZero() && !c.DeletedOffline {
			remotes, err := e.remote.GetCards(ctx, deckRemoteID)
			if err != nil {
				return e.fail(ctx, st, "deck cards", deckRemoteID, err)
			}
			byToken = make(map[string]string, len(remotes))
			for _, rc := range remotes {
				if rc.ClientToken != "" {
					byToken[rc.ClientToken] = rc.ID.Value()
				}
			}
			break
		}
	}

	for _, c := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.replayCard(ctx, st, c, deckRemoteID, byToken); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) replayCard(ctx context.Context, st *Stats, c models.Card, deckRemoteID string, byToken map[string]string) error {
	key := "card:" + c.ID.Value()
	e.locks.Lock(key)
	defer e.locks.Unlock(key)

	// re-read under the lock; the listing snapshot may be stale if a live
	// call won the lock first
	if !c.DeletedOffline {
		fresh, err := e.cardRepo.GetByLocalID(ctx, c.ID.Value())
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		if err != nil {
			return e.fail(ctx, st, "card", c.ID.Value(), err)
		}
		if fresh.Reconciled() {
			return nil
		}
		c = *fresh
	}

	switch {
	case c.DeletedOffline:
		if !c.RemoteID.IsZero() {
			if err := e.remote.DeleteCard(ctx, c.RemoteID.Value()); err != nil {
				return e.fail(ctx, st, "card", c.ID.Value(), err)
			}
		}
		if err := e.cardRepo.Delete(ctx, c.ID.Value()); err != nil {
			return e.fail(ctx, st, "card", c.ID.Value(), err)
		}
		st.CardsDeleted++

	case c.RemoteID.IsZero():
		if rid, ok := byToken[c.ClientToken]; ok && c.ClientToken != "" {
			if err := e.cardRepo.MarkSynced(ctx, c.ID.Value(), rid); err != nil {
				return e.fail(ctx, st, "card", c.ID.Value(), err)
			}
			st.CardsAdopted++
			return nil
		}
		toCreate := c
		toCreate.DeckID = models.RemoteID(deckRemoteID)
		created, err := e.remote.CreateCard(ctx, &toCreate)
		if err != nil {
			return e.fail(ctx, st, "card", c.ID.Value(), err)
		}
		if err := e.cardRepo.MarkSynced(ctx, c.ID.Value(), created.ID.Value()); err != nil {
			return e.fail(ctx, st, "card", c.ID.Value(), err)
		}
		st.CardsCreated++

	default:
		if _, err := e.remote.UpdateCard(ctx, c.RemoteID.Value(), cardPatch(c)); err != nil {
			return e.fail(ctx, st, "card", c.ID.Value(), err)
		}
		if err := e.cardRepo.ClearModified(ctx, c.ID.Value()); err != nil {
			return e.fail(ctx, st, "card", c.ID.Value(), err)
		}
		st.CardsUpdated++
	}
	return nil
}

// replayDeckTombstone confirms a deck deletion remotely and purges the
// local tombstone together with every card row still referencing the deck.
func (e *Engine) replayDeckTombstone(ctx context.Context, st *Stats, d models.Deck) error {
	key := "deck:" + d.ID.Value()
	e.locks.Lock(key)
	defer e.locks.Unlock(key)

	if !d.RemoteID.IsZero() {
		if err := e.remote.DeleteDeck(ctx, d.RemoteID.Value()); err != nil {
			return e.fail(ctx, st, "deck", d.ID.Value(), err)
		}
	}

	err := dbx.WithTx(ctx, e.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		dr := decks.NewSQLiteRepository(tx)
		cr := cards.NewSQLiteRepository(tx)

		if err := cr.DeleteByDeck(ctx, d.ID); err != nil {
			return err
		}
		if !d.RemoteID.IsZero() {
			if err := cr.DeleteByDeck(ctx, d.RemoteID); err != nil {
				return err
			}
		}
		return dr.Delete(ctx, d.ID.Value())
	})
	if err != nil {
		return e.fail(ctx, st, "deck", d.ID.Value(), err)
	}
	st.DecksDeleted++
	return nil
}

// fail classifies a replay error: connectivity loss aborts the pass, any
// other failure is logged and skipped so one bad row cannot wedge the rest.
func (e *Engine) fail(ctx context.Context, st *Stats, kind, id string, err error) error {
	if remote.Unavailable(err) {
		e.logger.Warn(ctx, "reconciliation aborted, backend unreachable", "error", err)
		return err
	}
	st.Failed++
	e.logger.Error(ctx, "failed to reconcile "+kind, "id", id, "error", err)
	return nil
}

// deckPatch turns a local deck row into a full-field patch for replay.
func deckPatch(d *models.Deck) models.DeckPatch {
	return models.DeckPatch{
		Name:        &d.Name,
		Description: &d.Description,
		Language:    &d.Language,
		Settings:    orEmptyMap(d.Settings),
		Tags:        orEmptySlice(d.Tags),
		Color:       &d.Color,
	}
}

func cardPatch(c models.Card) models.CardPatch {
	review := c.Review
	return models.CardPatch{
		Front:   &c.Front,
		Back:    &c.Back,
		Notes:   &c.Notes,
		Tags:    orEmptySlice(c.Tags),
		Payload: orEmptyMap(c.Payload),
		Review:  &review,
	}
}

// orEmptyMap keeps a full-field patch from reading as "unset" for a map
// field that happens to be empty locally.
func orEmptyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func orEmptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
