// Package models defines the decksync domain entities: decks, cards, their
// review state, namespaced identifiers, and the per-row sync metadata the
// offline engine tracks.
package models

import "time"

// SyncMeta is attached to every locally stored entity. It never travels to
// the remote store.
type SyncMeta struct {
	// Synced is true once a remote identifier has been assigned and no
	// local edits are pending.
	Synced bool

	// RemoteID is zero until the entity has been created remotely.
	RemoteID ID

	// ModifiedOffline is true if local fields changed since the last
	// successful sync.
	ModifiedOffline bool

	// DeletedOffline is the tombstone flag: the row is hidden from all
	// reads but retained until the remote deletion is confirmed.
	DeletedOffline bool
}

// Reconciled reports whether the entity needs no further replay.
func (m SyncMeta) Reconciled() bool {
	return !m.RemoteID.IsZero() && !m.ModifiedOffline && !m.DeletedOffline
}

// Deck is a named collection of cards owned by a user.
type Deck struct {
	// ID is the deck's identifier in the namespace it was created against.
	ID ID

	// OwnerID identifies the owning user; opaque to this engine.
	OwnerID string

	Name        string
	Description string

	// Language is a BCP 47 tag for the deck's study language.
	Language string

	// Settings is a free-form per-deck options map, persisted as JSON.
	Settings map[string]any

	// Tags is an ordered label set.
	Tags []string

	// Color is a display color tag.
	Color string

	CreatedAt time.Time
	UpdatedAt time.Time

	// Denormalized counters, computed by the local repository at read time.
	CardTotal int
	DueNew    int
	DueReview int

	// ClientToken is a uuid generated at local creation and preserved
	// through sync. It is the idempotency key reconciliation uses to adopt
	// an already-created remote deck instead of duplicating it.
	ClientToken string

	SyncMeta
}

// DeckPatch is a partial update. Nil fields are left untouched.
type DeckPatch struct {
	Name        *string
	Description *string
	Language    *string
	Settings    map[string]any
	Tags        []string
	Color       *string
}

// Empty reports whether the patch changes nothing. Empty patches still bump
// the entity's updated_at.
func (p DeckPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Language == nil &&
		p.Settings == nil && p.Tags == nil && p.Color == nil
}
