package models

import "time"

// Card is a single study item belonging to a deck.
type Card struct {
	// ID is the card's identifier in the namespace it was created against.
	ID ID

	// DeckID points at the owning deck. It may be in either namespace: a
	// card created offline under an unsynced deck holds the deck's local
	// ID until reconciliation remaps it to the deck's remote ID.
	DeckID ID

	Front string
	Back  string
	Notes string

	Tags []string

	// Payload carries language-specific data (readings, pitch accent,
	// conjugation tables...); opaque to the engine, persisted as JSON.
	Payload map[string]any

	Review ReviewState

	CreatedAt time.Time
	UpdatedAt time.Time

	// ClientToken is the idempotency key, see Deck.ClientToken.
	ClientToken string

	SyncMeta
}

// CardPatch is a partial update. Nil fields are left untouched.
type CardPatch struct {
	Front   *string
	Back    *string
	Notes   *string
	Tags    []string
	Payload map[string]any

	// Review replaces the whole review state when set; scheduling fields
	// always move together.
	Review *ReviewState
}

func (p CardPatch) Empty() bool {
	return p.Front == nil && p.Back == nil && p.Notes == nil &&
		p.Tags == nil && p.Payload == nil && p.Review == nil
}
