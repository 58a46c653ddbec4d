// Package decks contains the local repository for deck rows and their sync
// metadata.
package decks

import (
	"context"
	"time"

	"github.com/akuzmenko/decksync/internal/models"
)

// Repository is the local deck store. All reads exclude tombstoned rows
// unless the method name says otherwise; counters on returned decks are
// computed against the supplied "now".
type Repository interface {
	// Insert persists a fully built deck row. The caller supplies the
	// local ID, client token, timestamps, and sync flags.
	Insert(ctx context.Context, d *models.Deck) error

	// GetByLocalID returns a non-tombstoned deck by its local identifier.
	GetByLocalID(ctx context.Context, id string, now time.Time) (*models.Deck, error)

	// GetByRemoteID returns a non-tombstoned deck whose remote_id matches.
	GetByRemoteID(ctx context.Context, remoteID string, now time.Time) (*models.Deck, error)

	// List returns the owner's non-tombstoned decks, most recently
	// updated first.
	List(ctx context.Context, ownerID string, now time.Time) ([]models.Deck, error)

	// Update applies a partial patch, marks the row dirty
	// (modified_offline=1, synced=0), and bumps updated_at. Empty patches
	// still bump updated_at.
	Update(ctx context.Context, localID string, patch models.DeckPatch, now time.Time) (*models.Deck, error)

	// UpdateMirror applies a patch without touching the sync flags. Used
	// after a successful remote update so offline reads stay current.
	UpdateMirror(ctx context.Context, localID string, patch models.DeckPatch, now time.Time) error

	// SoftDelete tombstones the deck when it is known remotely, or hard
	// deletes the row when it never was. Returns true if a tombstone was
	// left behind. Cascading to cards is the caller's job (same tx).
	SoftDelete(ctx context.Context, localID string) (tombstoned bool, err error)

	// Delete removes the row outright.
	Delete(ctx context.Context, localID string) error

	// MarkSynced records the remote identifier and clears the dirty flags.
	MarkSynced(ctx context.Context, localID, remoteID string) error

	// ListUnsynced returns the owner's decks pending replay (unsynced, no
	// remote id, or modified offline), excluding tombstones, in creation
	// order.
	ListUnsynced(ctx context.Context, ownerID string, now time.Time) ([]models.Deck, error)

	// ListTombstoned returns the owner's tombstoned decks in creation order.
	ListTombstoned(ctx context.Context, ownerID string, now time.Time) ([]models.Deck, error)
}
