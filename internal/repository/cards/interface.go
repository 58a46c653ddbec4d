// Package cards contains the local repository for card rows and their sync
// metadata.
package cards

import (
	"context"
	"time"

	"github.com/akuzmenko/decksync/internal/models"
)

// Repository is the local card store. Reads exclude tombstoned rows unless
// the method name says otherwise.
type Repository interface {
	// Insert persists a fully built card row.
	Insert(ctx context.Context, c *models.Card) error

	// GetByLocalID returns a non-tombstoned card by its local identifier.
	GetByLocalID(ctx context.Context, id string) (*models.Card, error)

	// GetByRemoteID returns a non-tombstoned card whose remote_id matches.
	GetByRemoteID(ctx context.Context, remoteID string) (*models.Card, error)

	// ListByDeck returns the deck's non-tombstoned cards, most recently
	// updated first. The deck may be referenced by either namespace.
	ListByDeck(ctx context.Context, deckID models.ID) ([]models.Card, error)

	// Update applies a partial patch, marks the row dirty, bumps
	// updated_at. Empty patches still bump updated_at.
	Update(ctx context.Context, localID string, patch models.CardPatch, now time.Time) (*models.Card, error)

	// UpdateMirror applies a patch without touching the sync flags.
	UpdateMirror(ctx context.Context, localID string, patch models.CardPatch, now time.Time) error

	// SoftDelete tombstones the card when it is known remotely, or hard
	// deletes the row otherwise. Returns true if a tombstone was left.
	SoftDelete(ctx context.Context, localID string) (tombstoned bool, err error)

	// SoftDeleteByDeck cascades a deck soft-delete: cards known remotely
	// are tombstoned, the rest are removed.
	SoftDeleteByDeck(ctx context.Context, deckID models.ID) error

	// Delete removes the row outright.
	Delete(ctx context.Context, localID string) error

	// DeleteByDeck removes all of a deck's rows, tombstoned included.
	DeleteByDeck(ctx context.Context, deckID models.ID) error

	// MarkSynced records the remote identifier and clears the dirty flags.
	MarkSynced(ctx context.Context, localID, remoteID string) error

	// ClearModified drops the modified_offline flag after a successful
	// remote update replay.
	ClearModified(ctx context.Context, localID string) error

	// ListPendingByDeck returns the deck's cards awaiting replay
	// (unsynced, modified, or tombstoned), creation order, tombstones
	// included.
	ListPendingByDeck(ctx context.Context, deckID models.ID) ([]models.Card, error)

	// RemapDeck rewrites cards pointing at a deck's local identifier to
	// its remote identifier and marks them dirty so the next
	// reconciliation pass replays them.
	RemapDeck(ctx context.Context, localDeckID, remoteDeckID string) (int64, error)
}
