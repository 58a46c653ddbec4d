// Package resolver translates identifiers between the local and remote
// namespaces against the local store. Any identifier ever handed out by a
// local create or recorded by MarkSynced resolves here; resolution never
// silently returns a different entity.
package resolver

import (
	"context"
	"fmt"
	"time"

	"github.com/akuzmenko/decksync/internal/common"
	"github.com/akuzmenko/decksync/internal/models"
	"github.com/akuzmenko/decksync/internal/repository/cards"
	"github.com/akuzmenko/decksync/internal/repository/decks"
)

type Resolver struct {
	deckRepo decks.Repository
	cardRepo cards.Repository
}

func New(deckRepo decks.Repository, cardRepo cards.Repository) *Resolver {
	return &Resolver{deckRepo: deckRepo, cardRepo: cardRepo}
}

// ResolveDeck locates the local row for an identifier in either namespace.
func (r *Resolver) ResolveDeck(ctx context.Context, id models.ID) (*models.Deck, error) {
	if id.IsZero() {
		return nil, common.ErrInvalidID
	}

	now := time.Now()
	switch {
	case id.IsLocal():
		return r.deckRepo.GetByLocalID(ctx, id.Value(), now)
	default:
		return r.deckRepo.GetByRemoteID(ctx, id.Value(), now)
	}
}

// ResolveCard locates the local row for an identifier in either namespace.
func (r *Resolver) ResolveCard(ctx context.Context, id models.ID) (*models.Card, error) {
	if id.IsZero() {
		return nil, common.ErrInvalidID
	}

	if id.IsLocal() {
		return r.cardRepo.GetByLocalID(ctx, id.Value())
	}
	return r.cardRepo.GetByRemoteID(ctx, id.Value())
}

// RemapDeckCards switches a synced deck's children from its local to its
// remote identifier and dirties them so the next reconciliation pass
// creates or updates them remotely. Returns the number of remapped cards.
func (r *Resolver) RemapDeckCards(ctx context.Context, localDeckID, remoteDeckID string) (int64, error) {
	n, err := r.cardRepo.RemapDeck(ctx, localDeckID, remoteDeckID)
	if err != nil {
		return 0, fmt.Errorf("failed to remap deck %s cards: %w", localDeckID, err)
	}
	return n, nil
}
