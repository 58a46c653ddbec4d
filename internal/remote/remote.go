// Package remote defines the boundary to the authoritative store. The sync
// orchestrator and the reconciliation engine only ever see this interface;
// the transport and schema behind it are a collaborator's concern.
//
// Implementations classify every failure into one of two sentinel classes
// from internal/common: ErrUnavailable (the backend was never reached; the
// caller may fall back to the local store) or ErrRejected (the backend
// refused the operation; the caller must surface it).
package remote

import (
	"context"
	"errors"

	"github.com/akuzmenko/decksync/internal/common"
	"github.com/akuzmenko/decksync/internal/models"
)

// Store is the thin CRUD client against the authoritative backend. All
// identifiers are raw remote-namespace values; returned entities carry
// remote-namespace IDs and empty sync metadata.
type Store interface {
	// Ping reports backend reachability. Doubles as the network monitor's
	// probe target.
	Ping(ctx context.Context) error

	CreateDeck(ctx context.Context, d *models.Deck) (*models.Deck, error)
	GetDeck(ctx context.Context, id string) (*models.Deck, error)
	GetDecks(ctx context.Context, ownerID string) ([]models.Deck, error)
	UpdateDeck(ctx context.Context, id string, patch models.DeckPatch) (*models.Deck, error)
	DeleteDeck(ctx context.Context, id string) error

	// FindDeckByToken locates a deck by its client-generated idempotency
	// token; the primary duplicate-avoidance key during reconciliation.
	FindDeckByToken(ctx context.Context, ownerID, token string) (*models.Deck, error)

	// FindDeckByName is the legacy duplicate-avoidance heuristic, used
	// only when the token finds nothing.
	FindDeckByName(ctx context.Context, ownerID, name string) (*models.Deck, error)

	CreateCard(ctx context.Context, c *models.Card) (*models.Card, error)
	GetCard(ctx context.Context, id string) (*models.Card, error)
	GetCards(ctx context.Context, deckID string) ([]models.Card, error)
	UpdateCard(ctx context.Context, id string, patch models.CardPatch) (*models.Card, error)
	DeleteCard(ctx context.Context, id string) error
}

// Unavailable reports whether err means the backend could not be reached.
// Only this class of failure is recoverable by local fallback.
func Unavailable(err error) bool {
	return errors.Is(err, common.ErrUnavailable)
}
