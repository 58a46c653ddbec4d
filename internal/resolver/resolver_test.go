package resolver

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/akuzmenko/decksync/internal/common"
	"github.com/akuzmenko/decksync/internal/local"
	"github.com/akuzmenko/decksync/internal/models"
	"github.com/akuzmenko/decksync/internal/repository/cards"
	"github.com/akuzmenko/decksync/internal/repository/decks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

var now = time.Unix(1700000000, 0).UTC()

func setup(t *testing.T) (*Resolver, decks.Repository, cards.Repository) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, local.RunMigrations(context.Background(), db))

	deckRepo := decks.NewSQLiteRepository(db)
	cardRepo := cards.NewSQLiteRepository(db)
	return New(deckRepo, cardRepo), deckRepo, cardRepo
}

func insertDeck(t *testing.T, repo decks.Repository, name string) *models.Deck {
	t.Helper()
	d := &models.Deck{
		ID:          models.NewLocalID(),
		OwnerID:     "u1",
		Name:        name,
		CreatedAt:   now,
		UpdatedAt:   now,
		ClientToken: models.NewLocalID().Value(),
		SyncMeta:    models.SyncMeta{ModifiedOffline: true},
	}
	require.NoError(t, repo.Insert(context.Background(), d))
	return d
}

func insertCard(t *testing.T, repo cards.Repository, deckID models.ID, front string) *models.Card {
	t.Helper()
	c := &models.Card{
		ID:          models.NewLocalID(),
		DeckID:      deckID,
		Front:       front,
		Back:        "b",
		CreatedAt:   now,
		UpdatedAt:   now,
		ClientToken: models.NewLocalID().Value(),
		SyncMeta:    models.SyncMeta{ModifiedOffline: true},
	}
	require.NoError(t, repo.Insert(context.Background(), c))
	return c
}

func TestResolveDeck_EitherNamespace(t *testing.T) {
	r, deckRepo, _ := setup(t)
	ctx := context.Background()

	d := insertDeck(t, deckRepo, "Verbs")
	require.NoError(t, deckRepo.MarkSynced(ctx, d.ID.Value(), "r-1"))

	byLocal, err := r.ResolveDeck(ctx, d.ID)
	require.NoError(t, err)
	byRemote, err := r.ResolveDeck(ctx, models.RemoteID("r-1"))
	require.NoError(t, err)

	assert.Equal(t, byLocal.ID, byRemote.ID)
}

func TestResolveDeck_ZeroID(t *testing.T) {
	r, _, _ := setup(t)
	_, err := r.ResolveDeck(context.Background(), models.ID{})
	assert.ErrorIs(t, err, common.ErrInvalidID)
}

func TestResolveDeck_NotFound(t *testing.T) {
	r, _, _ := setup(t)
	_, err := r.ResolveDeck(context.Background(), models.LocalID("missing"))
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestResolveCard_EitherNamespace(t *testing.T) {
	r, deckRepo, cardRepo := setup(t)
	ctx := context.Background()

	d := insertDeck(t, deckRepo, "Verbs")
	c := insertCard(t, cardRepo, d.ID, "front")
	require.NoError(t, cardRepo.MarkSynced(ctx, c.ID.Value(), "rc-1"))

	byLocal, err := r.ResolveCard(ctx, c.ID)
	require.NoError(t, err)
	byRemote, err := r.ResolveCard(ctx, models.RemoteID("rc-1"))
	require.NoError(t, err)
	assert.Equal(t, byLocal.ID, byRemote.ID)
}

func TestRemapDeckCards(t *testing.T) {
	r, deckRepo, cardRepo := setup(t)
	ctx := context.Background()

	d := insertDeck(t, deckRepo, "Verbs")
	c1 := insertCard(t, cardRepo, d.ID, "one")
	c2 := insertCard(t, cardRepo, d.ID, "two")
	other := insertCard(t, cardRepo, models.RemoteID("r-other"), "three")

	n, err := r.RemapDeckCards(ctx, d.ID.Value(), "r-deck")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	for _, id := range []models.ID{c1.ID, c2.ID} {
		got, err := cardRepo.GetByLocalID(ctx, id.Value())
		require.NoError(t, err)
		assert.Equal(t, models.RemoteID("r-deck"), got.DeckID)
		assert.True(t, got.ModifiedOffline)
	}

	got, err := cardRepo.GetByLocalID(ctx, other.ID.Value())
	require.NoError(t, err)
	assert.Equal(t, models.RemoteID("r-other"), got.DeckID)
}
