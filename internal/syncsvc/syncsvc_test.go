package syncsvc

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/akuzmenko/decksync/internal/common"
	"github.com/akuzmenko/decksync/internal/local"
	"github.com/akuzmenko/decksync/internal/models"
	"github.com/akuzmenko/decksync/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

const testOwner = "user-1"

// fakeRemote is an in-memory remote.Store with error injection. Setting
// failWith makes every call fail with that error.
type fakeRemote struct {
	mu       sync.Mutex
	decks    map[string]*models.Deck
	cards    map[string]*models.Card
	failWith error
	seq      int

	createDeckCalls int
	createCardCalls int
	updateCalls     int
	deleteCalls     int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		decks: make(map[string]*models.Deck),
		cards: make(map[string]*models.Card),
	}
}

func (f *fakeRemote) nextID() string {
	f.seq++
	return fmt.Sprintf("r-%04d", f.seq)
}

func (f *fakeRemote) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failWith
}

func (f *fakeRemote) CreateDeck(ctx context.Context, d *models.Deck) (*models.Deck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createDeckCalls++
	if f.failWith != nil {
		return nil, f.failWith
	}
	cp := *d
	cp.ID = models.RemoteID(f.nextID())
	cp.SyncMeta = models.SyncMeta{}
	f.decks[cp.ID.Value()] = &cp
	return &cp, nil
}

func (f *fakeRemote) GetDeck(ctx context.Context, id string) (*models.Deck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	d, ok := f.decks[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeRemote) GetDecks(ctx context.Context, ownerID string) ([]models.Deck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	var out []models.Deck
	for _, d := range f.decks {
		if d.OwnerID == ownerID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f *fakeRemote) UpdateDeck(ctx context.Context, id string, patch models.DeckPatch) (*models.Deck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.failWith != nil {
		return nil, f.failWith
	}
	d, ok := f.decks[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	if patch.Name != nil {
		d.Name = *patch.Name
	}
	if patch.Description != nil {
		d.Description = *patch.Description
	}
	cp := *d
	return &cp, nil
}

func (f *fakeRemote) DeleteDeck(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if f.failWith != nil {
		return f.failWith
	}
	delete(f.decks, id)
	for cid, c := range f.cards {
		if c.DeckID.Value() == id {
			delete(f.cards, cid)
		}
	}
	return nil
}

func (f *fakeRemote) FindDeckByToken(ctx context.Context, ownerID, token string) (*models.Deck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, d := range f.decks {
		if d.OwnerID == ownerID && d.ClientToken == token {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRemote) FindDeckByName(ctx context.Context, ownerID, name string) (*models.Deck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, d := range f.decks {
		if d.OwnerID == ownerID && d.Name == name {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRemote) CreateCard(ctx context.Context, c *models.Card) (*models.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCardCalls++
	if f.failWith != nil {
		return nil, f.failWith
	}
	if !c.DeckID.IsRemote() {
		return nil, common.ErrInvalidID
	}
	cp := *c
	cp.ID = models.RemoteID(f.nextID())
	cp.SyncMeta = models.SyncMeta{}
	f.cards[cp.ID.Value()] = &cp
	return &cp, nil
}

func (f *fakeRemote) GetCard(ctx context.Context, id string) (*models.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	c, ok := f.cards[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeRemote) GetCards(ctx context.Context, deckID string) ([]models.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	var out []models.Card
	for _, c := range f.cards {
		if c.DeckID.Value() == deckID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeRemote) UpdateCard(ctx context.Context, id string, patch models.CardPatch) (*models.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.failWith != nil {
		return nil, f.failWith
	}
	c, ok := f.cards[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	if patch.Front != nil {
		c.Front = *patch.Front
	}
	if patch.Back != nil {
		c.Back = *patch.Back
	}
	if patch.Review != nil {
		c.Review = *patch.Review
	}
	cp := *c
	return &cp, nil
}

func (f *fakeRemote) DeleteCard(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if f.failWith != nil {
		return f.failWith
	}
	delete(f.cards, id)
	return nil
}

type fakeMonitor struct{ online bool }

func (m *fakeMonitor) IsOnline(ctx context.Context) bool { return m.online }

func errUnavailable() error {
	return fmt.Errorf("dial tcp: connection refused: %w", common.ErrUnavailable)
}

func errRejected() error {
	return fmt.Errorf("violates foreign key constraint: %w", common.ErrRejected)
}

func newTestService(t *testing.T, online bool) (*Service, *fakeRemote, *fakeMonitor) {
	t.Helper()
	ctx := context.Background()

	db, err := local.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	fr := newFakeRemote()
	mon := &fakeMonitor{online: online}
	svc := New(db, fr, mon, scheduler.NewSM2(), testOwner, nil)
	return svc, fr, mon
}

func TestCreateDeckOfflineLandsLocalDirty(t *testing.T) {
	ctx := context.Background()
	svc, fr, _ := newTestService(t, false)

	d, err := svc.CreateDeck(ctx, NewDeck{Name: "spanish"})
	require.NoError(t, err)

	assert.True(t, d.ID.IsLocal())
	assert.True(t, d.ModifiedOffline)
	assert.NotEmpty(t, d.ClientToken)
	assert.Equal(t, 0, fr.createDeckCalls)

	pending, err := svc.deckRepo.ListUnsynced(ctx, testOwner, time.Now())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, d.ID, pending[0].ID)
}

func TestCreateDeckOnlineMirrorsSynced(t *testing.T) {
	ctx := context.Background()
	svc, fr, _ := newTestService(t, true)

	d, err := svc.CreateDeck(ctx, NewDeck{Name: "spanish"})
	require.NoError(t, err)

	assert.Equal(t, 1, fr.createDeckCalls)
	assert.True(t, d.Synced)
	require.False(t, d.RemoteID.IsZero())

	mirror, err := svc.deckRepo.GetByRemoteID(ctx, d.RemoteID.Value(), time.Now())
	require.NoError(t, err)
	assert.True(t, mirror.Synced)
	assert.False(t, mirror.ModifiedOffline)

	pending, err := svc.deckRepo.ListUnsynced(ctx, testOwner, time.Now())
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestCreateDeckUnavailableFallsBackLocal(t *testing.T) {
	ctx := context.Background()
	svc, fr, _ := newTestService(t, true)
	fr.failWith = errUnavailable()

	d, err := svc.CreateDeck(ctx, NewDeck{Name: "spanish"})
	require.NoError(t, err)

	assert.Equal(t, 1, fr.createDeckCalls)
	assert.True(t, d.ID.IsLocal())
	assert.True(t, d.RemoteID.IsZero())
	assert.True(t, d.ModifiedOffline)
}

func TestUpdateDeckRejectedPropagatesWithoutLocalWrite(t *testing.T) {
	ctx := context.Background()
	svc, fr, _ := newTestService(t, true)

	d, err := svc.CreateDeck(ctx, NewDeck{Name: "spanish"})
	require.NoError(t, err)

	fr.failWith = errRejected()
	name := "renamed"
	_, err = svc.UpdateDeck(ctx, d.ID, models.DeckPatch{Name: &name})
	require.ErrorIs(t, err, common.ErrRejected)

	got, err := svc.deckRepo.GetByRemoteID(ctx, d.RemoteID.Value(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "spanish", got.Name)
	assert.False(t, got.ModifiedOffline)
}

func TestUpdateDeckUnavailableDirtiesLocal(t *testing.T) {
	ctx := context.Background()
	svc, fr, _ := newTestService(t, true)

	d, err := svc.CreateDeck(ctx, NewDeck{Name: "spanish"})
	require.NoError(t, err)

	fr.failWith = errUnavailable()
	name := "renamed"
	got, err := svc.UpdateDeck(ctx, d.ID, models.DeckPatch{Name: &name})
	require.NoError(t, err)

	assert.Equal(t, "renamed", got.Name)
	assert.True(t, got.ModifiedOffline)
	assert.False(t, got.Synced)
	assert.Equal(t, "spanish", fr.decks[d.RemoteID.Value()].Name)
}

func TestUpdateDeckByRemoteIDUpdatesMirror(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, true)

	d, err := svc.CreateDeck(ctx, NewDeck{Name: "spanish"})
	require.NoError(t, err)

	name := "renamed"
	_, err = svc.UpdateDeck(ctx, d.RemoteID, models.DeckPatch{Name: &name})
	require.NoError(t, err)

	mirror, err := svc.deckRepo.GetByRemoteID(ctx, d.RemoteID.Value(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "renamed", mirror.Name)
	assert.True(t, mirror.Synced, "mirror update must not dirty the row")
}

func TestDeleteDeckOfflineTombstonesCascade(t *testing.T) {
	ctx := context.Background()
	svc, fr, mon := newTestService(t, true)

	d, err := svc.CreateDeck(ctx, NewDeck{Name: "spanish"})
	require.NoError(t, err)
	c, err := svc.CreateCard(ctx, NewCard{DeckID: d.ID, Front: "hola", Back: "hello"})
	require.NoError(t, err)

	mon.online = false
	require.NoError(t, svc.DeleteDeck(ctx, d.ID))

	// hidden from reads on both entities
	_, err = svc.GetDeck(ctx, d.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = svc.resolver.ResolveCard(ctx, c.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	// but still present remotely until replay
	assert.Len(t, fr.decks, 1)

	stones, err := svc.deckRepo.ListTombstoned(ctx, testOwner, time.Now())
	require.NoError(t, err)
	assert.Len(t, stones, 1)
}

func TestDeleteDeckNeverSyncedRemovesOutright(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, false)

	d, err := svc.CreateDeck(ctx, NewDeck{Name: "scratch"})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteDeck(ctx, d.ID))

	stones, err := svc.deckRepo.ListTombstoned(ctx, testOwner, time.Now())
	require.NoError(t, err)
	assert.Empty(t, stones, "a deck unknown to the remote store leaves no tombstone")
}

func TestDeleteDeckOnlinePurgesMirror(t *testing.T) {
	ctx := context.Background()
	svc, fr, _ := newTestService(t, true)

	d, err := svc.CreateDeck(ctx, NewDeck{Name: "spanish"})
	require.NoError(t, err)
	_, err = svc.CreateCard(ctx, NewCard{DeckID: d.ID, Front: "hola"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteDeck(ctx, d.ID))

	assert.Empty(t, fr.decks)
	stones, err := svc.deckRepo.ListTombstoned(ctx, testOwner, time.Now())
	require.NoError(t, err)
	assert.Empty(t, stones)
	locals, err := svc.deckRepo.List(ctx, testOwner, time.Now())
	require.NoError(t, err)
	assert.Empty(t, locals)
}

func TestGetDeckFallsBackToMirrorWhenUnreachable(t *testing.T) {
	ctx := context.Background()
	svc, fr, _ := newTestService(t, true)

	d, err := svc.CreateDeck(ctx, NewDeck{Name: "spanish"})
	require.NoError(t, err)

	fr.failWith = errUnavailable()
	got, err := svc.GetDeck(ctx, d.RemoteID)
	require.NoError(t, err)
	assert.Equal(t, "spanish", got.Name)
}

func TestListDecksMergeSuppressesDuplicates(t *testing.T) {
	ctx := context.Background()
	svc, _, mon := newTestService(t, true)

	// synced while online, then one more offline
	_, err := svc.CreateDeck(ctx, NewDeck{Name: "spanish"})
	require.NoError(t, err)

	mon.online = false
	_, err = svc.CreateDeck(ctx, NewDeck{Name: "french"})
	require.NoError(t, err)

	mon.online = true
	merged, err := svc.ListDecks(ctx)
	require.NoError(t, err)
	require.Len(t, merged, 2)

	names := map[string]bool{}
	for _, d := range merged {
		names[d.Name] = true
	}
	assert.True(t, names["spanish"])
	assert.True(t, names["french"])
}

func TestListDecksMergeSuppressesLocalByName(t *testing.T) {
	ctx := context.Background()
	svc, fr, mon := newTestService(t, true)

	mon.online = false
	_, err := svc.CreateDeck(ctx, NewDeck{Name: "spanish"})
	require.NoError(t, err)

	// same deck name already exists remotely, created from another device
	// with its own token
	fr.decks["r-other"] = &models.Deck{
		ID:          models.RemoteID("r-other"),
		OwnerID:     testOwner,
		Name:        "spanish",
		ClientToken: "someone-elses-token",
	}

	mon.online = true
	merged, err := svc.ListDecks(ctx)
	require.NoError(t, err)
	require.Len(t, merged, 1)
	assert.Equal(t, models.RemoteID("r-other"), merged[0].ID)
}

func TestListDecksOfflineServesLocal(t *testing.T) {
	ctx := context.Background()
	svc, fr, mon := newTestService(t, true)

	_, err := svc.CreateDeck(ctx, NewDeck{Name: "spanish"})
	require.NoError(t, err)

	mon.online = true
	fr.failWith = errUnavailable()
	got, err := svc.ListDecks(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestCreateCardOfflineAttachesToLocalDeck(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, false)

	d, err := svc.CreateDeck(ctx, NewDeck{Name: "spanish"})
	require.NoError(t, err)

	c, err := svc.CreateCard(ctx, NewCard{DeckID: d.ID, Front: "hola", Back: "hello"})
	require.NoError(t, err)

	assert.True(t, c.ID.IsLocal())
	assert.Equal(t, d.ID, c.DeckID)
	assert.Equal(t, models.StateNew, c.Review.State)

	cc, err := svc.ListCards(ctx, d.ID)
	require.NoError(t, err)
	assert.Len(t, cc, 1)
}

func TestCreateCardOnlineUsesRemoteDeckID(t *testing.T) {
	ctx := context.Background()
	svc, fr, _ := newTestService(t, true)

	d, err := svc.CreateDeck(ctx, NewDeck{Name: "spanish"})
	require.NoError(t, err)

	c, err := svc.CreateCard(ctx, NewCard{DeckID: d.ID, Front: "hola"})
	require.NoError(t, err)

	assert.Equal(t, 1, fr.createCardCalls)
	assert.True(t, c.Synced)
	assert.True(t, c.DeckID.IsRemote())
	assert.Equal(t, d.RemoteID.Value(), c.DeckID.Value())
}

func TestListCardsOfflineServesMirrorOfUnmirroredDeck(t *testing.T) {
	ctx := context.Background()
	svc, fr, mon := newTestService(t, true)

	// the deck lives remotely only; creating a card against it online still
	// leaves a local mirror row behind
	fr.decks["r-d"] = &models.Deck{
		ID:      models.RemoteID("r-d"),
		OwnerID: testOwner,
		Name:    "spanish",
	}
	_, err := svc.CreateCard(ctx, NewCard{DeckID: models.RemoteID("r-d"), Front: "hola"})
	require.NoError(t, err)

	mon.online = false
	cc, err := svc.ListCards(ctx, models.RemoteID("r-d"))
	require.NoError(t, err)
	require.Len(t, cc, 1)
	assert.Equal(t, "hola", cc[0].Front)

	// a deck id nothing local knows about still reads as missing
	_, err = svc.ListCards(ctx, models.RemoteID("r-gone"))
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestReviewCardOfflineAdvancesStateLocally(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, false)

	d, err := svc.CreateDeck(ctx, NewDeck{Name: "spanish"})
	require.NoError(t, err)
	c, err := svc.CreateCard(ctx, NewCard{DeckID: d.ID, Front: "hola"})
	require.NoError(t, err)

	got, err := svc.ReviewCard(ctx, c.ID, models.RatingGood, 3*time.Second)
	require.NoError(t, err)

	assert.Equal(t, models.StateLearning, got.Review.State)
	assert.True(t, got.Review.Due.After(c.Review.Due))
	assert.True(t, got.ModifiedOffline)
}

func TestReviewCardOnlineWritesRemoteAndMirror(t *testing.T) {
	ctx := context.Background()
	svc, fr, _ := newTestService(t, true)

	d, err := svc.CreateDeck(ctx, NewDeck{Name: "spanish"})
	require.NoError(t, err)
	c, err := svc.CreateCard(ctx, NewCard{DeckID: d.ID, Front: "hola"})
	require.NoError(t, err)

	got, err := svc.ReviewCard(ctx, c.ID, models.RatingGood, 3*time.Second)
	require.NoError(t, err)
	assert.Equal(t, models.StateLearning, got.Review.State)

	rc := fr.cards[c.RemoteID.Value()]
	assert.Equal(t, models.StateLearning, rc.Review.State)

	mirror, err := svc.cardRepo.GetByLocalID(ctx, c.ID.Value())
	require.NoError(t, err)
	assert.Equal(t, models.StateLearning, mirror.Review.State)
	assert.True(t, mirror.Synced)
}

func TestDueCardsOrdersNewFirst(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, false)

	d, err := svc.CreateDeck(ctx, NewDeck{Name: "spanish"})
	require.NoError(t, err)

	reviewed, err := svc.CreateCard(ctx, NewCard{DeckID: d.ID, Front: "uno"})
	require.NoError(t, err)
	fresh, err := svc.CreateCard(ctx, NewCard{DeckID: d.ID, Front: "dos"})
	require.NoError(t, err)

	// push the first card into the learning queue with a past due date
	past := time.Now().UTC().Add(-time.Hour)
	st := reviewed.Review
	st.State = models.StateLearning
	st.Queue = models.QueueLearning
	st.Due = past
	st.Reps = 1
	_, err = svc.UpdateCard(ctx, reviewed.ID, models.CardPatch{Review: &st})
	require.NoError(t, err)

	due, err := svc.DueCards(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, fresh.ID, due[0].ID, "new card comes before a due learning card")
	assert.Equal(t, reviewed.ID, due[1].ID)
}

func TestDeleteCardOfflineLeavesTombstone(t *testing.T) {
	ctx := context.Background()
	svc, fr, mon := newTestService(t, true)

	d, err := svc.CreateDeck(ctx, NewDeck{Name: "spanish"})
	require.NoError(t, err)
	c, err := svc.CreateCard(ctx, NewCard{DeckID: d.ID, Front: "hola"})
	require.NoError(t, err)

	mon.online = false
	require.NoError(t, svc.DeleteCard(ctx, c.ID))

	_, err = svc.resolver.ResolveCard(ctx, c.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Len(t, fr.cards, 1, "remote copy survives until replay")

	pending, err := svc.cardRepo.ListPendingByDeck(ctx, c.DeckID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.True(t, pending[0].DeletedOffline)
}
