package syncsvc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akuzmenko/decksync/internal/common"
	"github.com/akuzmenko/decksync/internal/models"
	"github.com/akuzmenko/decksync/internal/remote"
	"github.com/google/uuid"
)

// NewCard is the caller-supplied part of a card.
type NewCard struct {
	DeckID  models.ID
	Front   string
	Back    string
	Notes   string
	Tags    []string
	Payload map[string]any
}

// CreateCard adds a card to a deck. When online and the deck is known
// remotely the card is created there first and mirrored locally; otherwise
// it lands in the local store awaiting replay. The local row references the
// deck through its remote identifier once one exists, so reconciliation
// never has to touch cards of already-synced decks.
func (s *Service) CreateCard(ctx context.Context, in NewCard) (*models.Card, error) {
	deck, err := s.resolver.ResolveDeck(ctx, in.DeckID)
	var remoteDeckID string
	switch {
	case err == nil:
		if !deck.RemoteID.IsZero() {
			remoteDeckID = deck.RemoteID.Value()
		}
	case errors.Is(err, common.ErrNotFound) && in.DeckID.IsRemote():
		// deck exists remotely but is not mirrored here
		deck = nil
		remoteDeckID = in.DeckID.Value()
	default:
		return nil, err
	}

	now := s.now().UTC().Truncate(time.Second)
	c := &models.Card{
		ID:          models.NewLocalID(),
		Front:       in.Front,
		Back:        in.Back,
		Notes:       in.Notes,
		Tags:        in.Tags,
		Payload:     in.Payload,
		Review:      newReviewState(now),
		CreatedAt:   now,
		UpdatedAt:   now,
		ClientToken: uuid.NewString(),
		SyncMeta:    models.SyncMeta{ModifiedOffline: true},
	}

	if s.monitor.IsOnline(ctx) && remoteDeckID != "" {
		toCreate := *c
		toCreate.DeckID = models.RemoteID(remoteDeckID)
		created, err := s.remote.CreateCard(ctx, &toCreate)
		if err == nil {
			mirror := *c
			mirror.DeckID = models.RemoteID(remoteDeckID)
			mirror.SyncMeta = models.SyncMeta{Synced: true, RemoteID: created.ID}
			if mErr := s.cardRepo.Insert(ctx, &mirror); mErr != nil {
				s.logger.Warn(ctx, "failed to mirror card locally", "card", created.ID.String(), "error", mErr)
				return created, nil
			}
			return &mirror, nil
		}
		if !remote.Unavailable(err) {
			return nil, err
		}
		s.logger.Warn(ctx, "remote card create failed, keeping it local", "deck", remoteDeckID, "error", err)
	}

	if deck == nil {
		// no local deck row to attach the card to
		return nil, common.ErrNotFound
	}
	if remoteDeckID != "" {
		c.DeckID = models.RemoteID(remoteDeckID)
	} else {
		c.DeckID = deck.ID
	}
	if err := s.cardRepo.Insert(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create card locally: %w", err)
	}
	return c, nil
}

// GetCard reads remote-first when online, falling back to the local mirror
// on connectivity failure.
func (s *Service) GetCard(ctx context.Context, id models.ID) (*models.Card, error) {
	if s.monitor.IsOnline(ctx) {
		remoteID, local, err := s.remoteCardID(ctx, id)
		if err != nil {
			return nil, err
		}
		if remoteID == "" {
			return local, nil
		}

		c, err := s.remote.GetCard(ctx, remoteID)
		if err == nil {
			return c, nil
		}
		if !remote.Unavailable(err) {
			return nil, err
		}
	}

	return s.resolver.ResolveCard(ctx, id)
}

// UpdateCard applies the patch remote-first when online, keeping the local
// mirror current without dirtying it. On connectivity failure, or offline,
// the local row is patched and marked modified_offline.
func (s *Service) UpdateCard(ctx context.Context, id models.ID, patch models.CardPatch) (*models.Card, error) {
	local, key, err := s.lockCard(ctx, id)
	if err != nil {
		return nil, err
	}
	defer s.locks.Unlock(key)

	now := s.now().UTC().Truncate(time.Second)

	if s.monitor.IsOnline(ctx) {
		remoteID := cardRemoteValue(id, local)
		if remoteID != "" {
			updated, err := s.remote.UpdateCard(ctx, remoteID, patch)
			if err == nil {
				if local != nil {
					if mErr := s.cardRepo.UpdateMirror(ctx, local.ID.Value(), patch, now); mErr != nil {
						s.logger.Warn(ctx, "failed to update card mirror", "card", local.ID.String(), "error", mErr)
					}
				}
				return updated, nil
			}
			if !remote.Unavailable(err) {
				return nil, err
			}
			s.logger.Warn(ctx, "remote card update failed, updating local copy", "card", remoteID, "error", err)
		}
	}

	if local == nil {
		return nil, common.ErrNotFound
	}
	return s.cardRepo.Update(ctx, local.ID.Value(), patch, now)
}

// DeleteCard deletes remote-first when online; a confirmed remote delete
// purges the mirror, anything else leaves a tombstone for replay.
func (s *Service) DeleteCard(ctx context.Context, id models.ID) error {
	local, key, err := s.lockCard(ctx, id)
	if err != nil {
		return err
	}
	defer s.locks.Unlock(key)

	if s.monitor.IsOnline(ctx) {
		remoteID := cardRemoteValue(id, local)
		if remoteID != "" {
			err := s.remote.DeleteCard(ctx, remoteID)
			if err == nil {
				if local == nil {
					return nil
				}
				return s.cardRepo.Delete(ctx, local.ID.Value())
			}
			if !remote.Unavailable(err) {
				return err
			}
			s.logger.Warn(ctx, "remote card delete failed, tombstoning locally", "card", remoteID, "error", err)
		}
	}

	if local == nil {
		return common.ErrNotFound
	}
	_, err = s.cardRepo.SoftDelete(ctx, local.ID.Value())
	return err
}

func (s *Service) lockCard(ctx context.Context, id models.ID) (*models.Card, string, error) {
	local, err := s.resolver.ResolveCard(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, common.ErrNotFound) && id.IsRemote():
		local = nil
	default:
		return nil, "", err
	}

	key := "card:" + id.Value()
	if local != nil {
		key = "card:" + local.ID.Value()
	}
	s.locks.Lock(key)
	return local, key, nil
}

func (s *Service) remoteCardID(ctx context.Context, id models.ID) (string, *models.Card, error) {
	if id.IsRemote() {
		local, err := s.resolver.ResolveCard(ctx, id)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return "", nil, err
		}
		return id.Value(), local, nil
	}

	local, err := s.resolver.ResolveCard(ctx, id)
	if err != nil {
		return "", nil, err
	}
	if local.RemoteID.IsZero() {
		return "", local, nil
	}
	return local.RemoteID.Value(), local, nil
}

func cardRemoteValue(id models.ID, local *models.Card) string {
	if id.IsRemote() {
		return id.Value()
	}
	if local != nil && !local.RemoteID.IsZero() {
		return local.RemoteID.Value()
	}
	return ""
}

// newReviewState is the scheduling state every card starts with.
func newReviewState(now time.Time) models.ReviewState {
	return models.ReviewState{
		State:      models.StateNew,
		Difficulty: 5,
		Due:        now,
		Queue:      models.QueueNew,
	}
}
