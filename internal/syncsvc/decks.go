package syncsvc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akuzmenko/decksync/internal/common"
	"github.com/akuzmenko/decksync/internal/dbx"
	"github.com/akuzmenko/decksync/internal/models"
	"github.com/akuzmenko/decksync/internal/remote"
	"github.com/akuzmenko/decksync/internal/repository/cards"
	"github.com/akuzmenko/decksync/internal/repository/decks"
	"github.com/google/uuid"
)

// NewDeck is the caller-supplied part of a deck.
type NewDeck struct {
	Name        string
	Description string
	Language    string
	Settings    map[string]any
	Tags        []string
	Color       string
}

// CreateDeck creates a deck remotely when online (mirroring it locally,
// best-effort) and locally otherwise. A local-only deck is marked
// modified_offline for later replay.
func (s *Service) CreateDeck(ctx context.Context, in NewDeck) (*models.Deck, error) {
	now := s.now().UTC().Truncate(time.Second)
	d := &models.Deck{
		ID:          models.NewLocalID(),
		OwnerID:     s.ownerID,
		Name:        in.Name,
		Description: in.Description,
		Language:    in.Language,
		Settings:    in.Settings,
		Tags:        in.Tags,
		Color:       in.Color,
		CreatedAt:   now,
		UpdatedAt:   now,
		ClientToken: uuid.NewString(),
		SyncMeta:    models.SyncMeta{ModifiedOffline: true},
	}

	if s.monitor.IsOnline(ctx) {
		created, err := s.remote.CreateDeck(ctx, d)
		if err == nil {
			mirror := *d
			mirror.SyncMeta = models.SyncMeta{Synced: true, RemoteID: created.ID}
			if mErr := s.deckRepo.Insert(ctx, &mirror); mErr != nil {
				// the remote write is the durable one; a failed mirror
				// only costs offline availability of this deck
				s.logger.Warn(ctx, "failed to mirror deck locally", "deck", created.ID.String(), "error", mErr)
				return created, nil
			}
			return &mirror, nil
		}
		if !remote.Unavailable(err) {
			return nil, err
		}
		s.logger.Warn(ctx, "remote deck create failed, keeping it local", "name", in.Name, "error", err)
	}

	if err := s.deckRepo.Insert(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to create deck locally: %w", err)
	}
	return d, nil
}

// GetDeck reads from the remote store when online and the deck is known
// there, falling back to the local mirror on connectivity failure.
func (s *Service) GetDeck(ctx context.Context, id models.ID) (*models.Deck, error) {
	if s.monitor.IsOnline(ctx) {
		remoteID, local, err := s.remoteDeckID(ctx, id)
		if err != nil {
			return nil, err
		}
		if remoteID == "" {
			// known only on this device
			return local, nil
		}

		d, err := s.remote.GetDeck(ctx, remoteID)
		if err == nil {
			return d, nil
		}
		if !remote.Unavailable(err) {
			return nil, err
		}
	}

	return s.resolver.ResolveDeck(ctx, id)
}

// UpdateDeck applies the patch remote-first when online; after a successful
// remote update the local mirror is patched too (without dirtying it) so
// offline reads stay current. On connectivity failure, or offline, the local
// row is patched and marked modified_offline.
func (s *Service) UpdateDeck(ctx context.Context, id models.ID, patch models.DeckPatch) (*models.Deck, error) {
	local, key, err := s.lockDeck(ctx, id)
	if err != nil {
		return nil, err
	}
	defer s.locks.Unlock(key)

	now := s.now().UTC().Truncate(time.Second)

	if s.monitor.IsOnline(ctx) {
		remoteID := deckRemoteValue(id, local)
		if remoteID != "" {
			updated, err := s.remote.UpdateDeck(ctx, remoteID, patch)
			if err == nil {
				if local != nil {
					if mErr := s.deckRepo.UpdateMirror(ctx, local.ID.Value(), patch, now); mErr != nil {
						s.logger.Warn(ctx, "failed to update deck mirror", "deck", local.ID.String(), "error", mErr)
					}
				}
				return updated, nil
			}
			if !remote.Unavailable(err) {
				return nil, err
			}
			s.logger.Warn(ctx, "remote deck update failed, updating local copy", "deck", remoteID, "error", err)
		}
	}

	if local == nil {
		return nil, common.ErrNotFound
	}
	return s.deckRepo.Update(ctx, local.ID.Value(), patch, now)
}

// DeleteDeck deletes remote-first when online. A confirmed remote delete
// purges the local mirror and its cards; otherwise the deck is tombstoned
// (or, if it never reached the remote store, removed outright). Cards
// cascade either way.
func (s *Service) DeleteDeck(ctx context.Context, id models.ID) error {
	local, key, err := s.lockDeck(ctx, id)
	if err != nil {
		return err
	}
	defer s.locks.Unlock(key)

	if s.monitor.IsOnline(ctx) {
		remoteID := deckRemoteValue(id, local)
		if remoteID != "" {
			err := s.remote.DeleteDeck(ctx, remoteID)
			if err == nil {
				if local == nil {
					return nil
				}
				return s.purgeDeckLocally(ctx, local)
			}
			if !remote.Unavailable(err) {
				return err
			}
			s.logger.Warn(ctx, "remote deck delete failed, tombstoning locally", "deck", remoteID, "error", err)
		}
	}

	if local == nil {
		return common.ErrNotFound
	}
	return s.softDeleteDeckLocally(ctx, local)
}

// purgeDeckLocally removes the deck row and every card row referencing it,
// in one transaction.
func (s *Service) purgeDeckLocally(ctx context.Context, d *models.Deck) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
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
}

// softDeleteDeckLocally tombstones a remotely-known deck (cascading the
// tombstone to its cards) or hard-deletes a never-synced one.
func (s *Service) softDeleteDeckLocally(ctx context.Context, d *models.Deck) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		dr := decks.NewSQLiteRepository(tx)
		cr := cards.NewSQLiteRepository(tx)

		tombstoned, err := dr.SoftDelete(ctx, d.ID.Value())
		if err != nil {
			return err
		}

		if !tombstoned {
			return cr.DeleteByDeck(ctx, d.ID)
		}

		if err := cr.SoftDeleteByDeck(ctx, d.ID); err != nil {
			return err
		}
		if !d.RemoteID.IsZero() {
			if err := cr.SoftDeleteByDeck(ctx, d.RemoteID); err != nil {
				return err
			}
		}
		return nil
	})
}

// lockDeck resolves the target (when it exists locally) and takes its
// per-entity lock. The lock key is the canonical local row id when there is
// one so concurrent callers using different namespaces still serialize.
func (s *Service) lockDeck(ctx context.Context, id models.ID) (*models.Deck, string, error) {
	local, err := s.resolver.ResolveDeck(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, common.ErrNotFound) && id.IsRemote():
		// not mirrored locally; still a valid remote target
		local = nil
	default:
		return nil, "", err
	}

	key := "deck:" + id.Value()
	if local != nil {
		key = "deck:" + local.ID.Value()
	}
	s.locks.Lock(key)
	return local, key, nil
}

// remoteDeckID finds the raw remote identifier for id, resolving through
// the local mirror when id is local-namespace. local is nil when the deck
// is not mirrored on this device.
func (s *Service) remoteDeckID(ctx context.Context, id models.ID) (string, *models.Deck, error) {
	if id.IsRemote() {
		local, err := s.resolver.ResolveDeck(ctx, id)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return "", nil, err
		}
		return id.Value(), local, nil
	}

	local, err := s.resolver.ResolveDeck(ctx, id)
	if err != nil {
		return "", nil, err
	}
	if local.RemoteID.IsZero() {
		return "", local, nil
	}
	return local.RemoteID.Value(), local, nil
}

func deckRemoteValue(id models.ID, local *models.Deck) string {
	if id.IsRemote() {
		return id.Value()
	}
	if local != nil && !local.RemoteID.IsZero() {
		return local.RemoteID.Value()
	}
	return ""
}
