package syncsvc

import (
	"context"
	"errors"

	"github.com/akuzmenko/decksync/internal/common"
	"github.com/akuzmenko/decksync/internal/models"
	"github.com/akuzmenko/decksync/internal/remote"
)

// ListDecks returns the merged deck view: when online, the authoritative
// list first, then local-only decks that have not reached the remote store
// yet. A local mirror of a remotely-listed deck is suppressed so no deck
// appears twice, matching first by remote id, then by client token, then by
// owner and name for rows created before tokens existed. Offline, or when
// the backend cannot be reached, the local list stands alone.
func (s *Service) ListDecks(ctx context.Context) ([]models.Deck, error) {
	now := s.now().UTC()
	locals, err := s.deckRepo.List(ctx, s.ownerID, now)
	if err != nil {
		return nil, err
	}

	if !s.monitor.IsOnline(ctx) {
		return locals, nil
	}

	remotes, err := s.remote.GetDecks(ctx, s.ownerID)
	if err != nil {
		if remote.Unavailable(err) {
			s.logger.Warn(ctx, "deck listing falling back to local store", "error", err)
			return locals, nil
		}
		return nil, err
	}

	byRemoteID := make(map[string]struct{}, len(remotes))
	byToken := make(map[string]struct{}, len(remotes))
	byName := make(map[string]struct{}, len(remotes))
	for _, d := range remotes {
		byRemoteID[d.ID.Value()] = struct{}{}
		if d.ClientToken != "" {
			byToken[d.ClientToken] = struct{}{}
		}
		byName[d.Name] = struct{}{}
	}

	merged := remotes
	for _, d := range locals {
		if !d.RemoteID.IsZero() {
			if _, ok := byRemoteID[d.RemoteID.Value()]; ok {
				continue
			}
		}
		if d.ClientToken != "" {
			if _, ok := byToken[d.ClientToken]; ok {
				continue
			}
		}
		if _, ok := byName[d.Name]; ok {
			continue
		}
		merged = append(merged, d)
	}
	return merged, nil
}

// ListCards returns the merged card view of a deck: the authoritative list
// when reachable, plus local cards still awaiting their first replay.
func (s *Service) ListCards(ctx context.Context, deckID models.ID) ([]models.Card, error) {
	deck, err := s.resolver.ResolveDeck(ctx, deckID)
	var remoteDeckID string
	switch {
	case err == nil:
		if !deck.RemoteID.IsZero() {
			remoteDeckID = deck.RemoteID.Value()
		}
	case errors.Is(err, common.ErrNotFound) && deckID.IsRemote():
		deck = nil
		remoteDeckID = deckID.Value()
	default:
		return nil, err
	}

	locals, err := s.localCards(ctx, deck, remoteDeckID)
	if err != nil {
		return nil, err
	}

	if !s.monitor.IsOnline(ctx) || remoteDeckID == "" {
		// a remote deck with no mirror row can still own mirrored cards
		if deck == nil && remoteDeckID != "" && len(locals) == 0 {
			return nil, common.ErrNotFound
		}
		return locals, nil
	}

	remotes, err := s.remote.GetCards(ctx, remoteDeckID)
	if err != nil {
		if remote.Unavailable(err) {
			s.logger.Warn(ctx, "card listing falling back to local store", "deck", remoteDeckID, "error", err)
			return locals, nil
		}
		return nil, err
	}

	byRemoteID := make(map[string]struct{}, len(remotes))
	byToken := make(map[string]struct{}, len(remotes))
	for _, c := range remotes {
		byRemoteID[c.ID.Value()] = struct{}{}
		if c.ClientToken != "" {
			byToken[c.ClientToken] = struct{}{}
		}
	}

	merged := remotes
	for _, c := range locals {
		if !c.RemoteID.IsZero() {
			if _, ok := byRemoteID[c.RemoteID.Value()]; ok {
				continue
			}
		}
		if c.ClientToken != "" {
			if _, ok := byToken[c.ClientToken]; ok {
				continue
			}
		}
		merged = append(merged, c)
	}
	return merged, nil
}

// localCards gathers the deck's local rows under both identifiers, since a
// card references its deck by whichever namespace was current when the card
// was written.
func (s *Service) localCards(ctx context.Context, deck *models.Deck, remoteDeckID string) ([]models.Card, error) {
	var out []models.Card
	if deck != nil {
		cc, err := s.cardRepo.ListByDeck(ctx, deck.ID)
		if err != nil {
			return nil, err
		}
		out = cc
	}
	if remoteDeckID != "" {
		cc, err := s.cardRepo.ListByDeck(ctx, models.RemoteID(remoteDeckID))
		if err != nil {
			return nil, err
		}
		out = append(out, cc...)
	}
	return out, nil
}
