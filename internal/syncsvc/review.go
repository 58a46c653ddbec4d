package syncsvc

import (
	"context"
	"sort"
	"time"

	"github.com/akuzmenko/decksync/internal/common"
	"github.com/akuzmenko/decksync/internal/models"
	"github.com/akuzmenko/decksync/internal/remote"
)

// ReviewCard grades a card and persists the scheduling state the grade
// produces. took is how long the answer took and is recorded alongside the
// grade; the scheduler itself does not consume it. The state transition is
// pure; persistence goes through the same remote-first dispatch as any other
// card mutation, so a review recorded offline is replayed like an edit.
func (s *Service) ReviewCard(ctx context.Context, id models.ID, rating models.Rating, took time.Duration) (*models.Card, error) {
	local, key, err := s.lockCard(ctx, id)
	if err != nil {
		return nil, err
	}
	defer s.locks.Unlock(key)

	now := s.now().UTC().Truncate(time.Second)
	online := s.monitor.IsOnline(ctx)

	// grade against the freshest state we can reach
	cur := local
	remoteID := cardRemoteValue(id, local)
	if online && remoteID != "" {
		rc, err := s.remote.GetCard(ctx, remoteID)
		switch {
		case err == nil:
			cur = rc
		case remote.Unavailable(err):
			online = false
		default:
			return nil, err
		}
	}
	if cur == nil {
		return nil, common.ErrNotFound
	}

	next := s.sched.Next(cur.Review, rating, s.steps, now)
	patch := models.CardPatch{Review: &next}
	s.logger.Info(ctx, "card graded",
		"card", id.String(), "rating", rating, "took", took, "due", next.Due)

	if online && remoteID != "" {
		updated, err := s.remote.UpdateCard(ctx, remoteID, patch)
		if err == nil {
			if local != nil {
				if mErr := s.cardRepo.UpdateMirror(ctx, local.ID.Value(), patch, now); mErr != nil {
					s.logger.Warn(ctx, "failed to mirror review result", "card", local.ID.String(), "error", mErr)
				}
			}
			return updated, nil
		}
		if !remote.Unavailable(err) {
			return nil, err
		}
		s.logger.Warn(ctx, "remote review write failed, recording locally", "card", remoteID, "error", err)
	}

	if local == nil {
		return nil, common.ErrNotFound
	}
	return s.cardRepo.Update(ctx, local.ID.Value(), patch, now)
}

// DueCards returns the deck's cards that are due for review at the time of
// the call, new cards first, then by due date.
func (s *Service) DueCards(ctx context.Context, deckID models.ID) ([]models.Card, error) {
	all, err := s.ListCards(ctx, deckID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	due := make([]models.Card, 0, len(all))
	for _, c := range all {
		if c.Review.Queue == models.QueueNew || !c.Review.Due.After(now) {
			due = append(due, c)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		a, b := due[i], due[j]
		aNew := a.Review.Queue == models.QueueNew
		bNew := b.Review.Queue == models.QueueNew
		if aNew != bNew {
			return aNew
		}
		return a.Review.Due.Before(b.Review.Due)
	})
	return due, nil
}
