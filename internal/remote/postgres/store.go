package postgres

import (
	"context"
	"errors"

	"github.com/akuzmenko/decksync/internal/common"
)

// Store implements remote.Store over the authoritative PostgreSQL schema:
//
//	decks (id uuid PK default gen_random_uuid(), owner_id, name, description,
//	       language, settings jsonb, tags jsonb, color, client_token,
//	       created_at, updated_at)
//	cards (id uuid PK default gen_random_uuid(), deck_id uuid REFERENCES
//	       decks ON DELETE CASCADE, front, back, notes, tags jsonb,
//	       payload jsonb, state, difficulty, stability, retrievability,
//	       elapsed_days, scheduled_days, reps, lapses, due, queue,
//	       client_token, created_at, updated_at)
//
// Identifiers are assigned by the database; the adapter never invents them.
type Store struct{ db *DB }

// NewStore constructs the adapter.
func NewStore(db *DB) *Store { return &Store{db: db} }

// Ping reports backend reachability; errors come back classified so the
// network monitor can treat any failure as offline.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.Pool.Ping(ctx); err != nil {
		return classify(err)
	}
	return nil
}

// notFoundAsNil lets Find* return (nil, nil) when nothing matched, keeping
// "no duplicate exists" distinct from a lookup failure.
func notFoundAsNil[T any](v *T, err error) (*T, error) {
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	return v, err
}
