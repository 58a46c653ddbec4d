package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/akuzmenko/decksync/internal/models"
	"github.com/jackc/pgx/v5"
)

const deckColumns = `d.id, d.owner_id, d.name, d.description, d.language,
	d.settings, d.tags, d.color, d.client_token, d.created_at, d.updated_at,
	(SELECT COUNT(*) FROM cards c WHERE c.deck_id=d.id) AS card_total,
	(SELECT COUNT(*) FROM cards c WHERE c.deck_id=d.id AND c.queue=0) AS due_new,
	(SELECT COUNT(*) FROM cards c WHERE c.deck_id=d.id AND c.queue=2 AND c.due<=now()) AS due_review`

func (s *Store) CreateDeck(ctx context.Context, d *models.Deck) (*models.Deck, error) {
	settings, err := json.Marshal(orEmptyMap(d.Settings))
	if err != nil {
		return nil, fmt.Errorf("failed to encode settings: %w", err)
	}
	tags, err := json.Marshal(orEmptySlice(d.Tags))
	if err != nil {
		return nil, fmt.Errorf("failed to encode tags: %w", err)
	}

	const query = `INSERT INTO decks (owner_id, name, description, language, settings, tags,
			color, client_token, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id`

	var id string
	err = s.db.Pool.QueryRow(ctx, query,
		d.OwnerID, d.Name, d.Description, d.Language, settings, tags,
		d.Color, d.ClientToken, d.CreatedAt, d.UpdatedAt).Scan(&id)
	if err != nil {
		return nil, classify(err)
	}

	created := *d
	created.ID = models.RemoteID(id)
	created.RemoteID = models.ID{}
	created.SyncMeta = models.SyncMeta{}
	return &created, nil
}

func (s *Store) GetDeck(ctx context.Context, id string) (*models.Deck, error) {
	query := `SELECT ` + deckColumns + ` FROM decks d WHERE d.id=$1`
	return s.getDeck(ctx, query, id)
}

func (s *Store) FindDeckByToken(ctx context.Context, ownerID, token string) (*models.Deck, error) {
	query := `SELECT ` + deckColumns + ` FROM decks d WHERE d.owner_id=$1 AND d.client_token=$2`
	return notFoundAsNil(s.getDeck(ctx, query, ownerID, token))
}

func (s *Store) FindDeckByName(ctx context.Context, ownerID, name string) (*models.Deck, error) {
	query := `SELECT ` + deckColumns + ` FROM decks d
		WHERE d.owner_id=$1 AND d.name=$2 ORDER BY d.created_at LIMIT 1`
	return notFoundAsNil(s.getDeck(ctx, query, ownerID, name))
}

func (s *Store) getDeck(ctx context.Context, query string, args ...any) (*models.Deck, error) {
	row := s.db.Pool.QueryRow(ctx, query, args...)
	d, err := scanDeck(row)
	if err != nil {
		return nil, classify(err)
	}
	return d, nil
}

func (s *Store) GetDecks(ctx context.Context, ownerID string) ([]models.Deck, error) {
	query := `SELECT ` + deckColumns + ` FROM decks d
		WHERE d.owner_id=$1 ORDER BY d.updated_at DESC, d.id`
	rows, err := s.db.Pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var result []models.Deck
	for rows.Next() {
		d, err := scanDeck(rows)
		if err != nil {
			return nil, classify(err)
		}
		result = append(result, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return result, nil
}

func (s *Store) UpdateDeck(ctx context.Context, id string, patch models.DeckPatch) (*models.Deck, error) {
	set, args, err := deckPatchAssignments(patch)
	if err != nil {
		return nil, err
	}
	set = append(set, "updated_at=now()")
	args = append(args, id)

	query := `UPDATE decks d SET ` + joinSet(set) +
		` WHERE d.id=$` + strconv.Itoa(len(args)) + ` RETURNING ` + deckColumns
	return s.getDeck(ctx, query, args...)
}

func (s *Store) DeleteDeck(ctx context.Context, id string) error {
	// cards cascade via the FK; deleting an already-gone deck is a no-op
	// so replaying a tombstone twice stays idempotent
	_, err := s.db.Pool.Exec(ctx, `DELETE FROM decks WHERE id=$1`, id)
	if err != nil {
		return classify(err)
	}
	return nil
}

func deckPatchAssignments(patch models.DeckPatch) ([]string, []any, error) {
	var set []string
	var args []any

	add := func(col string, val any) {
		args = append(args, val)
		set = append(set, col+"=$"+strconv.Itoa(len(args)))
	}

	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Language != nil {
		add("language", *patch.Language)
	}
	if patch.Settings != nil {
		b, err := json.Marshal(patch.Settings)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode settings: %w", err)
		}
		add("settings", b)
	}
	if patch.Tags != nil {
		b, err := json.Marshal(patch.Tags)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode tags: %w", err)
		}
		add("tags", b)
	}
	if patch.Color != nil {
		add("color", *patch.Color)
	}

	return set, args, nil
}

func joinSet(set []string) string {
	out := set[0]
	for _, s := range set[1:] {
		out += ", " + s
	}
	return out
}

func orEmptyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func orEmptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func scanDeck(row pgx.Row) (*models.Deck, error) {
	var (
		d        models.Deck
		id       string
		settings []byte
		tags     []byte
		created  time.Time
		updated  time.Time
	)

	err := row.Scan(&id, &d.OwnerID, &d.Name, &d.Description, &d.Language,
		&settings, &tags, &d.Color, &d.ClientToken, &created, &updated,
		&d.CardTotal, &d.DueNew, &d.DueReview)
	if err != nil {
		return nil, err
	}

	d.ID = models.RemoteID(id)
	d.CreatedAt = created.UTC()
	d.UpdatedAt = updated.UTC()

	if err := json.Unmarshal(settings, &d.Settings); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	if err := json.Unmarshal(tags, &d.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}

	return &d, nil
}
