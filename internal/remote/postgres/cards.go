package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/akuzmenko/decksync/internal/common"
	"github.com/akuzmenko/decksync/internal/models"
	"github.com/jackc/pgx/v5"
)

const cardColumns = `id, deck_id, front, back, notes, tags, payload,
	state, difficulty, stability, retrievability, elapsed_days, scheduled_days,
	reps, lapses, due, queue, client_token, created_at, updated_at`

func (s *Store) CreateCard(ctx context.Context, c *models.Card) (*models.Card, error) {
	if !c.DeckID.IsRemote() {
		return nil, fmt.Errorf("%w: card deck id must be remote, got %q", common.ErrInvalidID, c.DeckID.String())
	}
	tags, err := json.Marshal(orEmptySlice(c.Tags))
	if err != nil {
		return nil, fmt.Errorf("failed to encode tags: %w", err)
	}
	payload, err := json.Marshal(orEmptyMap(c.Payload))
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	const query = `INSERT INTO cards (deck_id, front, back, notes, tags, payload,
			state, difficulty, stability, retrievability, elapsed_days, scheduled_days,
			reps, lapses, due, queue, client_token, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
		RETURNING id`

	var id string
	err = s.db.Pool.QueryRow(ctx, query,
		c.DeckID.Value(), c.Front, c.Back, c.Notes, tags, payload,
		c.Review.State, c.Review.Difficulty, c.Review.Stability, c.Review.Retrievability,
		c.Review.ElapsedDays, c.Review.ScheduledDays, c.Review.Reps, c.Review.Lapses,
		nullableTime(c.Review.Due), c.Review.Queue, c.ClientToken,
		c.CreatedAt, c.UpdatedAt).Scan(&id)
	if err != nil {
		return nil, classify(err)
	}

	created := *c
	created.ID = models.RemoteID(id)
	created.RemoteID = models.ID{}
	created.SyncMeta = models.SyncMeta{}
	return &created, nil
}

func (s *Store) GetCard(ctx context.Context, id string) (*models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE id=$1`
	row := s.db.Pool.QueryRow(ctx, query, id)
	c, err := scanCard(row)
	if err != nil {
		return nil, classify(err)
	}
	return c, nil
}

func (s *Store) GetCards(ctx context.Context, deckID string) ([]models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards
		WHERE deck_id=$1 ORDER BY updated_at DESC, id`
	rows, err := s.db.Pool.Query(ctx, query, deckID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var result []models.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, classify(err)
		}
		result = append(result, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return result, nil
}

func (s *Store) UpdateCard(ctx context.Context, id string, patch models.CardPatch) (*models.Card, error) {
	set, args, err := cardPatchAssignments(patch)
	if err != nil {
		return nil, err
	}
	set = append(set, "updated_at=now()")
	args = append(args, id)

	query := `UPDATE cards SET ` + joinSet(set) +
		` WHERE id=$` + strconv.Itoa(len(args)) + ` RETURNING ` + cardColumns
	row := s.db.Pool.QueryRow(ctx, query, args...)
	c, err := scanCard(row)
	if err != nil {
		return nil, classify(err)
	}
	return c, nil
}

func (s *Store) DeleteCard(ctx context.Context, id string) error {
	_, err := s.db.Pool.Exec(ctx, `DELETE FROM cards WHERE id=$1`, id)
	if err != nil {
		return classify(err)
	}
	return nil
}

func cardPatchAssignments(patch models.CardPatch) ([]string, []any, error) {
	var set []string
	var args []any

	add := func(col string, val any) {
		args = append(args, val)
		set = append(set, col+"=$"+strconv.Itoa(len(args)))
	}

	if patch.Front != nil {
		add("front", *patch.Front)
	}
	if patch.Back != nil {
		add("back", *patch.Back)
	}
	if patch.Notes != nil {
		add("notes", *patch.Notes)
	}
	if patch.Tags != nil {
		b, err := json.Marshal(patch.Tags)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode tags: %w", err)
		}
		add("tags", b)
	}
	if patch.Payload != nil {
		b, err := json.Marshal(patch.Payload)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode payload: %w", err)
		}
		add("payload", b)
	}
	if patch.Review != nil {
		rv := patch.Review
		add("state", rv.State)
		add("difficulty", rv.Difficulty)
		add("stability", rv.Stability)
		add("retrievability", rv.Retrievability)
		add("elapsed_days", rv.ElapsedDays)
		add("scheduled_days", rv.ScheduledDays)
		add("reps", rv.Reps)
		add("lapses", rv.Lapses)
		add("due", nullableTime(rv.Due))
		add("queue", rv.Queue)
	}

	return set, args, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func scanCard(row pgx.Row) (*models.Card, error) {
	var (
		c       models.Card
		id      string
		deckID  string
		tags    []byte
		payload []byte
		due     *time.Time
		created time.Time
		updated time.Time
	)

	err := row.Scan(&id, &deckID, &c.Front, &c.Back, &c.Notes, &tags, &payload,
		&c.Review.State, &c.Review.Difficulty, &c.Review.Stability, &c.Review.Retrievability,
		&c.Review.ElapsedDays, &c.Review.ScheduledDays, &c.Review.Reps, &c.Review.Lapses,
		&due, &c.Review.Queue, &c.ClientToken, &created, &updated)
	if err != nil {
		return nil, err
	}

	c.ID = models.RemoteID(id)
	c.DeckID = models.RemoteID(deckID)
	if due != nil {
		c.Review.Due = due.UTC()
	}
	c.CreatedAt = created.UTC()
	c.UpdatedAt = updated.UTC()

	if err := json.Unmarshal(tags, &c.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	if err := json.Unmarshal(payload, &c.Payload); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}

	return &c, nil
}
