package cards

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/akuzmenko/decksync/internal/common"
	"github.com/akuzmenko/decksync/internal/dbx"
	"github.com/akuzmenko/decksync/internal/models"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or
// *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const cardColumns = `id, remote_id, deck_ns, deck_id, front, back, notes, tags, payload,
	state, difficulty, stability, retrievability, elapsed_days, scheduled_days,
	reps, lapses, due, queue, client_token, created_at, updated_at,
	synced, modified_offline, deleted_offline`

func (r *SQLiteRepository) Insert(ctx context.Context, c *models.Card) error {
	tags, payload, err := encodeCardJSON(c.Tags, c.Payload)
	if err != nil {
		return err
	}

	var remoteID sql.NullString
	if !c.RemoteID.IsZero() {
		remoteID = sql.NullString{String: c.RemoteID.Value(), Valid: true}
	}
	if c.DeckID.IsZero() {
		return fmt.Errorf("%w: card has no deck", common.ErrInvalidID)
	}

	query := `INSERT INTO cards (` + cardColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		c.ID.Value(), remoteID, c.DeckID.Namespace().String(), c.DeckID.Value(),
		c.Front, c.Back, c.Notes, tags, payload,
		c.Review.State, c.Review.Difficulty, c.Review.Stability, c.Review.Retrievability,
		c.Review.ElapsedDays, c.Review.ScheduledDays, c.Review.Reps, c.Review.Lapses,
		dueUnix(c.Review.Due), c.Review.Queue, c.ClientToken,
		c.CreatedAt.Unix(), c.UpdatedAt.Unix(),
		c.Synced, c.ModifiedOffline, c.DeletedOffline)
	if err != nil {
		return fmt.Errorf("failed to insert card: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByLocalID(ctx context.Context, id string) (*models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE id=? AND deleted_offline=0`
	return r.getOne(ctx, query, id)
}

func (r *SQLiteRepository) GetByRemoteID(ctx context.Context, remoteID string) (*models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE remote_id=? AND deleted_offline=0`
	return r.getOne(ctx, query, remoteID)
}

func (r *SQLiteRepository) getOne(ctx context.Context, query string, args ...any) (*models.Card, error) {
	row := r.db.QueryRowContext(ctx, query, args...)
	c, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) ListByDeck(ctx context.Context, deckID models.ID) ([]models.Card, error) {
	query := `SELECT ` + cardColumns + `
		FROM cards WHERE deck_ns=? AND deck_id=? AND deleted_offline=0
		ORDER BY updated_at DESC, id`
	return r.list(ctx, query, deckID.Namespace().String(), deckID.Value())
}

func (r *SQLiteRepository) ListPendingByDeck(ctx context.Context, deckID models.ID) ([]models.Card, error) {
	query := `SELECT ` + cardColumns + `
		FROM cards WHERE deck_ns=? AND deck_id=?
			AND (synced=0 OR modified_offline=1 OR deleted_offline=1)
		ORDER BY created_at, id`
	return r.list(ctx, query, deckID.Namespace().String(), deckID.Value())
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]models.Card, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select cards: %w", err)
	}
	defer rows.Close()

	var result []models.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, localID string, patch models.CardPatch, now time.Time) (*models.Card, error) {
	set, args, err := patchAssignments(patch)
	if err != nil {
		return nil, err
	}
	set = append(set, "updated_at=?", "modified_offline=1", "synced=0")
	args = append(args, now.Unix(), localID)

	query := `UPDATE cards SET ` + joinSet(set) + ` WHERE id=? AND deleted_offline=0`
	if err := r.exec(ctx, query, args...); err != nil {
		return nil, err
	}
	return r.GetByLocalID(ctx, localID)
}

func (r *SQLiteRepository) UpdateMirror(ctx context.Context, localID string, patch models.CardPatch, now time.Time) error {
	set, args, err := patchAssignments(patch)
	if err != nil {
		return err
	}
	set = append(set, "updated_at=?")
	args = append(args, now.Unix(), localID)

	query := `UPDATE cards SET ` + joinSet(set) + ` WHERE id=? AND deleted_offline=0`
	return r.exec(ctx, query, args...)
}

func (r *SQLiteRepository) SoftDelete(ctx context.Context, localID string) (bool, error) {
	var remoteID sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT remote_id FROM cards WHERE id=? AND deleted_offline=0`, localID).Scan(&remoteID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, common.ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("failed to read card for delete: %w", err)
	}

	if !remoteID.Valid {
		if err := r.exec(ctx, `DELETE FROM cards WHERE id=?`, localID); err != nil {
			return false, err
		}
		return false, nil
	}

	if err := r.exec(ctx, `UPDATE cards SET deleted_offline=1 WHERE id=?`, localID); err != nil {
		return false, err
	}
	return true, nil
}

func (r *SQLiteRepository) SoftDeleteByDeck(ctx context.Context, deckID models.ID) error {
	ns, id := deckID.Namespace().String(), deckID.Value()

	_, err := r.db.ExecContext(ctx,
		`DELETE FROM cards WHERE deck_ns=? AND deck_id=? AND remote_id IS NULL`, ns, id)
	if err != nil {
		return fmt.Errorf("failed to delete local-only cards: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE cards SET deleted_offline=1 WHERE deck_ns=? AND deck_id=?`, ns, id)
	if err != nil {
		return fmt.Errorf("failed to tombstone cards: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, localID string) error {
	return r.exec(ctx, `DELETE FROM cards WHERE id=?`, localID)
}

func (r *SQLiteRepository) DeleteByDeck(ctx context.Context, deckID models.ID) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM cards WHERE deck_ns=? AND deck_id=?`,
		deckID.Namespace().String(), deckID.Value())
	if err != nil {
		return fmt.Errorf("failed to delete deck cards: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, localID, remoteID string) error {
	return r.exec(ctx,
		`UPDATE cards SET synced=1, remote_id=?, modified_offline=0 WHERE id=?`,
		remoteID, localID)
}

func (r *SQLiteRepository) ClearModified(ctx context.Context, localID string) error {
	return r.exec(ctx,
		`UPDATE cards SET synced=1, modified_offline=0 WHERE id=?`, localID)
}

func (r *SQLiteRepository) RemapDeck(ctx context.Context, localDeckID, remoteDeckID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE cards SET deck_ns='remote', deck_id=?, modified_offline=1, synced=0
			WHERE deck_ns='local' AND deck_id=?`,
		remoteDeckID, localDeckID)
	if err != nil {
		return 0, fmt.Errorf("failed to remap cards: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update card: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrNotFound
	}
	return nil
}

func patchAssignments(patch models.CardPatch) ([]string, []any, error) {
	var set []string
	var args []any

	if patch.Front != nil {
		set = append(set, "front=?")
		args = append(args, *patch.Front)
	}
	if patch.Back != nil {
		set = append(set, "back=?")
		args = append(args, *patch.Back)
	}
	if patch.Notes != nil {
		set = append(set, "notes=?")
		args = append(args, *patch.Notes)
	}
	if patch.Tags != nil {
		b, err := json.Marshal(patch.Tags)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode tags: %w", err)
		}
		set = append(set, "tags=?")
		args = append(args, string(b))
	}
	if patch.Payload != nil {
		b, err := json.Marshal(patch.Payload)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode payload: %w", err)
		}
		set = append(set, "payload=?")
		args = append(args, string(b))
	}
	if patch.Review != nil {
		rv := patch.Review
		set = append(set,
			"state=?", "difficulty=?", "stability=?", "retrievability=?",
			"elapsed_days=?", "scheduled_days=?", "reps=?", "lapses=?",
			"due=?", "queue=?")
		args = append(args,
			rv.State, rv.Difficulty, rv.Stability, rv.Retrievability,
			rv.ElapsedDays, rv.ScheduledDays, rv.Reps, rv.Lapses,
			dueUnix(rv.Due), rv.Queue)
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

func encodeCardJSON(tags []string, payload map[string]any) (string, string, error) {
	if tags == nil {
		tags = []string{}
	}
	if payload == nil {
		payload = map[string]any{}
	}
	tb, err := json.Marshal(tags)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode tags: %w", err)
	}
	pb, err := json.Marshal(payload)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode payload: %w", err)
	}
	return string(tb), string(pb), nil
}

func dueUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*models.Card, error) {
	var (
		c         models.Card
		id        string
		remoteID  sql.NullString
		deckNS    string
		deckID    string
		tags      string
		payload   string
		due       int64
		createdAt int64
		updatedAt int64
	)

	err := row.Scan(&id, &remoteID, &deckNS, &deckID, &c.Front, &c.Back, &c.Notes,
		&tags, &payload,
		&c.Review.State, &c.Review.Difficulty, &c.Review.Stability, &c.Review.Retrievability,
		&c.Review.ElapsedDays, &c.Review.ScheduledDays, &c.Review.Reps, &c.Review.Lapses,
		&due, &c.Review.Queue, &c.ClientToken, &createdAt, &updatedAt,
		&c.Synced, &c.ModifiedOffline, &c.DeletedOffline)
	if err != nil {
		return nil, err
	}

	c.ID = models.LocalID(id)
	if remoteID.Valid {
		c.RemoteID = models.RemoteID(remoteID.String)
	}
	switch deckNS {
	case "local":
		c.DeckID = models.LocalID(deckID)
	case "remote":
		c.DeckID = models.RemoteID(deckID)
	default:
		return nil, fmt.Errorf("%w: deck namespace %q", common.ErrInvalidID, deckNS)
	}
	if due != 0 {
		c.Review.Due = time.Unix(due, 0).UTC()
	}
	c.CreatedAt = time.Unix(createdAt, 0).UTC()
	c.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	if err := json.Unmarshal([]byte(tags), &c.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	if err := json.Unmarshal([]byte(payload), &c.Payload); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}

	return &c, nil
}
