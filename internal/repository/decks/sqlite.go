package decks

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

// deckColumns is the select list shared by all deck reads. The three
// trailing counters are computed against the cards table; a card belongs to
// a deck through either the deck's local or remote identifier.
const deckColumns = `
	d.id, d.remote_id, d.owner_id, d.name, d.description, d.language,
	d.settings, d.tags, d.color, d.client_token, d.created_at, d.updated_at,
	d.synced, d.modified_offline, d.deleted_offline,
	(SELECT COUNT(*) FROM cards c WHERE c.deleted_offline=0
		AND ((c.deck_ns='local' AND c.deck_id=d.id)
			OR (d.remote_id IS NOT NULL AND c.deck_ns='remote' AND c.deck_id=d.remote_id))) AS card_total,
	(SELECT COUNT(*) FROM cards c WHERE c.deleted_offline=0 AND c.queue=0
		AND ((c.deck_ns='local' AND c.deck_id=d.id)
			OR (d.remote_id IS NOT NULL AND c.deck_ns='remote' AND c.deck_id=d.remote_id))) AS due_new,
	(SELECT COUNT(*) FROM cards c WHERE c.deleted_offline=0 AND c.queue=2 AND c.due<=?
		AND ((c.deck_ns='local' AND c.deck_id=d.id)
			OR (d.remote_id IS NOT NULL AND c.deck_ns='remote' AND c.deck_id=d.remote_id))) AS due_review
`

func (r *SQLiteRepository) Insert(ctx context.Context, d *models.Deck) error {
	settings, tags, err := encodeDeckJSON(d.Settings, d.Tags)
	if err != nil {
		return err
	}

	var remoteID sql.NullString
	if !d.RemoteID.IsZero() {
		remoteID = sql.NullString{String: d.RemoteID.Value(), Valid: true}
	}

	query := `INSERT INTO decks (id, remote_id, owner_id, name, description, language,
			settings, tags, color, client_token, created_at, updated_at,
			synced, modified_offline, deleted_offline)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		d.ID.Value(), remoteID, d.OwnerID, d.Name, d.Description, d.Language,
		settings, tags, d.Color, d.ClientToken,
		d.CreatedAt.Unix(), d.UpdatedAt.Unix(),
		d.Synced, d.ModifiedOffline, d.DeletedOffline)
	if err != nil {
		return fmt.Errorf("failed to insert deck: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByLocalID(ctx context.Context, id string, now time.Time) (*models.Deck, error) {
	query := `SELECT ` + deckColumns + ` FROM decks d WHERE d.id=? AND d.deleted_offline=0`
	return r.getOne(ctx, query, now.Unix(), id)
}

func (r *SQLiteRepository) GetByRemoteID(ctx context.Context, remoteID string, now time.Time) (*models.Deck, error) {
	query := `SELECT ` + deckColumns + ` FROM decks d WHERE d.remote_id=? AND d.deleted_offline=0`
	return r.getOne(ctx, query, now.Unix(), remoteID)
}

func (r *SQLiteRepository) getOne(ctx context.Context, query string, args ...any) (*models.Deck, error) {
	row := r.db.QueryRowContext(ctx, query, args...)
	d, err := scanDeck(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deck: %w", err)
	}
	return d, nil
}

func (r *SQLiteRepository) List(ctx context.Context, ownerID string, now time.Time) ([]models.Deck, error) {
	query := `SELECT ` + deckColumns + `
		FROM decks d WHERE d.owner_id=? AND d.deleted_offline=0
		ORDER BY d.updated_at DESC, d.id`
	return r.list(ctx, query, now.Unix(), ownerID)
}

func (r *SQLiteRepository) ListUnsynced(ctx context.Context, ownerID string, now time.Time) ([]models.Deck, error) {
	query := `SELECT ` + deckColumns + `
		FROM decks d WHERE d.owner_id=? AND d.deleted_offline=0
			AND (d.synced=0 OR d.remote_id IS NULL OR d.modified_offline=1)
		ORDER BY d.created_at, d.id`
	return r.list(ctx, query, now.Unix(), ownerID)
}

func (r *SQLiteRepository) ListTombstoned(ctx context.Context, ownerID string, now time.Time) ([]models.Deck, error) {
	query := `SELECT ` + deckColumns + `
		FROM decks d WHERE d.owner_id=? AND d.deleted_offline=1
		ORDER BY d.created_at, d.id`
	return r.list(ctx, query, now.Unix(), ownerID)
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]models.Deck, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select decks: %w", err)
	}
	defer rows.Close()

	var result []models.Deck
	for rows.Next() {
		d, err := scanDeck(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, localID string, patch models.DeckPatch, now time.Time) (*models.Deck, error) {
	set, args, err := patchAssignments(patch)
	if err != nil {
		return nil, err
	}
	set = append(set, "updated_at=?", "modified_offline=1", "synced=0")
	args = append(args, now.Unix(), localID)

	query := `UPDATE decks SET ` + joinSet(set) + ` WHERE id=? AND deleted_offline=0`
	if err := r.exec(ctx, query, args...); err != nil {
		return nil, err
	}
	return r.GetByLocalID(ctx, localID, now)
}

func (r *SQLiteRepository) UpdateMirror(ctx context.Context, localID string, patch models.DeckPatch, now time.Time) error {
	set, args, err := patchAssignments(patch)
	if err != nil {
		return err
	}
	set = append(set, "updated_at=?")
	args = append(args, now.Unix(), localID)

	query := `UPDATE decks SET ` + joinSet(set) + ` WHERE id=? AND deleted_offline=0`
	return r.exec(ctx, query, args...)
}

func (r *SQLiteRepository) SoftDelete(ctx context.Context, localID string) (bool, error) {
	var remoteID sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT remote_id FROM decks WHERE id=? AND deleted_offline=0`, localID).Scan(&remoteID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, common.ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("failed to read deck for delete: %w", err)
	}

	if !remoteID.Valid {
		// never known remotely, nothing to reconcile
		if err := r.exec(ctx, `DELETE FROM decks WHERE id=?`, localID); err != nil {
			return false, err
		}
		return false, nil
	}

	if err := r.exec(ctx, `UPDATE decks SET deleted_offline=1 WHERE id=?`, localID); err != nil {
		return false, err
	}
	return true, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, localID string) error {
	return r.exec(ctx, `DELETE FROM decks WHERE id=?`, localID)
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, localID, remoteID string) error {
	return r.exec(ctx,
		`UPDATE decks SET synced=1, remote_id=?, modified_offline=0 WHERE id=?`,
		remoteID, localID)
}

func (r *SQLiteRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update deck: %w", err)
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

// patchAssignments renders the non-nil patch fields into SET clauses, in a
// fixed order so queries stay deterministic.
func patchAssignments(patch models.DeckPatch) ([]string, []any, error) {
	var set []string
	var args []any

	if patch.Name != nil {
		set = append(set, "name=?")
		args = append(args, *patch.Name)
	}
	if patch.Description != nil {
		set = append(set, "description=?")
		args = append(args, *patch.Description)
	}
	if patch.Language != nil {
		set = append(set, "language=?")
		args = append(args, *patch.Language)
	}
	if patch.Settings != nil {
		b, err := json.Marshal(patch.Settings)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode settings: %w", err)
		}
		set = append(set, "settings=?")
		args = append(args, string(b))
	}
	if patch.Tags != nil {
		b, err := json.Marshal(patch.Tags)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode tags: %w", err)
		}
		set = append(set, "tags=?")
		args = append(args, string(b))
	}
	if patch.Color != nil {
		set = append(set, "color=?")
		args = append(args, *patch.Color)
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

func encodeDeckJSON(settings map[string]any, tags []string) (string, string, error) {
	if settings == nil {
		settings = map[string]any{}
	}
	if tags == nil {
		tags = []string{}
	}
	sb, err := json.Marshal(settings)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode settings: %w", err)
	}
	tb, err := json.Marshal(tags)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode tags: %w", err)
	}
	return string(sb), string(tb), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeck(row rowScanner) (*models.Deck, error) {
	var (
		d         models.Deck
		id        string
		remoteID  sql.NullString
		settings  string
		tags      string
		createdAt int64
		updatedAt int64
	)

	err := row.Scan(&id, &remoteID, &d.OwnerID, &d.Name, &d.Description, &d.Language,
		&settings, &tags, &d.Color, &d.ClientToken, &createdAt, &updatedAt,
		&d.Synced, &d.ModifiedOffline, &d.DeletedOffline,
		&d.CardTotal, &d.DueNew, &d.DueReview)
	if err != nil {
		return nil, err
	}

	d.ID = models.LocalID(id)
	if remoteID.Valid {
		d.RemoteID = models.RemoteID(remoteID.String)
	}
	d.CreatedAt = time.Unix(createdAt, 0).UTC()
	d.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	if err := json.Unmarshal([]byte(settings), &d.Settings); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &d.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}

	return &d, nil
}
