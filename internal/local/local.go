// Package local opens the on-device SQLite database and brings its schema
// up to date.
package local

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/akuzmenko/decksync/internal/local/migrations"
	"github.com/pressly/goose/v3"
)

// RunMigrations applies all pending embedded migrations. Safe to run on
// every startup; goose tracks applied versions in the database itself, so a
// second run is a no-op.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// Open opens (creating if needed) the local database at dsn and migrates it.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open local database: %w", err)
	}

	// modernc.org/sqlite serializes access per connection; a single
	// connection avoids SQLITE_BUSY under concurrent repo calls.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate local database: %w", err)
	}

	return db, nil
}
