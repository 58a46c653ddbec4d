// Package migrations embeds the goose migration files for the local store.
//
// Migration policy: additive only. Later migrations may add tables, indexes,
// or nullable/defaulted columns, never drop or rewrite existing ones, so any
// already-persisted database upgrades in place without data loss.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
