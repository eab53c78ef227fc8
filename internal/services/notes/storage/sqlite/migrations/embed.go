package migrations

import "embed"

// FS contains embedded SQLite migrations for notes storage.
//
//go:embed *.sql
var FS embed.FS
