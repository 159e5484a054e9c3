package migrations

import "embed"

// FS contains embedded SQLite migrations for reward and telemetry storage.
//
//go:embed *.sql
var FS embed.FS
