package db

import "embed"

// MigrationFS embeds the sessions and audit_logs SQL migrations.
// Used by the migrate runner (cmd/migrate and sessionctl migrate).
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
