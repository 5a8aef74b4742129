// Package migrations embeds the versioned SQL migrations for the PostgreSQL
// control plane backend.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
