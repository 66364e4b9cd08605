// Package migrations embeds the SQL schema migrations into the binary.
package migrations

import "embed"

// FS holds every migration at its root, named YYYYMMDD_HHMMSS_description.sql.
//
//go:embed *.sql
var FS embed.FS
