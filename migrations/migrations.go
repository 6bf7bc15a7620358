// Package migrations embeds the SQLite schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

// Initial is the file holding the base schema.
const Initial = "001_initial_schema.up.sql"
