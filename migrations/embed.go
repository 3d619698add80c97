// Package migrations embeds the numbered SQL migrations applied at startup.
package migrations

import "embed"

// FS holds every NNN_name.sql file in this directory
//
//go:embed *.sql
var FS embed.FS
