// Package migrations embeds the Postgres migrations for goose.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
