// Package migrations embeds the goose migrations of the dev backend's
// Postgres user store.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
