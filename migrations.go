// Package osint embeds the database migrations shipped with the service.
package osint

import "embed"

// Migrations holds the goose SQL migrations.
//
//go:embed migrations/*.sql
var Migrations embed.FS
