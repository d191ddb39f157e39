// Package migrations embeds the goose SQL migrations for the portal-owned
// tables. The characters table belongs to the game server and is not
// migrated here; dev environments get a compatible stand-in.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
