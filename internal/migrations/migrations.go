// Package migrations embeds the relay database schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
