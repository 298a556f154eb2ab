// Package migrations embeds the relay schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
