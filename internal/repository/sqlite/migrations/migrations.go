// Package migrations embeds the schema of the device-local cache.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
