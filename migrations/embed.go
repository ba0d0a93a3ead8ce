// Package migrations embeds the SQL migration files so the migrate tool
// works from a single binary.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
