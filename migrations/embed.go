// Package migrations embeds the SQL schema applied by `quizgen migrate` and on
// server start.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
