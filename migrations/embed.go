// Package migrations embeds the SQL schema so binaries and integration
// tests can migrate without a checkout.
package migrations

import "embed"

// FS holds every *.sql migration in this directory
//
//go:embed *.sql
var FS embed.FS
