// Package migrations embeds the onboarding schema so tests and tooling can
// bootstrap a database without a separate migration step.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
