// Package migrations embebe los scripts SQL versionados del esquema.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
