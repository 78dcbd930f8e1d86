// Package migrations embeds the SQL schema files of the development
// prediction service, one directory per database dialect.
package migrations

import "embed"

//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
