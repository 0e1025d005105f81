// Package migrations embeds SQL migration files.
package migrations

import "embed"

// DocumentsFS contains the migrations for the documents schema.
//
//go:embed documents/*.sql
var DocumentsFS embed.FS

// DocumentsDir is the directory within DocumentsFS where migrations live.
const DocumentsDir = "documents"
