// Package migrations embeds the driver's SQL schema files so the binary
// can migrate its cache without shipping loose .sql files.
package migrations

import (
	"embed"

	"goveeremote/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
}
