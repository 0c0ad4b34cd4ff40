// Package migrations embeds the SQL schema of the assignment store so the
// binaries carry it with them.
package migrations

import (
	"embed"

	"github.com/nerrad567/gray-logic-iot/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
