// Package migrations embeds the audit store schema.
//
// Import it for side effects before calling db.Migrate:
//
//	import _ "github.com/nerrad567/gray-logic-blink/migrations"
package migrations

import (
	"embed"

	"github.com/nerrad567/gray-logic-blink/internal/infrastructure/database"
)

//go:embed *.sql
var schema embed.FS

func init() {
	database.MigrationsFS = schema
}
