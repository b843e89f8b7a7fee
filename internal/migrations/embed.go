// Package migrations embeds the service's SQL migrations.
package migrations

import (
	"embed"

	"github.com/sited-io/websites/pkg/migration"
)

//go:embed *.sql
var files embed.FS

// All returns the embedded migrations in version order.
func All() ([]migration.Migration, error) {
	return migration.Load(files)
}
