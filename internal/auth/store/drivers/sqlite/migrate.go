package sqlite

import (
	"database/sql"

	"github.com/golang-migrate/migrate/v4/database/sqlite"

	"github.com/aussiebroadwan/lectern/internal/auth/store/drivers/sqlite/migrations"
	"github.com/aussiebroadwan/lectern/internal/auth/store/sqlstore"
)

func applyMigrations(db *sql.DB) error {
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return err
	}
	return sqlstore.Migrate("sqlite", driver, migrations.Migrations)
}
