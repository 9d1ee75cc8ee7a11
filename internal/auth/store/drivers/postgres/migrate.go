package postgres

import (
	"database/sql"

	"github.com/golang-migrate/migrate/v4/database/pgx/v5"

	"github.com/aussiebroadwan/lectern/internal/auth/store/drivers/postgres/migrations"
	"github.com/aussiebroadwan/lectern/internal/auth/store/sqlstore"
)

// applyMigrations takes the migrate advisory lock, so replicas starting
// together apply each migration once.
func applyMigrations(db *sql.DB) error {
	driver, err := pgx.WithInstance(db, &pgx.Config{})
	if err != nil {
		return err
	}
	return sqlstore.Migrate("postgres", driver, migrations.Migrations)
}
