// Package migrations wires golang-migrate/v4 against the embedded SQL
// files in ./sql, a teacher dependency (golang-migrate/migrate/v4) that
// shipped in go.mod unused by any teacher code path.
package migrations

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sql/*.sql
var sqlFiles embed.FS

// Apply runs every pending up migration against databaseURL. It is safe to
// call concurrently from multiple process starts: golang-migrate takes a
// Postgres advisory lock for the duration of the run.
func Apply(databaseURL string) error {
	source, err := iofs.New(sqlFiles, "sql")
	if err != nil {
		return fmt.Errorf("migrations: load source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return fmt.Errorf("migrations: init: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrations: apply: %w", err)
	}
	return nil
}
