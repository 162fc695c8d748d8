package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed schema/*.sql
var schemaFiles embed.FS

const schemaDir = "schema"

// historyTables must exist once the schema is applied.
var historyTables = []string{"operations", "materializations"}

// ErrSchemaTooNew is returned when the history database was migrated by a
// newer gb than the running one. It is never migrated down automatically.
var ErrSchemaTooNew = errors.New("history database was written by a newer gb")

// latestSchemaVersion is the highest version among the embedded up files.
func latestSchemaVersion() (uint, error) {
	names, err := fs.Glob(schemaFiles, schemaDir+"/*.up.sql")
	if err != nil {
		return 0, err
	}
	var latest uint
	for _, name := range names {
		base := path.Base(name)
		prefix, _, ok := strings.Cut(base, "_")
		if !ok {
			return 0, fmt.Errorf("schema file without version: %s", base)
		}
		v, err := strconv.ParseUint(prefix, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("schema file %s: %w", base, err)
		}
		latest = max(latest, uint(v))
	}
	if latest == 0 {
		return 0, errors.New("no schema files embedded")
	}
	return latest, nil
}

// newMigrator binds the embedded schema files to db. The returned instance
// is never closed: closing it would close db.
func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(schemaFiles, schemaDir)
	if err != nil {
		return nil, fmt.Errorf("reading schema files: %w", err)
	}
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("preparing schema driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("preparing schema migration: %w", err)
	}
	return m, nil
}

// schemaState reads the applied version. A fresh database is version 0.
func schemaState(m *migrate.Migrate) (version uint, dirty bool, err error) {
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("reading schema version: %w", err)
	}
	return version, dirty, nil
}

// migrateSchema brings db up to the embedded schema.
func migrateSchema(db *sql.DB) error {
	latest, err := latestSchemaVersion()
	if err != nil {
		return err
	}
	m, err := newMigrator(db)
	if err != nil {
		return err
	}

	current, dirty, err := schemaState(m)
	if err != nil {
		return err
	}
	if dirty {
		return fmt.Errorf("history database schema %d is dirty: an earlier migration failed", current)
	}
	if current > latest {
		return fmt.Errorf("%w: schema %d, this gb knows %d", ErrSchemaTooNew, current, latest)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrating history database: %w", err)
	}
	return checkTables(db)
}

// checkSchema verifies that db is exactly at the embedded schema and has
// every history table.
func checkSchema(db *sql.DB) error {
	latest, err := latestSchemaVersion()
	if err != nil {
		return err
	}
	m, err := newMigrator(db)
	if err != nil {
		return err
	}

	current, dirty, err := schemaState(m)
	if err != nil {
		return err
	}
	switch {
	case dirty:
		return fmt.Errorf("history database schema %d is dirty", current)
	case current > latest:
		return fmt.Errorf("%w: schema %d, this gb knows %d", ErrSchemaTooNew, current, latest)
	case current < latest:
		return fmt.Errorf("history database is at schema %d, want %d", current, latest)
	}
	return checkTables(db)
}

func checkTables(db *sql.DB) error {
	for _, table := range historyTables {
		var n int
		err := db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
		if err != nil {
			return fmt.Errorf("checking table %s: %w", table, err)
		}
		if n == 0 {
			return fmt.Errorf("history database is missing table %s", table)
		}
	}
	return nil
}
