package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

//go:embed migrations/*.sql
var migrationFiles embed.FS

// SchemaStatus describes the migration state of a database.
type SchemaStatus struct {
	Version uint
	Dirty   bool
}

// newMigrator builds a migrate instance over the open handle. The returned
// instance must not be closed with m.Close, which would close s.db as well.
func (s *SQLiteStorage) newMigrator() (*migrate.Migrate, func(), error) {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load embedded migrations: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		_ = src.Close()
		return nil, nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		_ = src.Close()
		return nil, nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	return m, func() { _ = src.Close() }, nil
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	m, cleanup, err := s.newMigrator()
	if err != nil {
		return err
	}
	defer cleanup()

	before, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if dirty {
		return fmt.Errorf("database schema is dirty at version %d", version)
	}

	if version != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, version)
	}

	if version != before {
		slog.Info("Applied migrations", "from_version", before, "to_version", version)
	}

	return nil
}

// Status reports the current schema version without applying anything.
func (s *SQLiteStorage) Status(ctx context.Context) (SchemaStatus, error) {
	if err := validateContext(ctx); err != nil {
		return SchemaStatus{}, err
	}

	m, cleanup, err := s.newMigrator()
	if err != nil {
		return SchemaStatus{}, err
	}
	defer cleanup()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return SchemaStatus{}, nil
	}
	if err != nil {
		return SchemaStatus{}, fmt.Errorf("failed to get schema version: %w", err)
	}

	return SchemaStatus{Version: version, Dirty: dirty}, nil
}
