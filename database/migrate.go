package database

import (
	"database/sql"
	"embed"
	"errors"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/samber/oops"

	// Register sqlite3 driver with database/sql
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/sqlite/*.sql
var sqliteMigrations embed.FS

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

// migrateIface is the subset of *migrate.Migrate the Migrator drives, so
// tests can run without a database.
type migrateIface interface {
	Up() error
	Down() error
	Version() (version uint, dirty bool, err error)
	Close() (source error, database error)
}

// Migrator applies the embedded schema to one database.
type Migrator struct {
	m migrateIface
}

// NewSqliteMigrator prepares migrations for an open SQLite handle.
// Closing the Migrator does not close db.
func NewSqliteMigrator(db *sql.DB) (*Migrator, error) {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return nil, oops.Code("MIGRATION_INIT_FAILED").With("driver", "sqlite3").Wrap(err)
	}

	source, err := iofs.New(sqliteMigrations, "migrations/sqlite")
	if err != nil {
		return nil, oops.Code("MIGRATION_SOURCE_FAILED").With("driver", "sqlite3").Wrap(err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return nil, oops.Code("MIGRATION_INIT_FAILED").With("driver", "sqlite3").Wrap(err)
	}
	return &Migrator{m: sqliteMigrate{m}}, nil
}

// NewPostgresMigrator prepares migrations for a PostgreSQL URL. Both the
// postgres:// and postgresql:// schemes are accepted.
func NewPostgresMigrator(databaseURL string) (*Migrator, error) {
	source, err := iofs.New(postgresMigrations, "migrations/postgres")
	if err != nil {
		return nil, oops.Code("MIGRATION_SOURCE_FAILED").With("driver", "pgx5").Wrap(err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, PgxMigrateURL(databaseURL))
	if err != nil {
		_ = source.Close()
		return nil, oops.Code("MIGRATION_INIT_FAILED").With("driver", "pgx5").Wrap(err)
	}
	return &Migrator{m: m}, nil
}

// PgxMigrateURL rewrites a postgres URL to the pgx5 scheme golang-migrate expects.
func PgxMigrateURL(databaseURL string) string {
	if rest, found := strings.CutPrefix(databaseURL, "postgres://"); found {
		return "pgx5://" + rest
	}
	if rest, found := strings.CutPrefix(databaseURL, "postgresql://"); found {
		return "pgx5://" + rest
	}
	return databaseURL
}

// Up applies all pending migrations. An up-to-date schema is not an error.
func (m *Migrator) Up() error {
	if err := m.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return oops.Code("MIGRATION_UP_FAILED").Wrap(err)
	}
	return nil
}

// Down rolls every migration back, dropping all tables.
func (m *Migrator) Down() error {
	if err := m.m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return oops.Code("MIGRATION_DOWN_FAILED").Wrap(err)
	}
	return nil
}

// Version returns the applied version and whether the last run left it dirty.
// A fresh database reports version 0.
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, oops.Code("MIGRATION_VERSION_FAILED").Wrap(err)
	}
	return version, dirty, nil
}

// Close releases the migration source and driver.
func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	if err := errors.Join(srcErr, dbErr); err != nil {
		return oops.Code("MIGRATION_CLOSE_FAILED").Wrap(err)
	}
	return nil
}

// sqliteMigrate leaves the caller's *sql.DB open on Close; the sqlite3
// driver would otherwise close the shared handle.
type sqliteMigrate struct {
	*migrate.Migrate
}

func (s sqliteMigrate) Close() (error, error) {
	return nil, nil
}

// RunSqliteMigrations applies all pending migrations to db.
func RunSqliteMigrations(db *sql.DB) error {
	m, err := NewSqliteMigrator(db)
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Up()
}

// RunPostgresMigrations applies all pending migrations to the database at databaseURL.
func RunPostgresMigrations(databaseURL string) error {
	m, err := NewPostgresMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Up()
}
