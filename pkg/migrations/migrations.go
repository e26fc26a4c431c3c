package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	neturl "net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

type migrator interface {
	Up() error
	Version() (version uint, dirty bool, err error)
	Close() (sourceErr error, databaseErr error)
}

var driverFactory = func(db *sql.DB, cfg Config) (database.Driver, error) {
	switch cfg.Driver {
	case DriverSQLite:
		return sqlite3.WithInstance(db, &sqlite3.Config{MigrationsTable: cfg.MigrationsTable})
	default:
		return postgres.WithInstance(db, &postgres.Config{MigrationsTable: cfg.MigrationsTable})
	}
}

var migratorFactory = func(sourceURL string, driverName string, driver database.Driver) (migrator, error) {
	return migrate.NewWithDatabaseInstance(sourceURL, driverName, driver)
}

type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type Config struct {
	Dir             string
	MigrationsTable string
	// Driver is DriverPostgres (default) or DriverSQLite.
	Driver string
	Logger Logger
}

// Status describes the schema version recorded in the migrations table.
type Status struct {
	Version uint
	Dirty   bool
	// Pending is true when no migration has been applied yet.
	Pending bool
}

func (cfg *Config) applyDefaults() {
	if strings.TrimSpace(cfg.Dir) == "" {
		cfg.Dir = "migrations"
	}
	if strings.TrimSpace(cfg.MigrationsTable) == "" {
		cfg.MigrationsTable = "schema_migrations"
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "sqlite", DriverSQLite:
		cfg.Driver = DriverSQLite
	default:
		cfg.Driver = DriverPostgres
	}
}

// sourceURL turns dir into the file:// URL golang-migrate expects, escaping
// spaces and normalising Windows separators.
func sourceURL(dir string) (url string, absDir string, err error) {
	absDir, err = filepath.Abs(dir)
	if err != nil {
		return "", "", fmt.Errorf("migrations: resolve dir: %w", err)
	}
	return (&neturl.URL{Scheme: "file", Path: filepath.ToSlash(absDir)}).String(), absDir, nil
}

func open(db *sql.DB, cfg Config) (migrator, string, error) {
	source, absDir, err := sourceURL(cfg.Dir)
	if err != nil {
		return nil, "", err
	}

	driver, err := driverFactory(db, cfg)
	if err != nil {
		return nil, "", fmt.Errorf("migrations: %s driver: %w", cfg.Driver, err)
	}

	m, err := migratorFactory(source, cfg.Driver, driver)
	if err != nil {
		return nil, "", fmt.Errorf("migrations: init: %w", err)
	}

	return m, absDir, nil
}

// CurrentStatus reads the applied schema version without changing anything.
func CurrentStatus(ctx context.Context, db *sql.DB, cfg Config) (*Status, error) {
	if db == nil {
		return nil, fmt.Errorf("migrations: db is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	m, _, err := open(db, cfg)
	if err != nil {
		return nil, err
	}
	defer func() { _, _ = m.Close() }()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return &Status{Pending: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("migrations: version: %w", err)
	}

	return &Status{Version: version, Dirty: dirty}, nil
}

func Up(ctx context.Context, db *sql.DB, cfg Config) error {
	if db == nil {
		return fmt.Errorf("migrations: db is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg.applyDefaults()

	m, absDir, err := open(db, cfg)
	if err != nil {
		return err
	}
	closeOnce := sync.Once{}
	closeMigrator := func() {
		closeOnce.Do(func() {
			srcErr, dbErr := m.Close()
			if cfg.Logger != nil {
				if srcErr != nil {
					cfg.Logger.Warn("Migrations source close error", "error", srcErr)
				}
				if dbErr != nil {
					cfg.Logger.Warn("Migrations db close error", "error", dbErr)
				}
			}
		})
	}
	defer closeMigrator()

	if cfg.Logger != nil {
		cfg.Logger.Info("Running SQL migrations", "dir", absDir, "table", cfg.MigrationsTable, "driver", cfg.Driver)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- m.Up()
	}()

	select {
	case <-ctx.Done():
		// Best-effort interruption. migrate doesn't accept a context directly.
		closeMigrator()
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				if cfg.Logger != nil {
					cfg.Logger.Info("No migrations to apply")
				}
				return nil
			}
			return fmt.Errorf("migrations: up: %w", err)
		}
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("Migrations applied successfully")
	}
	return nil
}
