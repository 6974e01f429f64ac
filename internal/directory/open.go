package directory

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"

	"github.com/hetulpatel/employees/internal/config"
)

const defaultSQLitePath = "data/employees.db"

// Open connects to the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.Database) (*Store, error) {
	switch cfg.Driver {
	case "", config.DriverSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath)
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg.DSN())
	default:
		return nil, &StorageError{Op: "open", Err: fmt.Errorf("unsupported driver %q", cfg.Driver)}
	}
}

// OpenSQLite creates (if needed) and opens the SQLite database at path.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = defaultSQLitePath
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, storageErr("open", fmt.Errorf("ensure data dir: %w", err))
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storageErr("open", fmt.Errorf("open sqlite: %w", err))
	}
	if path != ":memory:" {
		if err := ensureWAL(ctx, db); err != nil {
			db.Close()
			return nil, storageErr("open", fmt.Errorf("set WAL mode: %w", err))
		}
	}
	return newStore(db, sqliteDialect), nil
}

func ensureWAL(ctx context.Context, db *sql.DB) error {
	const (
		maxAttempts = 5
		delay       = 200 * time.Millisecond
	)
	for i := 0; i < maxAttempts; i++ {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
			if strings.Contains(err.Error(), "database is locked") {
				time.Sleep(delay)
				continue
			}
			return err
		}
		return nil
	}
	return fmt.Errorf("database is locked after retries")
}

// OpenPostgres opens and pings a Postgres database through pgx.
func OpenPostgres(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, storageErr("open", fmt.Errorf("open postgres: %w", err))
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, storageErr("open", fmt.Errorf("ping postgres: %w", err))
	}
	return newStore(db, postgresDialect), nil
}
