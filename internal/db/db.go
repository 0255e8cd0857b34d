package db

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/stdlib"
	sqlite3 "github.com/mattn/go-sqlite3"

	"surfsup-server/internal/config"
)

// Mode selects how the store is opened. The server only ever reads.
type Mode int

const (
	ReadOnly Mode = iota
	ReadWrite
)

// Open returns a connection pool for cfg.Driver. With cfg.LogSQL every
// statement is logged at debug level through a logging connector.
func Open(cfg config.Config, mode Mode) (*sql.DB, error) {
	dsn, err := buildDSN(cfg, mode)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	if cfg.LogSQL {
		connector, err := NewLoggingConnector(underlyingDriver(cfg.Driver), dsn, slog.Default())
		if err != nil {
			return nil, err
		}
		db = sql.OpenDB(connector)
	} else {
		db, err = sql.Open(cfg.Driver, dsn)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns >= 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	// Validate connectivity early
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return db, nil
}

func Close(db *sql.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}

func underlyingDriver(name string) driver.Driver {
	if name == config.DriverPostgres {
		return stdlib.GetDefaultDriver()
	}
	return &sqlite3.SQLiteDriver{}
}

func buildDSN(cfg config.Config, mode Mode) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if cfg.Driver != config.DriverSQLite {
		return "", fmt.Errorf("db: DSN required for driver %q", cfg.Driver)
	}

	path := cfg.SQLitePath
	params := []string{"_busy_timeout=5000"}
	if mode == ReadOnly {
		// mode=ro never creates the file, so fail with a readable error first.
		if !strings.HasPrefix(path, "file:") {
			if _, err := os.Stat(path); err != nil {
				return "", fmt.Errorf("sqlite store %s: %w", path, err)
			}
		}
		params = append(params, "mode=ro")
	} else {
		// Rollback journal: a WAL store needs its -shm file to be opened with mode=ro.
		params = append(params, "_journal_mode=DELETE")
	}

	// If caller provided something like "file:/data/app.db?x=y" as Path, don't double-wrap
	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}

	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}
