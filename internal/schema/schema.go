package schema

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// LatestVersion is the newest migration this binary ships.
const LatestVersion = "0001"

var ErrSchemaMismatch = errors.New("schema mismatch")

// Table is a declared table and the columns the service reads from it.
type Table struct {
	Name    string
	Columns []string
}

// Tables mirrors sql/*/0001_schema.sql. Verify probes exactly these columns,
// so a store built elsewhere (the original hawaii.sqlite) passes as long as
// it carries them.
var Tables = []Table{
	{Name: "station", Columns: []string{"station", "name", "latitude", "longitude", "elevation"}},
	{Name: "measurement", Columns: []string{"station", "date", "prcp", "tobs"}},
}

// Queryer is satisfied by *sql.DB and *sql.Conn.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Verify checks that every declared table and column is readable and
// returns the recorded migration version ("" for an unversioned store).
func Verify(ctx context.Context, q Queryer) (string, error) {
	for _, t := range Tables {
		if err := probe(ctx, q, t); err != nil {
			return "", fmt.Errorf("%w: table %s (columns %s): %w",
				ErrSchemaMismatch, t.Name, strings.Join(t.Columns, ", "), err)
		}
	}

	version, err := recordedVersion(ctx, q)
	if err != nil {
		// Stores loaded outside our tooling have no bookkeeping table.
		slog.Debug("schema version unavailable", "error", err)
		return "", nil
	}
	if version > LatestVersion {
		slog.Warn("store schema is newer than this binary",
			"store_version", version,
			"known_version", LatestVersion,
		)
	}
	return version, nil
}

func probe(ctx context.Context, q Queryer, t Table) error {
	rows, err := q.QueryContext(ctx,
		"SELECT "+strings.Join(t.Columns, ", ")+" FROM "+t.Name+" WHERE 1 = 0")
	if err != nil {
		return err
	}
	return rows.Close()
}

func recordedVersion(ctx context.Context, q Queryer) (string, error) {
	var v sql.NullString
	if err := q.QueryRowContext(ctx, "SELECT MAX(version) FROM "+tableName).Scan(&v); err != nil {
		return "", err
	}
	return v.String, nil
}
