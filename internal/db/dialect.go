package db

import (
	"strconv"
	"strings"

	"surfsup-server/internal/config"
)

// Dialect is the SQL flavor spoken by a driver.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

func DialectFor(driverName string) Dialect {
	if driverName == config.DriverPostgres {
		return Postgres
	}
	return SQLite
}

// Rebind rewrites '?' placeholders into the dialect's form. Queries are
// written once with '?' and embedded; Postgres needs $1..$n.
// Placeholders inside single-quoted literals are left alone.
func (d Dialect) Rebind(query string) string {
	if d != Postgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
