package loader

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surfsup-server/internal/db"
	"surfsup-server/internal/modules/climate/types"
	"surfsup-server/internal/schema"
)

const stationsCSV = `station,name,latitude,longitude,elevation
USC00519397,"WAIKIKI 717.2, HI US",21.2716,-157.8168,3.0
USC00513117,"KANEOHE 838.1, HI US",21.4234,-157.8015,14.6
`

const measurementsCSV = `station,date,prcp,tobs
USC00519397,2010-01-01,0.08,65
USC00519397,2010-01-02,0.0,63
USC00519397,2010-01-03,,74
USC00513117,2010-01-01,0.28,67
`

func openMigrated(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, schema.Migrate(context.Background(), conn, db.SQLite))
	return conn
}

func TestLoad(t *testing.T) {
	conn := openMigrated(t)

	res, err := Load(context.Background(), conn, db.SQLite, strings.NewReader(stationsCSV), strings.NewReader(measurementsCSV))
	require.NoError(t, err)
	assert.Equal(t, Result{Stations: 2, Measurements: 4}, res)

	var name string
	require.NoError(t, conn.QueryRow(`SELECT name FROM station WHERE station = 'USC00519397'`).Scan(&name))
	assert.Equal(t, "WAIKIKI 717.2, HI US", name)

	var prcp sql.NullFloat64
	require.NoError(t, conn.QueryRow(`SELECT prcp FROM measurement WHERE date = '2010-01-03'`).Scan(&prcp))
	assert.False(t, prcp.Valid, "empty prcp must load as NULL")
}

func TestLoad_ReplacesExistingRows(t *testing.T) {
	conn := openMigrated(t)
	ctx := context.Background()

	for range 2 {
		_, err := Load(ctx, conn, db.SQLite, strings.NewReader(stationsCSV), strings.NewReader(measurementsCSV))
		require.NoError(t, err)
	}

	var n int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM measurement`).Scan(&n))
	assert.Equal(t, 4, n)
}

func TestLoad_BadRowRollsBack(t *testing.T) {
	conn := openMigrated(t)
	bad := measurementsCSV + "USC00513117,2010-01-02,0.1,warm\n"

	_, err := Load(context.Background(), conn, db.SQLite, strings.NewReader(stationsCSV), strings.NewReader(bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 6")
	assert.Contains(t, err.Error(), "tobs")

	var n int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM station`).Scan(&n))
	assert.Zero(t, n, "stations must be rolled back too")
}

func TestLoad_MissingColumn(t *testing.T) {
	conn := openMigrated(t)

	_, err := Load(context.Background(), conn, db.SQLite,
		strings.NewReader(stationsCSV),
		strings.NewReader("station,date,tobs\nUSC00519397,2010-01-01,65\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing column "prcp"`)
}

func TestColumnIndex_ReordersAndIgnoresExtra(t *testing.T) {
	idx, err := columnIndex([]string{"id", " TOBS", "date", "prcp", "station"}, measurementColumns)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 2, 3, 1}, idx)
}

func TestParseOptionalFloat(t *testing.T) {
	v, err := parseOptionalFloat("")
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = parseOptionalFloat("0.45")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, 0.45, *v)

	_, err = parseOptionalFloat("n/a")
	assert.Error(t, err)
}

func TestParseStation(t *testing.T) {
	st, err := parseStation([]string{"USC00519397", "WAIKIKI 717.2, HI US", "21.2716", "-157.8168", "3.0"})
	require.NoError(t, err)
	assert.Equal(t, types.Station{Code: "USC00519397", Name: "WAIKIKI 717.2, HI US", Latitude: 21.2716, Longitude: -157.8168, Elevation: 3.0}, st)

	_, err = parseStation([]string{"USC00519397", "X", "north", "0", "0"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "latitude")
}
