// Package loader imports the station and measurement CSV exports into the
// climate store.
package loader

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"surfsup-server/internal/db"
	"surfsup-server/internal/modules/climate/types"
)

//go:embed sql/insert-station.sql
var insertStationSQL string

//go:embed sql/insert-measurement.sql
var insertMeasurementSQL string

var (
	stationColumns     = []string{"station", "name", "latitude", "longitude", "elevation"}
	measurementColumns = []string{"station", "date", "prcp", "tobs"}
)

// Result counts the rows written.
type Result struct {
	Stations     int
	Measurements int
}

// Load replaces the contents of station and measurement with the given CSV
// files in one transaction. Both files need a header row; extra columns are
// ignored. An empty prcp cell is stored as NULL.
func Load(ctx context.Context, conn *sql.DB, dialect db.Dialect, stations, measurements io.Reader) (Result, error) {
	var res Result

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.Error("load rollback failed", "error", err)
		}
	}()

	for _, table := range []string{"measurement", "station"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return res, fmt.Errorf("clear %s: %w", table, err)
		}
	}

	res.Stations, err = loadCSV(ctx, tx, dialect.Rebind(insertStationSQL), stations, stationColumns, stationArgs)
	if err != nil {
		return res, fmt.Errorf("stations: %w", err)
	}
	res.Measurements, err = loadCSV(ctx, tx, dialect.Rebind(insertMeasurementSQL), measurements, measurementColumns, measurementArgs)
	if err != nil {
		return res, fmt.Errorf("measurements: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("commit: %w", err)
	}
	slog.Info("dataset loaded", "stations", res.Stations, "measurements", res.Measurements)
	return res, nil
}

// loadCSV inserts every record of r with query. toArgs receives the record
// cells reordered to match columns.
func loadCSV(ctx context.Context, tx *sql.Tx, query string, r io.Reader, columns []string, toArgs func([]string) ([]any, error)) (int, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}
	index, err := columnIndex(header, columns)
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			slog.Error("close statement", "error", err)
		}
	}()

	n := 0
	cells := make([]string, len(columns))
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		line, _ := cr.FieldPos(0)
		for i, idx := range index {
			cells[i] = strings.TrimSpace(record[idx])
		}
		args, err := toArgs(cells)
		if err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		n++
	}
}

// columnIndex maps each wanted column to its position in header.
func columnIndex(header []string, columns []string) ([]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.ToLower(strings.TrimSpace(h))] = i
	}
	index := make([]int, len(columns))
	for i, c := range columns {
		p, ok := pos[c]
		if !ok {
			return nil, fmt.Errorf("missing column %q in header %v", c, header)
		}
		index[i] = p
	}
	return index, nil
}

func stationArgs(cells []string) ([]any, error) {
	st, err := parseStation(cells)
	if err != nil {
		return nil, err
	}
	return []any{st.Code, st.Name, st.Latitude, st.Longitude, st.Elevation}, nil
}

func parseStation(cells []string) (types.Station, error) {
	st := types.Station{Code: cells[0], Name: cells[1]}
	if st.Code == "" {
		return st, errors.New("empty station code")
	}
	for i, dst := range []*float64{&st.Latitude, &st.Longitude, &st.Elevation} {
		f, err := strconv.ParseFloat(cells[i+2], 64)
		if err != nil {
			return st, fmt.Errorf("%s: %w", stationColumns[i+2], err)
		}
		*dst = f
	}
	return st, nil
}

func measurementArgs(cells []string) ([]any, error) {
	m, err := parseMeasurement(cells)
	if err != nil {
		return nil, err
	}
	var prcp any
	if m.Prcp != nil {
		prcp = *m.Prcp
	}
	return []any{m.Station, m.Date, prcp, m.TOBS}, nil
}

func parseMeasurement(cells []string) (types.Measurement, error) {
	m := types.Measurement{Station: cells[0], Date: cells[1]}
	if m.Station == "" || m.Date == "" {
		return m, errors.New("station and date are required")
	}
	prcp, err := parseOptionalFloat(cells[2])
	if err != nil {
		return m, fmt.Errorf("prcp: %w", err)
	}
	m.Prcp = prcp
	m.TOBS, err = strconv.ParseFloat(cells[3], 64)
	if err != nil {
		return m, fmt.Errorf("tobs: %w", err)
	}
	return m, nil
}

// parseOptionalFloat returns nil for an empty cell so the driver writes NULL.
func parseOptionalFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
