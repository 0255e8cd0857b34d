package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"surfsup-server/internal/db"
	"surfsup-server/internal/metrics"
	"surfsup-server/internal/modules/climate/types"
)

//go:embed sql/get-max-date.sql
var getMaxDateSQL string

//go:embed sql/get-most-active-station.sql
var getMostActiveStationSQL string

//go:embed sql/get-precipitation-since.sql
var getPrecipitationSinceSQL string

//go:embed sql/get-station-codes.sql
var getStationCodesSQL string

//go:embed sql/get-tobs-since.sql
var getTOBSSinceSQL string

//go:embed sql/get-temperature-stats.sql
var getTemperatureStatsSQL string

//go:embed sql/get-temperature-stats-range.sql
var getTemperatureStatsRangeSQL string

// ErrNoMeasurements is returned when the measurement table has no rows.
var ErrNoMeasurements = errors.New("no measurements")

// Store hands out sessions, each bound to one pooled connection.
type Store interface {
	Open(ctx context.Context) (Session, error)
}

// Session is a read-only view of the climate store held for one request.
// Close must be called on every path; it releases the connection.
type Session interface {
	MaxDate(ctx context.Context) (string, error)
	MostActiveStation(ctx context.Context) (string, error)
	PrecipitationSince(ctx context.Context, since string) ([]types.PrecipitationRow, error)
	StationCodes(ctx context.Context) ([]string, error)
	TOBSSince(ctx context.Context, station string, since string) ([]types.TOBSObservation, error)
	TemperatureStats(ctx context.Context, start string, end *string) (types.TemperatureStats, error)
	Close() error
}

type storeImpl struct {
	pool    *sql.DB
	dialect db.Dialect
}

func NewStore(pool *sql.DB, dialect db.Dialect) Store {
	return &storeImpl{pool: pool, dialect: dialect}
}

func (s *storeImpl) Open(ctx context.Context) (Session, error) {
	conn, err := s.pool.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	metrics.SessionOpened()
	return &sessionImpl{conn: conn, dialect: s.dialect}, nil
}

type sessionImpl struct {
	conn      *sql.Conn
	dialect   db.Dialect
	closeOnce sync.Once
	closeErr  error
}

func (s *sessionImpl) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
		metrics.SessionClosed()
	})
	return s.closeErr
}

func (s *sessionImpl) MaxDate(ctx context.Context) (string, error) {
	defer metrics.ObserveQuery("max_date", time.Now())
	var maxDate sql.NullString
	if err := s.conn.QueryRowContext(ctx, getMaxDateSQL).Scan(&maxDate); err != nil {
		return "", err
	}
	if !maxDate.Valid {
		return "", ErrNoMeasurements
	}
	return maxDate.String, nil
}

func (s *sessionImpl) MostActiveStation(ctx context.Context) (string, error) {
	defer metrics.ObserveQuery("most_active_station", time.Now())
	var station string
	err := s.conn.QueryRowContext(ctx, getMostActiveStationSQL).Scan(&station)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoMeasurements
	}
	if err != nil {
		return "", err
	}
	return station, nil
}

func (s *sessionImpl) PrecipitationSince(ctx context.Context, since string) ([]types.PrecipitationRow, error) {
	defer metrics.ObserveQuery("precipitation_since", time.Now())
	rows, err := s.conn.QueryContext(ctx, s.dialect.Rebind(getPrecipitationSinceSQL), since)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close precipitation rows", "error", err)
		}
	}()
	var out []types.PrecipitationRow
	for rows.Next() {
		var rec types.PrecipitationRow
		var prcp sql.NullFloat64
		if err := rows.Scan(&rec.Date, &prcp); err != nil {
			return nil, err
		}
		rec.Prcp = nullableFloat(prcp)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *sessionImpl) StationCodes(ctx context.Context) ([]string, error) {
	defer metrics.ObserveQuery("station_codes", time.Now())
	rows, err := s.conn.QueryContext(ctx, getStationCodesSQL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close stations rows", "error", err)
		}
	}()
	var out []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		out = append(out, code)
	}
	return out, rows.Err()
}

func (s *sessionImpl) TOBSSince(ctx context.Context, station string, since string) ([]types.TOBSObservation, error) {
	defer metrics.ObserveQuery("tobs_since", time.Now())
	rows, err := s.conn.QueryContext(ctx, s.dialect.Rebind(getTOBSSinceSQL), station, since)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close tobs rows", "error", err)
		}
	}()
	var out []types.TOBSObservation
	for rows.Next() {
		var rec types.TOBSObservation
		if err := rows.Scan(&rec.Date, &rec.TOBS); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// TemperatureStats aggregates tobs over date >= start, and date <= *end when
// end is set. Dates compare as strings; no row matching leaves every field nil.
func (s *sessionImpl) TemperatureStats(ctx context.Context, start string, end *string) (types.TemperatureStats, error) {
	defer metrics.ObserveQuery("temperature_stats", time.Now())
	var row *sql.Row
	if end == nil {
		row = s.conn.QueryRowContext(ctx, s.dialect.Rebind(getTemperatureStatsSQL), start)
	} else {
		row = s.conn.QueryRowContext(ctx, s.dialect.Rebind(getTemperatureStatsRangeSQL), start, *end)
	}
	var tmin, tavg, tmax sql.NullFloat64
	if err := row.Scan(&tmin, &tavg, &tmax); err != nil {
		return types.TemperatureStats{}, err
	}
	return types.TemperatureStats{
		TMIN: nullableFloat(tmin),
		TAVG: nullableFloat(tavg),
		TMAX: nullableFloat(tmax),
	}, nil
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
