package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"surfsup-server/internal/modules/climate/repository"
	"surfsup-server/internal/modules/climate/types"
)

const (
	dateLayout   = "2006-01-02"
	windowInDays = 365
)

type Service struct {
	store repository.Store
}

func NewService(store repository.Store) *Service {
	return &Service{store: store}
}

// withSession holds one connection for the duration of fn and releases it
// on every return path, panics included.
func (s *Service) withSession(ctx context.Context, fn func(repository.Session) error) error {
	sess, err := s.store.Open(ctx)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			slog.Error("close session failed", "error", err)
		}
	}()
	return fn(sess)
}

// YearBefore returns the date windowInDays calendar days before maxDate,
// formatted the same way the store keeps dates.
func YearBefore(maxDate string) (string, error) {
	t, err := time.Parse(dateLayout, maxDate)
	if err != nil {
		return "", fmt.Errorf("parse max date %q: %w", maxDate, err)
	}
	return t.AddDate(0, 0, -windowInDays).Format(dateLayout), nil
}

// lastYearThreshold returns "" with a nil error when the store is empty.
func lastYearThreshold(ctx context.Context, sess repository.Session) (string, error) {
	maxDate, err := sess.MaxDate(ctx)
	if errors.Is(err, repository.ErrNoMeasurements) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("max date: %w", err)
	}
	return YearBefore(maxDate)
}

// Precipitation maps each date of the last year of data to its precipitation.
// Several stations report the same date; the last row read wins.
func (s *Service) Precipitation(ctx context.Context) (types.Precipitation, error) {
	out := types.Precipitation{}
	err := s.withSession(ctx, func(sess repository.Session) error {
		threshold, err := lastYearThreshold(ctx, sess)
		if err != nil || threshold == "" {
			return err
		}
		rows, err := sess.PrecipitationSince(ctx, threshold)
		if err != nil {
			return fmt.Errorf("precipitation since %s: %w", threshold, err)
		}
		for _, row := range rows {
			out[row.Date] = row.Prcp
		}
		if collapsed := len(rows) - len(out); collapsed > 0 {
			slog.Debug("precipitation rows collapsed by date", "rows", len(rows), "dates", len(out), "collapsed", collapsed)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) Stations(ctx context.Context) ([]string, error) {
	codes := []string{}
	err := s.withSession(ctx, func(sess repository.Session) error {
		got, err := sess.StationCodes(ctx)
		if err != nil {
			return fmt.Errorf("station codes: %w", err)
		}
		codes = append(codes, got...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return codes, nil
}

// TOBS returns the last year of temperature observations of the station with
// the most measurement rows. The window ends at the latest date of any
// station, not of the chosen one.
func (s *Service) TOBS(ctx context.Context) ([]types.TOBSObservation, error) {
	obs := []types.TOBSObservation{}
	err := s.withSession(ctx, func(sess repository.Session) error {
		station, err := sess.MostActiveStation(ctx)
		if errors.Is(err, repository.ErrNoMeasurements) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("most active station: %w", err)
		}
		threshold, err := lastYearThreshold(ctx, sess)
		if err != nil || threshold == "" {
			return err
		}
		got, err := sess.TOBSSince(ctx, station, threshold)
		if err != nil {
			return fmt.Errorf("tobs for %s since %s: %w", station, threshold, err)
		}
		obs = append(obs, got...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return obs, nil
}

// TemperatureStats passes start and end through untouched; they compare
// against stored dates as strings, so a malformed bound just matches nothing.
func (s *Service) TemperatureStats(ctx context.Context, start string, end *string) (types.TemperatureStats, error) {
	var stats types.TemperatureStats
	err := s.withSession(ctx, func(sess repository.Session) error {
		var err error
		stats, err = sess.TemperatureStats(ctx, start, end)
		if err != nil {
			return fmt.Errorf("temperature stats: %w", err)
		}
		return nil
	})
	return stats, err
}
