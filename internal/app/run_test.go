package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surfsup-server/internal/config"
	"surfsup-server/internal/db"
	"surfsup-server/internal/schema"
)

func testConfig(path string) config.Config {
	return config.Config{
		AppEnv:         "dev",
		HTTPAddr:       "127.0.0.1:0",
		Driver:         config.DriverSQLite,
		SQLitePath:     path,
		MaxOpenConns:   2,
		MaxIdleConns:   2,
		RateLimitBurst: 20,
	}
}

func migratedStore(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hawaii.sqlite")
	cfg := testConfig(path)

	conn, err := db.Open(cfg, db.ReadWrite)
	require.NoError(t, err)
	require.NoError(t, schema.Migrate(context.Background(), conn, db.SQLite))
	require.NoError(t, db.Close(conn))
	return path
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	cfg := testConfig(migratedStore(t))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg) }()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_MissingStore(t *testing.T) {
	cfg := testConfig(filepath.Join(t.TempDir(), "missing.sqlite"))

	err := Run(context.Background(), cfg)
	require.Error(t, err)
}

func TestRun_SchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "other.sqlite")
	cfg := testConfig(path)
	conn, err := db.Open(cfg, db.ReadWrite)
	require.NoError(t, err)
	_, err = conn.Exec(`CREATE TABLE station (station TEXT)`)
	require.NoError(t, err)
	require.NoError(t, db.Close(conn))

	err = Run(context.Background(), cfg)
	require.ErrorIs(t, err, schema.ErrSchemaMismatch)
}
