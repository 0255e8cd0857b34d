// cmd/tools/main.go
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"surfsup-server/internal/config"
	"surfsup-server/internal/db"
	"surfsup-server/internal/loader"
	"surfsup-server/internal/logging"
	"surfsup-server/internal/schema"
)

const appName = "surfsup-tools"

var version = "dev"

const usage = `usage: %s <command> [flags]
  migrate                                  apply pending schema migrations
  load -stations <csv> -measurements <csv> migrate, then replace the dataset
  verify                                   check the store layout
`

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(2)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(cfg, version, appName))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, cmd string, args []string) error {
	switch cmd {
	case "migrate", "load", "verify":
	default:
		return fmt.Errorf("unknown command (see %s with no arguments)", os.Args[0])
	}

	mode := db.ReadWrite
	if cmd == "verify" {
		mode = db.ReadOnly
	}
	conn, err := db.Open(cfg, mode)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(conn); closeErr != nil {
			slog.Error("db close", "err", closeErr)
		}
	}()
	dialect := db.DialectFor(cfg.Driver)

	switch cmd {
	case "migrate":
		if err := schema.Migrate(ctx, conn, dialect); err != nil {
			return err
		}
		fmt.Println("migrations applied")
	case "load":
		return runLoad(ctx, conn, dialect, args)
	case "verify":
		v, err := schema.Verify(ctx, conn)
		if err != nil {
			return err
		}
		if v == "" {
			v = "unversioned"
		}
		fmt.Printf("schema ok (version %s)\n", v)
	}
	return nil
}

func runLoad(ctx context.Context, conn *sql.DB, dialect db.Dialect, args []string) error {
	fset := flag.NewFlagSet("load", flag.ContinueOnError)
	stationsPath := fset.String("stations", "Resources/hawaii_stations.csv", "station CSV export")
	measurementsPath := fset.String("measurements", "Resources/hawaii_measurements.csv", "measurement CSV export")
	if err := fset.Parse(args); err != nil {
		return err
	}

	stations, err := os.Open(*stationsPath)
	if err != nil {
		return err
	}
	defer stations.Close()
	measurements, err := os.Open(*measurementsPath)
	if err != nil {
		return err
	}
	defer measurements.Close()

	if err := schema.Migrate(ctx, conn, dialect); err != nil {
		return err
	}
	res, err := loader.Load(ctx, conn, dialect, stations, measurements)
	if err != nil {
		return err
	}
	fmt.Printf("loaded %d stations, %d measurements\n", res.Stations, res.Measurements)
	return nil
}
