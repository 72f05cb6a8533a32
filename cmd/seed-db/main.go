// Command seed-db initializes the database schema and upserts the default
// tracked assets. Intended for local development and fresh deployments.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/xenking/assetsrates/internal/domain/asset"
	"github.com/xenking/assetsrates/internal/storage/postgres"
)

func main() {
	var databaseURL string

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	slog.Info("upserting default assets", slog.Int("count", len(asset.DefaultAssets)))

	for _, a := range asset.DefaultAssets {
		if _, err := pool.Exec(ctx,
			`INSERT INTO assets (id, symbol) VALUES ($1, $2)
			 ON CONFLICT (id) DO UPDATE SET symbol = EXCLUDED.symbol`,
			a.ID, a.Symbol,
		); err != nil {
			return errors.Wrapf(err, "upsert asset %s", a.Symbol)
		}

		slog.Info("upserted asset", slog.Int64("id", a.ID), slog.String("symbol", a.Symbol))
	}

	return nil
}
