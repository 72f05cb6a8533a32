// Command history-export dumps the stored rate history of every tracked
// asset into per-asset gzip-compressed NDJSON files, one line per point.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/assetsrates/internal/domain/asset"
	"github.com/xenking/assetsrates/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		outDir      string
		window      time.Duration
		workers     int
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&outDir, "out", "export", "output directory for .ndjson.gz files")
	flag.DurationVar(&window, "window", 30*time.Minute, "history window to export")
	flag.IntVar(&workers, "workers", 4, "number of concurrent export workers")
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

	if err := run(ctx, databaseURL, outDir, window, workers); err != nil {
		slog.Error("export failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, databaseURL, outDir string, window time.Duration, workers int) error {
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	repo := postgres.NewRepository(pool, window)

	assets, err := repo.ListAssets(ctx)
	if err != nil {
		return errors.Wrap(err, "list assets")
	}
	if len(assets) == 0 {
		slog.Warn("no assets found, nothing to export")
		return nil
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return errors.Wrap(err, "create output directory")
	}

	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, a := range assets {
		g.Go(func() error {
			n, err := exportAsset(ctx, repo, a, outDir)
			if err != nil {
				return errors.Wrapf(err, "export %s", a.Symbol)
			}

			slog.Info("exported asset history",
				slog.String("symbol", a.Symbol),
				slog.Int("points", n),
			)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("export completed",
		slog.Int("assets", len(assets)),
		slog.Duration("elapsed", time.Since(start).Round(time.Millisecond)),
	)

	return nil
}

func exportAsset(ctx context.Context, repo asset.Repository, a asset.Asset, outDir string) (int, error) {
	points, err := repo.History(ctx, a)
	if err != nil {
		return 0, errors.Wrap(err, "load history")
	}

	name := strings.ToLower(a.Symbol) + ".ndjson.gz"

	f, err := os.Create(filepath.Join(outDir, name))
	if err != nil {
		return 0, errors.Wrap(err, "create output file")
	}
	defer f.Close()

	zw := pgzip.NewWriter(f)

	var e jx.Encoder
	for _, p := range points {
		e.Reset()
		e.Obj(func(e *jx.Encoder) {
			e.Field("assetId", func(e *jx.Encoder) {
				e.Int64(p.Asset.ID)
			})
			e.Field("symbol", func(e *jx.Encoder) {
				e.Str(p.Asset.Symbol)
			})
			e.Field("time", func(e *jx.Encoder) {
				e.Int64(p.Timestamp)
			})
			e.Field("value", func(e *jx.Encoder) {
				e.Str(p.Value.String())
			})
		})

		if _, err := zw.Write(append(e.Bytes(), '\n')); err != nil {
			return 0, errors.Wrap(err, "write point")
		}
	}

	if err := zw.Close(); err != nil {
		return 0, errors.Wrap(err, "close gzip writer")
	}
	if err := f.Close(); err != nil {
		return 0, errors.Wrap(err, "close output file")
	}

	return len(points), nil
}
