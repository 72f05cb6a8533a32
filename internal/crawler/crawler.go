// Package crawler polls an upstream rates feed and fans fresh points out to
// storage and live subscribers.
package crawler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/assetsrates/internal/domain/asset"
	"github.com/xenking/assetsrates/internal/pubsub"
)

// Defaults for Config fields left zero.
const (
	DefaultPeriod  = time.Second
	DefaultTimeout = 5 * time.Second
)

// Sizing for the unknown-symbol log suppression filter.
const (
	unknownSymbolCapacity = 10_000
	unknownSymbolFPR      = 0.001
)

// Config controls the crawl loop.
type Config struct {
	// URL is the upstream feed endpoint. When empty, Run logs an error and
	// returns immediately without failing the service.
	URL     string
	Period  time.Duration
	Timeout time.Duration
}

// Crawler periodically fetches the feed, persists parsed points, and
// publishes them to the hub.
type Crawler struct {
	cfg    Config
	client *http.Client
	store  asset.Repository
	hub    *pubsub.Hub

	// unknownSeen suppresses repeated logs for symbols the feed reports but
	// the service does not track.
	unknownSeen *bloom.BloomFilter
}

// New creates a Crawler. Zero Period and Timeout fall back to the defaults.
func New(cfg Config, store asset.Repository, hub *pubsub.Hub) *Crawler {
	if cfg.Period <= 0 {
		cfg.Period = DefaultPeriod
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Crawler{
		cfg:         cfg,
		client:      &http.Client{Timeout: cfg.Timeout},
		store:       store,
		hub:         hub,
		unknownSeen: bloom.NewWithEstimates(unknownSymbolCapacity, unknownSymbolFPR),
	}
}

// Run polls the feed every Period until ctx is cancelled. Fetch and parse
// failures are logged and the loop continues; the next tick compensates for
// the time the previous iteration took.
func (c *Crawler) Run(ctx context.Context) error {
	lg := zctx.From(ctx)

	if c.cfg.URL == "" {
		lg.Error("Rates URL is not set, crawler is not started")
		return nil
	}

	lg.Info("Starting rates crawler",
		zap.String("url", c.cfg.URL),
		zap.Duration("period", c.cfg.Period),
	)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			lg.Info("Rates crawler stopped")
			return nil
		case <-timer.C:
		}

		started := time.Now()
		if err := c.crawlOnce(ctx, started.Unix()); err != nil && !errors.Is(err, context.Canceled) {
			lg.Error("Crawl failed", zap.Error(err))
		}

		sleep := c.cfg.Period - time.Since(started)
		if sleep < 0 {
			sleep = 0
		}
		timer.Reset(sleep)
	}
}

func (c *Crawler) crawlOnce(ctx context.Context, ts int64) error {
	lg := zctx.From(ctx)

	raw, err := c.fetch(ctx)
	if err != nil {
		return errors.Wrap(err, "fetch")
	}

	assets, err := c.store.ListAssets(ctx)
	if err != nil {
		return errors.Wrap(err, "list assets")
	}

	points, unknown, err := ParsePayload(raw, ts, assets)
	if err != nil {
		return errors.Wrap(err, "parse payload")
	}

	for _, symbol := range unknown {
		if !c.unknownSeen.TestAndAddString(symbol) {
			lg.Debug("Skipping unknown symbol", zap.String("symbol", symbol))
		}
	}

	if len(points) == 0 {
		return nil
	}

	if err := c.store.SavePoints(ctx, points); err != nil {
		return errors.Wrap(err, "save points")
	}
	for _, p := range points {
		c.hub.Publish(p.Asset.Symbol, p)
	}

	lg.Debug("Saved points", zap.Int("count", len(points)))
	return nil
}

func (c *Crawler) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("unexpected status %s", resp.Status)
	}

	return io.ReadAll(resp.Body)
}
