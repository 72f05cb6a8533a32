// Package asset defines the core domain types for tracked assets and their
// rate history.
package asset

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested asset does not exist.
var ErrNotFound = errors.New("asset not found")

// Asset is a tracked instrument, e.g. an FX pair.
type Asset struct {
	ID     int64
	Symbol string
}

// Point is a single observation of an asset's rate.
type Point struct {
	Asset     Asset
	Timestamp int64 // unix seconds
	Value     decimal.Decimal
}

// Repository defines persistence operations for assets and their history.
//
// History returns points newest-first, bounded by the store's retention
// window.
type Repository interface {
	ListAssets(ctx context.Context) ([]Asset, error)
	GetAssetByID(ctx context.Context, id int64) (*Asset, error)
	SavePoints(ctx context.Context, points []Point) error
	History(ctx context.Context, a Asset) ([]Point, error)
}

// DefaultAssets is the set of instruments tracked out of the box.
var DefaultAssets = []Asset{
	{ID: 1, Symbol: "EURUSD"},
	{ID: 2, Symbol: "USDJPY"},
	{ID: 3, Symbol: "GBPUSD"},
	{ID: 4, Symbol: "AUDUSD"},
	{ID: 5, Symbol: "USDCAD"},
}
