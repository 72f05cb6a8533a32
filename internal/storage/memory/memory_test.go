package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/assetsrates/internal/domain/asset"
)

func point(a asset.Asset, ts int64) asset.Point {
	return asset.Point{Asset: a, Timestamp: ts, Value: decimal.NewFromInt(ts)}
}

func TestStoreDefaults(t *testing.T) {
	s := New(0)

	assets, err := s.ListAssets(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 5)
	assert.Equal(t, asset.Asset{ID: 1, Symbol: "EURUSD"}, assets[0])
	assert.Equal(t, asset.Asset{ID: 5, Symbol: "USDCAD"}, assets[4])
}

func TestGetAssetByID(t *testing.T) {
	s := New(10)

	a, err := s.GetAssetByID(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "USDJPY", a.Symbol)

	_, err = s.GetAssetByID(context.Background(), 42)
	require.ErrorIs(t, err, asset.ErrNotFound)
}

func TestHistoryNewestFirst(t *testing.T) {
	s := New(10)
	ctx := context.Background()

	a := asset.DefaultAssets[0]
	require.NoError(t, s.SavePoints(ctx, []asset.Point{
		point(a, 1), point(a, 2), point(a, 3),
	}))

	got, err := s.History(ctx, a)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.EqualValues(t, 3, got[0].Timestamp)
	assert.EqualValues(t, 2, got[1].Timestamp)
	assert.EqualValues(t, 1, got[2].Timestamp)
}

func TestHistoryEviction(t *testing.T) {
	s := New(3)
	ctx := context.Background()

	a := asset.DefaultAssets[0]
	for ts := int64(1); ts <= 5; ts++ {
		require.NoError(t, s.SavePoints(ctx, []asset.Point{point(a, ts)}))
	}

	got, err := s.History(ctx, a)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.EqualValues(t, 5, got[0].Timestamp)
	assert.EqualValues(t, 3, got[2].Timestamp)
}

func TestSavePointsUnknownAssetIgnored(t *testing.T) {
	s := New(3)
	ctx := context.Background()

	unknown := asset.Asset{ID: 99, Symbol: "XXXYYY"}
	require.NoError(t, s.SavePoints(ctx, []asset.Point{point(unknown, 1)}))

	_, err := s.History(ctx, unknown)
	require.ErrorIs(t, err, asset.ErrNotFound)
}

func TestHistoryIsolatedPerAsset(t *testing.T) {
	s := New(10)
	ctx := context.Background()

	eur, jpy := asset.DefaultAssets[0], asset.DefaultAssets[1]
	require.NoError(t, s.SavePoints(ctx, []asset.Point{point(eur, 1)}))

	got, err := s.History(ctx, jpy)
	require.NoError(t, err)
	assert.Empty(t, got)
}
