package pubsub

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/assetsrates/internal/domain/asset"
)

func newPoint(ts int64) asset.Point {
	return asset.Point{
		Asset:     asset.Asset{ID: 1, Symbol: "EURUSD"},
		Timestamp: ts,
		Value:     decimal.RequireFromString("1.1"),
	}
}

func recvNoWait(t *testing.T, sub *Subscription) (asset.Point, bool) {
	t.Helper()
	select {
	case p := <-sub.C:
		return p, true
	default:
		return asset.Point{}, false
	}
}

func TestHubFanOut(t *testing.T) {
	hub := NewHub(10)

	subA1 := hub.Subscribe("channel_A")
	subA2 := hub.Subscribe("channel_A")
	subB1 := hub.Subscribe("channel_B")
	defer subA1.Close()
	defer subA2.Close()
	defer subB1.Close()

	// Channels start empty.
	_, ok := recvNoWait(t, subA1)
	require.False(t, ok)
	_, ok = recvNoWait(t, subB1)
	require.False(t, ok)

	// Two messages for channel_A.
	p1, p2 := newPoint(1), newPoint(2)
	hub.Publish("channel_A", p1)
	hub.Publish("channel_A", p2)

	// channel_B stays empty.
	_, ok = recvNoWait(t, subB1)
	require.False(t, ok)

	// Both channel_A subscribers see the same points in order.
	for _, sub := range []*Subscription{subA1, subA2} {
		got, ok := recvNoWait(t, sub)
		require.True(t, ok)
		assert.Equal(t, p1, got)

		got, ok = recvNoWait(t, sub)
		require.True(t, ok)
		assert.Equal(t, p2, got)

		_, ok = recvNoWait(t, sub)
		assert.False(t, ok)
	}
}

func TestHubDropsWhenFull(t *testing.T) {
	hub := NewHub(2)

	sub := hub.Subscribe("EURUSD")
	defer sub.Close()

	hub.Publish("EURUSD", newPoint(1))
	hub.Publish("EURUSD", newPoint(2))
	hub.Publish("EURUSD", newPoint(3)) // buffer full, dropped

	got, ok := recvNoWait(t, sub)
	require.True(t, ok)
	assert.EqualValues(t, 1, got.Timestamp)

	got, ok = recvNoWait(t, sub)
	require.True(t, ok)
	assert.EqualValues(t, 2, got.Timestamp)

	_, ok = recvNoWait(t, sub)
	assert.False(t, ok)
}

func TestHubUnsubscribeCleansUpChannel(t *testing.T) {
	hub := NewHub(1)

	sub1 := hub.Subscribe("EURUSD")
	sub2 := hub.Subscribe("EURUSD")
	require.Equal(t, 2, hub.Subscribers("EURUSD"))

	sub1.Close()
	assert.Equal(t, 1, hub.Subscribers("EURUSD"))

	sub2.Close()
	assert.Equal(t, 0, hub.Subscribers("EURUSD"))

	// Closing twice is safe.
	sub2.Close()

	// Publishing to an empty channel is a no-op.
	hub.Publish("EURUSD", newPoint(1))
}

func TestHubPublishAfterClose(t *testing.T) {
	hub := NewHub(1)

	sub := hub.Subscribe("EURUSD")
	sub.Close()

	hub.Publish("EURUSD", newPoint(1))
	_, ok := recvNoWait(t, sub)
	assert.False(t, ok)
}
