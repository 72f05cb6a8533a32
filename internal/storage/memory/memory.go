// Package memory implements asset.Repository with per-asset ring buffers.
//
// It provides no persistence across restarts and is intended for local runs
// without a database and for tests.
package memory

import (
	"context"
	"sync"

	"github.com/xenking/assetsrates/internal/domain/asset"
)

// DefaultCapacity keeps 30 minutes of history at one point per second.
const DefaultCapacity = 30 * 60

// Store is an in-memory asset.Repository.
type Store struct {
	mu       sync.RWMutex
	assets   []asset.Asset
	history  map[int64]*ring
	capacity int
}

var _ asset.Repository = (*Store)(nil)

// New creates a Store tracking the given assets. A non-positive capacity
// falls back to DefaultCapacity.
func New(capacity int, assets ...asset.Asset) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if len(assets) == 0 {
		assets = asset.DefaultAssets
	}

	s := &Store{
		assets:   make([]asset.Asset, len(assets)),
		history:  make(map[int64]*ring, len(assets)),
		capacity: capacity,
	}
	copy(s.assets, assets)
	for _, a := range assets {
		s.history[a.ID] = newRing(capacity)
	}
	return s
}

// ListAssets returns all tracked assets ordered by ID.
func (s *Store) ListAssets(_ context.Context) ([]asset.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]asset.Asset, len(s.assets))
	copy(out, s.assets)
	return out, nil
}

// GetAssetByID returns the asset with the given ID or asset.ErrNotFound.
func (s *Store) GetAssetByID(_ context.Context, id int64) (*asset.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.assets {
		if a.ID == id {
			found := a
			return &found, nil
		}
	}
	return nil, asset.ErrNotFound
}

// SavePoints appends points to their asset's ring, evicting the oldest entry
// once the ring is full. Points for unknown assets are ignored.
func (s *Store) SavePoints(_ context.Context, points []asset.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range points {
		r, ok := s.history[p.Asset.ID]
		if !ok {
			continue
		}
		r.push(p)
	}
	return nil
}

// History returns the stored points for a, newest first.
func (s *Store) History(_ context.Context, a asset.Asset) ([]asset.Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.history[a.ID]
	if !ok {
		return nil, asset.ErrNotFound
	}
	return r.newestFirst(), nil
}

// ring is a fixed-capacity circular buffer of points.
type ring struct {
	buf  []asset.Point
	next int
	full bool
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]asset.Point, capacity)}
}

func (r *ring) push(p asset.Point) {
	r.buf[r.next] = p
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
}

func (r *ring) len() int {
	if r.full {
		return len(r.buf)
	}
	return r.next
}

func (r *ring) newestFirst() []asset.Point {
	n := r.len()
	out := make([]asset.Point, 0, n)
	for i := 1; i <= n; i++ {
		idx := r.next - i
		if idx < 0 {
			idx += len(r.buf)
		}
		out = append(out, r.buf[idx])
	}
	return out
}
