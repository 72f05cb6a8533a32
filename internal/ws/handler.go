// Package ws serves the websocket rates API.
//
// Clients send frames of the form {"action": ..., "message": {...}}. The
// "assets" action returns the tracked asset list; "subscribe" streams an
// asset's stored history followed by live updates. A connection holds at
// most one live subscription: a new subscribe replaces the previous one.
package ws

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xenking/assetsrates/internal/domain/asset"
	"github.com/xenking/assetsrates/internal/pubsub"
)

// Handler upgrades requests to websocket connections and speaks the rates
// protocol.
type Handler struct {
	store    asset.Repository
	hub      *pubsub.Hub
	upgrader websocket.Upgrader
}

// NewHandler creates a websocket Handler. Origin checks are delegated to the
// CORS middleware in front of the server, so the upgrader accepts any origin.
func NewHandler(store asset.Repository, hub *pubsub.Hub) *Handler {
	return &Handler{
		store: store,
		hub:   hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	lg := zctx.From(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		lg.Debug("Websocket upgrade failed", zap.Error(err))
		return
	}

	lg.Debug("New websocket connection")

	s := &session{h: h, conn: conn}
	s.run(r.Context())

	lg.Debug("Websocket connection closed")
}

// session is the per-connection state. The read loop owns subCancel/subDone;
// writeMu serializes frames between the read loop and the streaming
// goroutine.
type session struct {
	h    *Handler
	conn *websocket.Conn

	writeMu   sync.Mutex
	subCancel context.CancelFunc
	subDone   chan struct{}
}

func (s *session) run(ctx context.Context) {
	defer func() { _ = s.conn.Close() }()
	defer s.cancelSubscription()

	lg := zctx.From(ctx)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		in, err := decodeInbound(data)
		if err != nil {
			// Invalid frames are dropped, the connection stays open.
			lg.Debug("Ignoring invalid frame", zap.Error(err))
			continue
		}

		switch in.Action {
		case actionAssets:
			if err := s.sendAssets(ctx); err != nil {
				lg.Debug("Assets reply failed", zap.Error(err))
				return
			}
		case actionSubscribe:
			id, ok := assetID(in.Message)
			if !ok {
				continue
			}
			s.startSubscription(ctx, id)
		}
	}
}

func (s *session) send(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *session) sendAssets(ctx context.Context) error {
	assets, err := s.h.store.ListAssets(ctx)
	if err != nil {
		return errors.Wrap(err, "list assets")
	}
	return s.send(encodeAssetsMessage(assets))
}

// startSubscription replaces the connection's active stream, waiting for the
// previous one to stop before starting the next.
func (s *session) startSubscription(ctx context.Context, id int64) {
	s.cancelSubscription()

	subCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.subCancel, s.subDone = cancel, done

	go func() {
		defer close(done)
		s.streamAsset(subCtx, id)
	}()
}

func (s *session) cancelSubscription() {
	if s.subCancel == nil {
		return
	}
	s.subCancel()
	<-s.subDone
	s.subCancel, s.subDone = nil, nil
}

// streamAsset sends the asset's stored history, then forwards live updates
// until the subscription is cancelled. An unknown asset id produces no reply.
func (s *session) streamAsset(ctx context.Context, id int64) {
	lg := zctx.From(ctx)

	a, err := s.h.store.GetAssetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, asset.ErrNotFound) {
			lg.Error("Asset lookup failed", zap.Int64("asset_id", id), zap.Error(err))
		}
		return
	}

	history, err := s.h.store.History(ctx, *a)
	if err != nil {
		lg.Error("History fetch failed", zap.String("symbol", a.Symbol), zap.Error(err))
		return
	}

	lg.Debug("Send history", zap.String("symbol", a.Symbol), zap.Int("points", len(history)))
	if err := s.send(encodeHistoryMessage(history)); err != nil {
		return
	}

	lg.Debug("Subscribe for updates", zap.String("symbol", a.Symbol))
	sub := s.h.hub.Subscribe(a.Symbol)
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case p := <-sub.C:
			if err := s.send(encodePointMessage(p)); err != nil {
				return
			}
		}
	}
}
