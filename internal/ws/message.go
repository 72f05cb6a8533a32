package ws

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/assetsrates/internal/domain/asset"
)

// Client actions.
const (
	actionAssets    = "assets"
	actionSubscribe = "subscribe"
)

// Server actions.
const (
	actionAssetHistory = "asset_history"
	actionPoint        = "point"
)

// inbound is a decoded client frame: a validated action plus the raw
// "message" object, parsed lazily per action.
type inbound struct {
	Action  string
	Message jx.Raw
}

// decodeInbound validates the frame envelope: the body and the "message"
// field must be objects and "action" must be a known action. Message content
// is not validated here.
func decodeInbound(data []byte) (inbound, error) {
	var in inbound

	d := jx.DecodeBytes(data)
	if d.Next() != jx.Object {
		return in, errors.New("frame must be an object")
	}
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "action":
			s, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "action")
			}
			in.Action = s
		case "message":
			if d.Next() != jx.Object {
				return errors.New(`"message" must be an object`)
			}
			raw, err := d.Raw()
			if err != nil {
				return errors.Wrap(err, "message")
			}
			in.Message = raw
		default:
			return d.Skip()
		}
		return nil
	}); err != nil {
		return in, err
	}

	switch in.Action {
	case actionAssets, actionSubscribe:
	default:
		return in, errors.Errorf("invalid action: %q", in.Action)
	}
	if in.Message == nil {
		return in, errors.New(`missing "message" field`)
	}

	return in, nil
}

// assetID extracts an integer assetId from a subscribe message. The second
// return is false when the field is absent or not an integer.
func assetID(msg jx.Raw) (int64, bool) {
	var (
		id    int64
		found bool
	)

	d := jx.DecodeBytes(msg)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "assetId" {
			return d.Skip()
		}
		n, err := d.Num()
		if err != nil {
			return err
		}
		v, err := n.Int64()
		if err != nil {
			return err
		}
		id, found = v, true
		return nil
	}); err != nil {
		return 0, false
	}

	return id, found
}

// encodeAssetsMessage builds the reply to the "assets" action.
func encodeAssetsMessage(assets []asset.Asset) []byte {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("action", func(e *jx.Encoder) { e.Str(actionAssets) })
		e.Field("message", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("assets", func(e *jx.Encoder) {
					e.Arr(func(e *jx.Encoder) {
						for _, a := range assets {
							encodeAsset(e, a)
						}
					})
				})
			})
		})
	})
	return e.Bytes()
}

// encodeHistoryMessage builds the first reply to the "subscribe" action.
func encodeHistoryMessage(points []asset.Point) []byte {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("action", func(e *jx.Encoder) { e.Str(actionAssetHistory) })
		e.Field("message", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("points", func(e *jx.Encoder) {
					e.Arr(func(e *jx.Encoder) {
						for _, p := range points {
							encodePoint(e, p)
						}
					})
				})
			})
		})
	})
	return e.Bytes()
}

// encodePointMessage builds a live rate update notification.
func encodePointMessage(p asset.Point) []byte {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("action", func(e *jx.Encoder) { e.Str(actionPoint) })
		e.Field("message", func(e *jx.Encoder) { encodePoint(e, p) })
	})
	return e.Bytes()
}

func encodeAsset(e *jx.Encoder, a asset.Asset) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(a.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(a.Symbol) })
	})
}

func encodePoint(e *jx.Encoder, p asset.Point) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("assetId", func(e *jx.Encoder) { e.Int64(p.Asset.ID) })
		e.Field("assetName", func(e *jx.Encoder) { e.Str(p.Asset.Symbol) })
		e.Field("time", func(e *jx.Encoder) { e.Int64(p.Timestamp) })
		e.Field("value", func(e *jx.Encoder) { e.Float64(p.Value.InexactFloat64()) })
	})
}
