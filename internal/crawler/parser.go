package crawler

import (
	"bytes"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/assetsrates/internal/domain/asset"
)

var two = decimal.NewFromInt(2)

// ParsePayload decodes the upstream rates payload into history points.
//
// The feed wraps its JSON body in a JSONP-style callback, `null(<json>);`,
// which is stripped before decoding. The body has the shape
// {"Rates":[{"Symbol":...,"Bid":...,"Ask":...},...]}; each rate matching a
// known asset yields a point valued at the bid/ask midpoint. Symbols not in
// assets are collected and returned for the caller to report.
func ParsePayload(raw []byte, ts int64, assets []asset.Asset) ([]asset.Point, []string, error) {
	data := bytes.TrimSpace(raw)
	data = bytes.TrimPrefix(data, []byte("null("))
	data = bytes.TrimSuffix(data, []byte(");"))

	bySymbol := make(map[string]asset.Asset, len(assets))
	for _, a := range assets {
		bySymbol[a.Symbol] = a
	}

	var (
		points  []asset.Point
		unknown []string
	)

	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "Rates" {
			return d.Skip()
		}
		return d.Arr(func(d *jx.Decoder) error {
			var symbol string
			bid, ask := decimal.Zero, decimal.Zero

			if err := d.Obj(func(d *jx.Decoder, key string) error {
				switch key {
				case "Symbol":
					s, err := d.Str()
					if err != nil {
						return errors.Wrap(err, "symbol")
					}
					symbol = s
				case "Bid":
					v, err := decodeDecimal(d)
					if err != nil {
						return errors.Wrap(err, "bid")
					}
					bid = v
				case "Ask":
					v, err := decodeDecimal(d)
					if err != nil {
						return errors.Wrap(err, "ask")
					}
					ask = v
				default:
					return d.Skip()
				}
				return nil
			}); err != nil {
				return err
			}

			if symbol == "" {
				return nil
			}
			a, ok := bySymbol[symbol]
			if !ok {
				unknown = append(unknown, symbol)
				return nil
			}

			points = append(points, asset.Point{
				Asset:     a,
				Timestamp: ts,
				Value:     bid.Add(ask).Div(two),
			})
			return nil
		})
	}); err != nil {
		return nil, nil, errors.Wrap(err, "decode rates payload")
	}

	return points, unknown, nil
}

// decodeDecimal reads a JSON number as a decimal, treating null as zero.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	if d.Next() == jx.Null {
		return decimal.Zero, d.Null()
	}
	n, err := d.Num()
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(n.String())
}
