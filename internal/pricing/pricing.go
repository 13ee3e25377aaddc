// Package pricing turns the price feed into a per-token lookup and values
// airdrop amounts against it.
//
// The feed has shipped in two shapes: an array of per-token records, and an
// object whose "prices" member (or the object itself) maps token ids to
// records. Normalize accepts both.
package pricing

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Quote holds the two price fields of one token record.
type Quote struct {
	Price    float64
	DexPrice float64
}

// Effective prefers the primary price and falls back to the dex price.
func (q Quote) Effective() float64 {
	if q.Price > 0 {
		return q.Price
	}
	return q.DexPrice
}

// Lookup maps token identifiers to quotes. Rebuilt every pass.
type Lookup map[string]Quote

// Shape names the payload variant Normalize saw, for diagnostics.
type Shape string

const (
	ShapeList      Shape = "list"
	ShapeMap       Shape = "map"
	ShapeFlatMap   Shape = "flat_map"
	ShapeUnhandled Shape = "unhandled"
)

// Normalize decodes a raw price payload into a Lookup.
func Normalize(raw json.RawMessage) (Lookup, Shape, error) {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, ShapeUnhandled, fmt.Errorf("decode price payload: %w", err)
	}

	lookup := make(Lookup)
	switch v := payload.(type) {
	case []any:
		for _, item := range v {
			rec, ok := item.(map[string]any)
			if !ok {
				continue
			}
			key := recordKey(rec)
			if key == "" {
				continue
			}
			lookup[key] = quoteFrom(rec)
		}
		return lookup, ShapeList, nil

	case map[string]any:
		shape := ShapeMap
		entries, _ := v["prices"].(map[string]any)
		if len(entries) == 0 {
			// Shape drift: no usable "prices" member, treat the object as the lookup.
			entries = v
			shape = ShapeFlatMap
		}
		for key, item := range entries {
			rec, ok := item.(map[string]any)
			if !ok {
				continue
			}
			lookup[key] = quoteFrom(rec)
		}
		return lookup, shape, nil

	default:
		return lookup, ShapeUnhandled, nil
	}
}

// recordKey picks the first present, non-empty of token, symbol, address.
func recordKey(rec map[string]any) string {
	for _, field := range []string{"token", "symbol", "address"} {
		if s := stringify(rec[field]); s != "" {
			return s
		}
	}
	return ""
}

func quoteFrom(rec map[string]any) Quote {
	price, _ := ExtractValue(rec["price"])
	dex, _ := ExtractValue(rec["dex_price"])
	return Quote{Price: price, DexPrice: dex}
}

// ExtractValue normalizes a numeric field that may arrive as a number or a
// numeric string. Returns ok=false if not extractable.
func ExtractValue(val any) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f, true
		}
		return 0, false
	default:
		return 0, false
	}
}

func stringify(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// amountShape admits digits and dots only; a sign or any other character
// means the amount is not a non-negative decimal.
var amountShape = regexp.MustCompile(`^[0-9.]*[0-9][0-9.]*$`)

// Resolve returns the effective unit price and the total value of amount
// units of token. Both are nil when the amount is missing or malformed, the
// token is unknown, or neither price is positive. The total alone is nil
// when the amount passes the shape check but still fails to parse.
func Resolve(amount, token string, lookup Lookup) (price, total *float64) {
	amount = strings.TrimSpace(amount)
	if amount == "" || !amountShape.MatchString(amount) {
		return nil, nil
	}

	quote, ok := lookup[token]
	if !ok {
		return nil, nil
	}
	effective := quote.Effective()
	if effective <= 0 {
		return nil, nil
	}

	qty, err := decimal.NewFromString(amount)
	if err != nil {
		return &effective, nil
	}
	value, _ := qty.Mul(decimal.NewFromFloat(effective)).Float64()
	return &effective, &value
}
