package pricing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_List(t *testing.T) {
	raw := json.RawMessage(`[
		{"token":"TKN","price":1.5,"dex_price":2},
		{"symbol":"SYM","price":"0.25"},
		{"address":"0xdead","dex_price":3},
		{"token":"","symbol":"","address":""},
		{"price":9},
		"not-a-record"
	]`)

	lookup, shape, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, ShapeList, shape)
	assert.Len(t, lookup, 3)
	assert.Equal(t, Quote{Price: 1.5, DexPrice: 2}, lookup["TKN"])
	assert.Equal(t, Quote{Price: 0.25}, lookup["SYM"])
	assert.Equal(t, Quote{DexPrice: 3}, lookup["0xdead"])
}

func TestNormalize_ListPrefersTokenOverSymbol(t *testing.T) {
	raw := json.RawMessage(`[{"token":"ALPHA_1","symbol":"ONE","price":1}]`)

	lookup, _, err := Normalize(raw)
	require.NoError(t, err)
	assert.Contains(t, lookup, "ALPHA_1")
	assert.NotContains(t, lookup, "ONE")
}

func TestNormalize_MapWithPrices(t *testing.T) {
	raw := json.RawMessage(`{"success":true,"prices":{"TKN":{"price":2.0,"dex_price":0}}}`)

	lookup, shape, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, ShapeMap, shape)
	assert.Equal(t, Lookup{"TKN": {Price: 2.0}}, lookup)
}

func TestNormalize_MapFallsBackToWholeObject(t *testing.T) {
	for _, raw := range []string{
		`{"TKN":{"price":2.0},"ZZZ":{"dex_price":"4"}}`,
		`{"prices":{},"TKN":{"price":2.0},"ZZZ":{"dex_price":"4"}}`,
	} {
		lookup, shape, err := Normalize(json.RawMessage(raw))
		require.NoError(t, err)
		assert.Equal(t, ShapeFlatMap, shape)
		assert.Len(t, lookup, 2, raw)
		assert.Equal(t, 4.0, lookup["ZZZ"].DexPrice)
	}
}

func TestNormalize_Errors(t *testing.T) {
	_, _, err := Normalize(json.RawMessage(`{`))
	assert.Error(t, err)

	lookup, shape, err := Normalize(json.RawMessage(`42`))
	require.NoError(t, err)
	assert.Equal(t, ShapeUnhandled, shape)
	assert.Empty(t, lookup)
}

func TestResolve_EffectivePrice(t *testing.T) {
	lookup := Lookup{
		"DEX":  {Price: 0, DexPrice: 2.5},
		"MAIN": {Price: 1.2, DexPrice: 5},
		"NONE": {Price: 0, DexPrice: 0},
		"NEG":  {Price: -1, DexPrice: -2},
	}

	price, total := Resolve("10", "DEX", lookup)
	require.NotNil(t, price)
	require.NotNil(t, total)
	assert.Equal(t, 2.5, *price)
	assert.InDelta(t, 25.0, *total, 1e-9)

	price, total = Resolve("10", "MAIN", lookup)
	require.NotNil(t, price)
	assert.Equal(t, 1.2, *price)
	assert.InDelta(t, 12.0, *total, 1e-9)

	price, total = Resolve("10", "NONE", lookup)
	assert.Nil(t, price)
	assert.Nil(t, total)

	price, total = Resolve("10", "NEG", lookup)
	assert.Nil(t, price)
	assert.Nil(t, total)
}

func TestResolve_SoftFailures(t *testing.T) {
	lookup := Lookup{"TKN": {Price: 2}}

	tests := []struct {
		name   string
		amount string
		token  string
	}{
		{"empty amount", "", "TKN"},
		{"blank amount", "   ", "TKN"},
		{"negative amount", "-5", "TKN"},
		{"text amount", "TBA", "TKN"},
		{"comma grouping", "1,000", "TKN"},
		{"unknown token", "100", "NOPE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, total := Resolve(tt.amount, tt.token, lookup)
			assert.Nil(t, price)
			assert.Nil(t, total)
		})
	}
}

func TestResolve_UnparseableAmountKeepsPrice(t *testing.T) {
	price, total := Resolve("1.2.3", "TKN", Lookup{"TKN": {Price: 2}})
	require.NotNil(t, price)
	assert.Equal(t, 2.0, *price)
	assert.Nil(t, total)
}

func TestResolve_DecimalAmount(t *testing.T) {
	price, total := Resolve(" 0.5 ", "TKN", Lookup{"TKN": {Price: 3}})
	require.NotNil(t, price)
	require.NotNil(t, total)
	assert.InDelta(t, 1.5, *total, 1e-9)
}
