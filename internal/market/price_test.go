package market

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPrice(t *testing.T) {
	tests := []struct {
		name     string
		base     uint64
		quote    uint64
		decimals uint8
		want     string
	}{
		{"empty base", 0, 1_000, 6, "0"},
		{"six decimals", 1_000_000_000, 2_000_000_000, 6, "0.002"},
		{"nine decimals", 4_000_000_000, 1_000_000_000, 9, "0.25"},
		{"no decimals", 10, 5_000_000_000, 0, "0.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Price(tt.base, tt.quote, tt.decimals)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestReservesKnown(t *testing.T) {
	assert.False(t, Reserves{}.Known())
	assert.False(t, Reserves{Base: 1}.Known())
	assert.True(t, Reserves{Base: 1, Quote: 1}.Known())
}
