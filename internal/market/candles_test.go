package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/letscook/internal/layout"
)

func TestFromTimeSeries(t *testing.T) {
	assert.Nil(t, FromTimeSeries(nil))

	got := FromTimeSeries(&layout.TimeSeriesData{Data: []layout.OHLCV{
		{Timestamp: 28_000_000, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
	}})
	require.Len(t, got, 1)
	assert.Equal(t, Candle{Time: 1_680_000_000, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10}, got[0])
}

func TestDaily(t *testing.T) {
	candles := []Candle{
		{Time: 0, Open: 1, High: 2, Low: 1, Close: 2, Volume: 1},
		{Time: 3600, Open: 2, High: 5, Low: 0.5, Close: 3, Volume: 2},
		{Time: day + 60, Open: 3, High: 3, Low: 3, Close: 3, Volume: 4},
	}

	got := Daily(candles)
	require.Len(t, got, 2)
	assert.Equal(t, Candle{Time: 0, Open: 1, High: 5, Low: 0.5, Close: 3, Volume: 3}, got[0])
	assert.Equal(t, Candle{Time: day, Open: 3, High: 3, Low: 3, Close: 3, Volume: 4}, got[1])
}

func TestVolume24h(t *testing.T) {
	now := time.Unix(10*day, 0)
	candles := []Candle{
		{Time: 10*day - day - 1, Volume: 100},
		{Time: 10*day - day + 1, Volume: 5},
		{Time: 10*day - 60, Volume: 7},
	}
	assert.Equal(t, 12.0, Volume24h(candles, now))
}

func TestApplyPrice(t *testing.T) {
	width := int64(LiveInterval / time.Second)

	t.Run("empty series untouched", func(t *testing.T) {
		assert.Empty(t, ApplyPrice(nil, 1, time.Unix(width, 0)))
	})

	t.Run("same bucket updates last candle", func(t *testing.T) {
		candles := []Candle{{Time: width, Open: 1, High: 1, Low: 1, Close: 1}}
		got := ApplyPrice(candles, 3, time.Unix(width+30, 0))
		require.Len(t, got, 1)
		assert.Equal(t, Candle{Time: width, Open: 1, High: 3, Low: 1, Close: 3}, got[0])

		got = ApplyPrice(got, 0.5, time.Unix(width+60, 0))
		assert.Equal(t, 0.5, got[0].Low)
		assert.Equal(t, 0.5, got[0].Close)
	})

	t.Run("later bucket opens a candle", func(t *testing.T) {
		candles := []Candle{{Time: width, Open: 1, High: 1, Low: 1, Close: 1}}
		got := ApplyPrice(candles, 2, time.Unix(3*width+5, 0))
		require.Len(t, got, 2)
		assert.Equal(t, Candle{Time: 3 * width, Open: 2, High: 2, Low: 2, Close: 2}, got[1])
	})
}
