// internal/market/candles.go
package market

import (
	"time"

	"github.com/rovshanmuradov/letscook/internal/layout"
)

// LiveInterval is the bucket width of candles built from reserve changes.
const LiveInterval = 15 * time.Minute

const day = 24 * 60 * 60

// Candle is one OHLCV bar. Time is unix seconds at the bar start.
type Candle struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// FromTimeSeries converts minute-stamped program bars to candles.
func FromTimeSeries(ts *layout.TimeSeriesData) []Candle {
	if ts == nil {
		return nil
	}
	out := make([]Candle, 0, len(ts.Data))
	for _, bar := range ts.Data {
		out = append(out, Candle{
			Time:   bar.Timestamp * 60,
			Open:   float64(bar.Open),
			High:   float64(bar.High),
			Low:    float64(bar.Low),
			Close:  float64(bar.Close),
			Volume: float64(bar.Volume),
		})
	}
	return out
}

// Daily folds candles into one bar per UTC day. Input must be in time order.
func Daily(candles []Candle) []Candle {
	var out []Candle
	lastDate := int64(-1)
	for _, c := range candles {
		date := c.Time / day * day
		if date != lastDate {
			out = append(out, Candle{Time: date, Open: c.Open, High: c.High, Low: c.Low, Close: c.Close, Volume: c.Volume})
			lastDate = date
			continue
		}
		d := &out[len(out)-1]
		if c.High > d.High {
			d.High = c.High
		}
		if c.Low < d.Low {
			d.Low = c.Low
		}
		d.Close = c.Close
		d.Volume += c.Volume
	}
	return out
}

// Volume24h sums the volume of candles that started less than a day before now.
func Volume24h(candles []Candle, now time.Time) float64 {
	cutoff := now.Unix()
	var total float64
	for _, c := range candles {
		if cutoff-c.Time < day {
			total += c.Volume
		}
	}
	return total
}

// ApplyPrice folds a new price into the live candle. A price in a later
// bucket than the last candle opens a new one. An empty series is left
// as is, since there is nothing to extend.
func ApplyPrice(candles []Candle, price float64, now time.Time) []Candle {
	if len(candles) == 0 {
		return candles
	}
	width := int64(LiveInterval / time.Second)
	bucket := now.Unix() / width
	last := &candles[len(candles)-1]
	if bucket > last.Time/width {
		return append(candles, Candle{
			Time:  bucket * width,
			Open:  price,
			High:  price,
			Low:   price,
			Close: price,
		})
	}
	last.Close = price
	if price > last.High {
		last.High = price
	}
	if price < last.Low {
		last.Low = price
	}
	return candles
}
