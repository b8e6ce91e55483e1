// internal/market/price.go
package market

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// quoteDecimals is the decimals of wrapped SOL, the quote of every pool.
const quoteDecimals = 9

// Price is the base token price in SOL from raw pool reserves:
// quote/base scaled by 10^decimals / 10^9. Zero when the base side is empty.
func Price(baseReserve, quoteReserve uint64, baseDecimals uint8) decimal.Decimal {
	if baseReserve == 0 {
		return decimal.Zero
	}
	base := decimal.NewFromBigInt(new(big.Int).SetUint64(baseReserve), 0)
	quote := decimal.NewFromBigInt(new(big.Int).SetUint64(quoteReserve), 0)
	return quote.Div(base).Shift(int32(baseDecimals) - quoteDecimals)
}

// Reserves are the raw token amounts held by the pool.
type Reserves struct {
	Base  uint64
	Quote uint64
}

// Known reports whether both sides have been read.
func (r Reserves) Known() bool { return r.Base > 0 && r.Quote > 0 }
