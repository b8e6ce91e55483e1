// internal/layout/amm.go
package layout

import (
	"github.com/gagliardetto/solana-go"
)

// AMM providers.
const (
	ProviderCook        uint8 = 0
	ProviderRaydiumCPMM uint8 = 1
	ProviderRaydiumAMM  uint8 = 2
)

// AMMData describes a pool the program trades through.
type AMMData struct {
	AccountType     AccountType
	Pool            solana.PublicKey
	BaseMint        solana.PublicKey
	QuoteMint       solana.PublicKey
	LPMint          solana.PublicKey
	BaseKey         solana.PublicKey
	QuoteKey        solana.PublicKey
	FeeBps          uint16
	NumDataAccounts uint32
	LastPrice       float32
	LPAmount        uint64
	BorrowCost      uint16
	LeverageFrac    uint16
	AMMBaseAmount   uint64
	AMMQuoteAmount  uint64
	ShortFrac       uint16
	Provider        uint8
}

// DecodeAMM decodes an AMM account.
func DecodeAMM(data []byte) (*AMMData, error) {
	var a AMMData
	if err := decode(data, AccountAMM, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListingData carries display metadata for a traded token.
type ListingData struct {
	AccountType   AccountType
	Mint          solana.PublicKey
	Name          string
	Symbol        string
	Decimals      uint8
	Icon          string
	URI           string
	Banner        string
	Description   string
	PositiveVotes uint32
	NegativeVotes uint32
	Socials       []string
}

// DecodeListing decodes a listing account.
func DecodeListing(data []byte) (*ListingData, error) {
	var l ListingData
	if err := decode(data, AccountListing, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// OHLCV is one minute-resolution bar. Timestamp is in minutes since epoch.
type OHLCV struct {
	Timestamp int64
	Open      float32
	High      float32
	Low       float32
	Close     float32
	Volume    float32
}

// TimeSeriesData holds price bars for a Cook AMM, derived from
// [amm, index u32, "TimeSeries"].
type TimeSeriesData struct {
	AccountType AccountType
	Data        []OHLCV
}

// DecodeTimeSeries decodes a time series account.
func DecodeTimeSeries(data []byte) (*TimeSeriesData, error) {
	var t TimeSeriesData
	if err := decode(data, AccountTimeSeries, &t); err != nil {
		return nil, err
	}
	return &t, nil
}
