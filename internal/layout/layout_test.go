package layout_test

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/letscook/internal/layout"
	"github.com/rovshanmuradov/letscook/internal/layout/layouttest"
)

func TestDecodeLaunch(t *testing.T) {
	want := layouttest.Launch("sauce", 100, 200, 10, 4)
	want.Socials = []string{"https://x.com/sauce"}

	got, err := layout.DecodeLaunch(layouttest.Encode(t, want))
	require.NoError(t, err)

	assert.Equal(t, "sauce", got.PageName)
	assert.Equal(t, uint64(100), got.LaunchDate)
	assert.Equal(t, uint64(200), got.EndDate)
	assert.Equal(t, uint32(10), got.NumMints)
	assert.Equal(t, uint32(4), got.TicketsSold)
	assert.Equal(t, want.Mint(), got.Mint())
	assert.Equal(t, want.Seller(), got.Seller())
	assert.Equal(t, []string{"https://x.com/sauce"}, got.Socials)
	assert.Equal(t, solana.TokenProgramID, got.TokenProgram())
}

func TestDecodeEmptyAndWrongType(t *testing.T) {
	_, err := layout.DecodeLaunch(nil)
	assert.ErrorIs(t, err, layout.ErrEmptyAccount)

	_, err = layout.DecodeJoin([]byte{})
	assert.ErrorIs(t, err, layout.ErrEmptyAccount)

	launchBytes := layouttest.Encode(t, layouttest.Launch("sauce", 1, 2, 1, 1))
	_, err = layout.DecodeJoin(launchBytes)
	assert.ErrorIs(t, err, layout.ErrAccountType)
}

func TestDecodeTruncatedJoin(t *testing.T) {
	user := solana.NewWallet().PublicKey()
	data := layouttest.Encode(t, layouttest.Join(user, 7, 3, 1, 1))

	_, err := layout.DecodeJoin(data[:10])
	assert.Error(t, err)

	j, err := layout.DecodeJoin(data)
	require.NoError(t, err)
	assert.Equal(t, user, j.JoinerKey)
	assert.Equal(t, uint16(3), j.NumTickets)
	assert.Equal(t, uint16(1), j.NumClaimedTickets)
}

func TestTokenAmount(t *testing.T) {
	data := layouttest.TokenAccount(solana.WrappedSol, solana.NewWallet().PublicKey(), 42_000)

	amount, err := layout.TokenAmount(data)
	require.NoError(t, err)
	assert.Equal(t, uint64(42_000), amount)

	_, err = layout.TokenAmount(data[:70])
	assert.Error(t, err)

	_, err = layout.TokenAmount(nil)
	assert.ErrorIs(t, err, layout.ErrEmptyAccount)

	acc, err := layout.DecodeTokenAccount(data)
	require.NoError(t, err)
	assert.Equal(t, uint64(42_000), acc.Amount)
}

func TestLaunchKeyOutOfRange(t *testing.T) {
	l := &layout.LaunchData{}
	assert.True(t, l.Mint().IsZero())
	assert.Equal(t, uint8(0), l.Flag(layout.LaunchFlagLPState))
}

func TestDecodeTimeSeries(t *testing.T) {
	ts := &layout.TimeSeriesData{
		AccountType: layout.AccountTimeSeries,
		Data: []layout.OHLCV{
			{Timestamp: 28_000_000, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
		},
	}
	got, err := layout.DecodeTimeSeries(layouttest.Encode(t, ts))
	require.NoError(t, err)
	require.Len(t, got.Data, 1)
	assert.Equal(t, float32(1.5), got.Data[0].Close)
}
