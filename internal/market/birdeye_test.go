package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const ohlcvBody = `{"success":true,"data":{"items":[
	{"o":2,"h":4,"l":1,"c":2,"v":10,"unixTime":1704067200},
	{"o":0,"h":0,"l":0,"c":0,"v":0,"unixTime":1704068100}
]}}`

func birdeyeServer(t *testing.T, pair solana.PublicKey) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/defi/ohlcv/pair", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-KEY"))
		q := r.URL.Query()
		assert.Equal(t, pair.String(), q.Get("address"))
		assert.Equal(t, "15m", q.Get("type"))
		assert.Equal(t, "1704067200", q.Get("time_from"))
		assert.Equal(t, "1704153600", q.Get("time_to"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(ohlcvBody))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBirdeyeOHLCV(t *testing.T) {
	pair := solana.NewWallet().PublicKey()
	srv := birdeyeServer(t, pair)
	b := NewBirdeye("secret", zaptest.NewLogger(t), WithBaseURL(srv.URL))
	now := time.Unix(1704153600, 0)

	t.Run("sol quote", func(t *testing.T) {
		got, err := b.OHLCV(context.Background(), pair, true, now)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, Candle{Time: 1704067200, Open: 2, High: 4, Low: 1, Close: 2, Volume: 10}, got[0])
	})

	t.Run("sol base inverts", func(t *testing.T) {
		got, err := b.OHLCV(context.Background(), pair, false, now)
		require.NoError(t, err)
		require.Len(t, got, 1, "zero bars are skipped")
		assert.Equal(t, Candle{Time: 1704067200, Open: 0.5, High: 1, Low: 0.25, Close: 0.5, Volume: 20}, got[0])
	})
}

func TestBirdeyeErrors(t *testing.T) {
	logger := zaptest.NewLogger(t)

	_, err := NewBirdeye("", logger).OHLCV(context.Background(), solana.PublicKey{}, true, time.Now())
	assert.ErrorIs(t, err, ErrBirdeyeDisabled)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()
	_, err = NewBirdeye("secret", logger, WithBaseURL(srv.URL)).
		OHLCV(context.Background(), solana.PublicKey{}, true, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
