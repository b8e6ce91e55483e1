package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/letscook/internal/cook"
	"github.com/rovshanmuradov/letscook/internal/events"
	"github.com/rovshanmuradov/letscook/internal/events/eventstest"
	"github.com/rovshanmuradov/letscook/internal/launch"
	"github.com/rovshanmuradov/letscook/internal/layout/layouttest"
	"github.com/rovshanmuradov/letscook/internal/market"
	"github.com/rovshanmuradov/letscook/internal/metrics"
)

type fakeSource struct {
	listings []launch.Listing
	err      error
}

func (f *fakeSource) Launches(context.Context) ([]launch.Listing, error) {
	return f.listings, f.err
}

// now sits inside both launches' sale windows.
var now = time.UnixMilli(1_500_000)

func listings() []launch.Listing {
	return []launch.Listing{
		{Address: solana.NewWallet().PublicKey(), Launch: layouttest.Launch("sauce", 1_000_000, 2_000_000, 10, 4)},
		{Address: solana.NewWallet().PublicKey(), Launch: layouttest.Launch("pasta", 1_200_000, 2_000_000, 10, 0)},
	}
}

func newServer(t *testing.T, cfg Config, src Source, opts ...Option) *Server {
	t.Helper()
	if cfg.CheckIn == 0 {
		cfg.CheckIn = cook.DefaultCheckInTimeout
	}
	opts = append(opts, WithClock(func() time.Time { return now }))
	return New(cfg, src, zaptest.NewLogger(t), opts...)
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s := newServer(t, Config{}, &fakeSource{})
	w := get(t, s, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestLaunchesBeforeRefresh(t *testing.T) {
	s := newServer(t, Config{}, &fakeSource{listings: listings()})
	assert.Equal(t, http.StatusServiceUnavailable, get(t, s, "/launches").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, s, "/launches/sauce").Code)
}

func TestListLaunches(t *testing.T) {
	s := newServer(t, Config{}, &fakeSource{listings: listings()})
	require.NoError(t, s.Refresh(context.Background()))

	w := get(t, s, "/launches")
	require.Equal(t, http.StatusOK, w.Code)

	var got []LaunchSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "pasta", got[0].Page, "newest launch first")
	assert.Equal(t, "sauce", got[1].Page)
	assert.Equal(t, "Cooking", got[1].Badge)
	assert.Equal(t, uint32(4), got[1].TicketsSold)
	assert.Equal(t, "0.1", got[1].TicketPrice.String())
}

func TestGetLaunch(t *testing.T) {
	s := newServer(t, Config{}, &fakeSource{listings: listings()})
	require.NoError(t, s.Refresh(context.Background()))

	w := get(t, s, "/launches/sauce")
	require.Equal(t, http.StatusOK, w.Code)
	var got LaunchDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "sauce", got.Page)
	assert.Equal(t, "Total: 4", got.Header)
	assert.InDelta(t, 40.0, got.Progress, 1e-9)
	assert.NotEmpty(t, got.Distribution)

	assert.Equal(t, http.StatusNotFound, get(t, s, "/launches/nothing").Code)
}

func TestCandles(t *testing.T) {
	bars := []market.Candle{
		{Time: 0, Open: 1, High: 2, Low: 1, Close: 2, Volume: 1},
		{Time: 900, Open: 2, High: 3, Low: 2, Close: 3, Volume: 1},
	}
	s := newServer(t, Config{}, &fakeSource{listings: listings()},
		WithCandles(func(_ context.Context, page string) ([]market.Candle, error) {
			if page == "pasta" {
				return nil, market.ErrMarketNotFound
			}
			return bars, nil
		}))
	require.NoError(t, s.Refresh(context.Background()))

	w := get(t, s, "/launches/sauce/candles")
	require.Equal(t, http.StatusOK, w.Code)
	var got []market.Candle
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got, 2)

	w = get(t, s, "/launches/sauce/candles?interval=1d")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, 3.0, got[0].High)

	assert.Equal(t, http.StatusNotFound, get(t, s, "/launches/pasta/candles").Code)
}

func TestCandleSourceError(t *testing.T) {
	s := newServer(t, Config{}, &fakeSource{listings: listings()},
		WithCandles(func(context.Context, string) ([]market.Candle, error) {
			return nil, errors.New("rpc down")
		}))
	require.NoError(t, s.Refresh(context.Background()))
	assert.Equal(t, http.StatusBadGateway, get(t, s, "/launches/sauce/candles").Code)
}

func TestHomepageOnly(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := newServer(t, Config{HomepageOnly: true}, &fakeSource{listings: listings()}, WithGatherer(reg))
	require.NoError(t, s.Refresh(context.Background()))

	assert.Equal(t, http.StatusOK, get(t, s, "/health").Code)
	assert.Equal(t, http.StatusOK, get(t, s, "/launches").Code)
	assert.Equal(t, http.StatusNotFound, get(t, s, "/launches/sauce").Code)
	assert.Equal(t, http.StatusNotFound, get(t, s, "/metrics").Code)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewCollector(reg)
	m.RecordSubmission("buy_tickets", "confirmed")

	s := newServer(t, Config{}, &fakeSource{}, WithGatherer(reg))
	w := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "letscook_submissions_total")
}

func TestRefreshFailureKeepsListings(t *testing.T) {
	src := &fakeSource{listings: listings()}
	rec := &eventstest.Recorder{}
	s := newServer(t, Config{}, src, WithBus(rec))
	require.NoError(t, s.Refresh(context.Background()))

	src.listings, src.err = nil, errors.New("rpc down")
	assert.Error(t, s.Refresh(context.Background()))

	w := get(t, s, "/launches")
	require.Equal(t, http.StatusOK, w.Code)
	var got []LaunchSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got, 2)

	evs := rec.Of(events.DirectoryRefreshed)
	require.Len(t, evs, 2)
	assert.Equal(t, 2, evs[0].(events.DirectoryEvent).Launches)
	assert.Error(t, evs[1].(events.DirectoryEvent).Err)
}

func TestRateLimiter(t *testing.T) {
	s := newServer(t, Config{RateLimit: RateLimit{RequestsPerSecond: 0.001, Burst: 2}}, &fakeSource{})
	assert.Equal(t, http.StatusOK, get(t, s, "/health").Code)
	assert.Equal(t, http.StatusOK, get(t, s, "/health").Code)
	w := get(t, s, "/health")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "retry_after")
}

func TestRunStopsWithContext(t *testing.T) {
	s := newServer(t, Config{ListenAddr: "127.0.0.1:0", RefreshSpec: "@every 1h"}, &fakeSource{listings: listings()})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool {
		_, refreshed := s.snapshot()
		return !refreshed.IsZero()
	}, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunRejectsBadSpec(t *testing.T) {
	s := newServer(t, Config{ListenAddr: "127.0.0.1:0", RefreshSpec: "not a spec"}, &fakeSource{})
	assert.Error(t, s.Run(context.Background()))
}
