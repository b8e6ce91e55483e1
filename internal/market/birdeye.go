// internal/market/birdeye.go
package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/letscook/internal/metrics"
)

const (
	birdeyeBaseURL        = "https://public-api.birdeye.so"
	defaultRequestTimeout = 10 * time.Second
	birdeyeInterval       = "15m"
)

// historyStart is the earliest bar requested from Birdeye.
var historyStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

var ErrBirdeyeDisabled = errors.New("birdeye api key not configured")

// Birdeye fetches OHLCV bars for external pools.
type Birdeye struct {
	client  *http.Client
	baseURL string
	apiKey  string
	metrics *metrics.Collector
	logger  *zap.Logger
}

// BirdeyeOption настраивает клиент Birdeye.
type BirdeyeOption func(*Birdeye)

// WithBaseURL points the client at another host.
func WithBaseURL(u string) BirdeyeOption { return func(b *Birdeye) { b.baseURL = u } }

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) BirdeyeOption { return func(b *Birdeye) { b.client = c } }

// WithBirdeyeMetrics records fetch outcomes.
func WithBirdeyeMetrics(m *metrics.Collector) BirdeyeOption {
	return func(b *Birdeye) { b.metrics = m }
}

// NewBirdeye создает клиент Birdeye API
func NewBirdeye(apiKey string, logger *zap.Logger, opts ...BirdeyeOption) *Birdeye {
	b := &Birdeye{
		client: &http.Client{
			Timeout: defaultRequestTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL: birdeyeBaseURL,
		apiKey:  apiKey,
		logger:  logger.Named("birdeye"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type ohlcvResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Items []ohlcvItem `json:"items"`
	} `json:"data"`
}

type ohlcvItem struct {
	Open     float64 `json:"o"`
	High     float64 `json:"h"`
	Low      float64 `json:"l"`
	Close    float64 `json:"c"`
	Volume   float64 `json:"v"`
	UnixTime int64   `json:"unixTime"`
}

// OHLCV returns 15 minute bars for pair up to now, priced in SOL. When SOL
// is the base of the pair the bars are inverted.
func (b *Birdeye) OHLCV(ctx context.Context, pair solana.PublicKey, solIsQuote bool, now time.Time) ([]Candle, error) {
	if b.apiKey == "" {
		return nil, ErrBirdeyeDisabled
	}
	items, err := b.fetch(ctx, pair, now)
	b.metrics.CandleFetch("birdeye", err)
	if err != nil {
		return nil, err
	}

	out := make([]Candle, 0, len(items))
	for _, it := range items {
		if solIsQuote {
			out = append(out, Candle{Time: it.UnixTime, Open: it.Open, High: it.High, Low: it.Low, Close: it.Close, Volume: it.Volume})
			continue
		}
		if it.Open == 0 || it.High == 0 || it.Low == 0 || it.Close == 0 {
			continue
		}
		closePrice := 1 / it.Close
		out = append(out, Candle{
			Time:   it.UnixTime,
			Open:   1 / it.Open,
			High:   1 / it.Low,
			Low:    1 / it.High,
			Close:  closePrice,
			Volume: it.Volume / closePrice,
		})
	}
	return out, nil
}

func (b *Birdeye) fetch(ctx context.Context, pair solana.PublicKey, now time.Time) ([]ohlcvItem, error) {
	q := url.Values{}
	q.Set("address", pair.String())
	q.Set("type", birdeyeInterval)
	q.Set("time_from", strconv.FormatInt(historyStart.Unix(), 10))
	q.Set("time_to", strconv.FormatInt(now.Unix(), 10))
	endpoint := b.baseURL + "/defi/ohlcv/pair?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-API-KEY", b.apiKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	b.logger.Debug("api request completed",
		zap.Duration("duration", time.Since(start)),
		zap.String("pair", pair.String()),
		zap.Int("status", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
	}

	var parsed ohlcvResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return parsed.Data.Items, nil
}
