// Package market follows a launched token's pool: reserves, price and
// candles, plus swap and liquidity actions.
package market

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/letscook/internal/blockchain"
	"github.com/rovshanmuradov/letscook/internal/events"
	"github.com/rovshanmuradov/letscook/internal/layout"
	"github.com/rovshanmuradov/letscook/internal/metrics"
	"github.com/rovshanmuradov/letscook/internal/poller"
	"github.com/rovshanmuradov/letscook/internal/program"
	"github.com/rovshanmuradov/letscook/internal/storage"
	"github.com/rovshanmuradov/letscook/internal/storage/models"
	"github.com/rovshanmuradov/letscook/internal/txn"
	"github.com/rovshanmuradov/letscook/internal/wallet"
)

var (
	ErrMarketNotFound = errors.New("market not found")
	ErrExternalPool   = errors.New("action only available on cook pools")
)

// Action names used for submissions and notices.
const (
	ActionSwap            = "swap"
	ActionAddLiquidity    = "add_liquidity"
	ActionRemoveLiquidity = "remove_liquidity"
)

// Deps are the shared services a market view uses. Store and Birdeye are
// optional.
type Deps struct {
	Reader    blockchain.Reader
	Feed      blockchain.Feed
	Assembler *txn.Assembler
	Addresses program.Addresses
	Bus       events.Publisher
	Store     storage.Storage
	Birdeye   *Birdeye
	Metrics   *metrics.Collector
	Logger    *zap.Logger
}

// Config tunes a market view.
type Config struct {
	Poller poller.Config
	// Now is the clock used for live candles. Defaults to time.Now.
	Now func() time.Time
}

// View keeps one pool current.
type View struct {
	page    string
	ammAddr solana.PublicKey
	amm     *layout.AMMData
	mint    *layout.MintData

	base   *poller.Cell[uint64]
	quote  *poller.Cell[uint64]
	series *poller.Cell[layout.TimeSeriesData]

	mu        sync.RWMutex
	candles   []Candle
	lastBase  uint64
	lastQuote uint64

	deps   Deps
	now    func() time.Time
	poller *poller.Poller
	logger *zap.Logger
}

func decodeAmount(data []byte) (*uint64, error) {
	v, err := layout.TokenAmount(data)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Open resolves the pool of page's token, reads its reserves and candles
// and subscribes to reserve changes.
func Open(ctx context.Context, page string, deps Deps, cfg Config) (*View, error) {
	v := &View{
		page:   page,
		deps:   deps,
		now:    cfg.Now,
		poller: poller.New(deps.Reader, deps.Feed, cfg.Poller, deps.Logger),
		logger: deps.Logger.Named("market").With(zap.String("page", page)),
	}
	if v.now == nil {
		v.now = time.Now
	}
	if err := v.resolve(ctx); err != nil {
		v.poller.Close()
		return nil, err
	}

	v.base = poller.NewCell("reserve", decodeAmount,
		poller.OnChange(func(*uint64) { v.onReserves() }),
		poller.OnDecodeError[uint64](v.decodeFailed))
	v.quote = poller.NewCell("reserve", decodeAmount,
		poller.OnChange(func(*uint64) { v.onReserves() }),
		poller.OnDecodeError[uint64](v.decodeFailed))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return v.poller.Watch(gctx, v.amm.BaseKey, v.base) })
	g.Go(func() error { return v.poller.Watch(gctx, v.amm.QuoteKey, v.quote) })
	g.Go(func() error { return v.loadCandles(gctx) })
	if err := g.Wait(); err != nil {
		v.poller.Close()
		return nil, err
	}

	v.saveSnapshot(ctx)
	v.logger.Info("Market opened",
		zap.String("amm", v.ammAddr.String()),
		zap.Uint8("provider", v.amm.Provider),
		zap.Int("candles", len(v.Candles())))
	return v, nil
}

// resolve finds the launch, its pool and the base mint.
func (v *View) resolve(ctx context.Context) error {
	addrs := v.deps.Addresses
	launchAddr, err := addrs.Launch(v.page)
	if err != nil {
		return err
	}
	acc, err := v.deps.Reader.GetAccount(ctx, launchAddr)
	if errors.Is(err, blockchain.ErrAccountNotFound) {
		return fmt.Errorf("%w: no launch %s", ErrMarketNotFound, v.page)
	}
	if err != nil {
		return err
	}
	l, err := layout.DecodeLaunch(acc.Data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMarketNotFound, err)
	}

	quoteMint := l.Key(layout.LaunchKeyWSOLAddress)
	if quoteMint.IsZero() {
		quoteMint = solana.WrappedSol
	}
	v.ammAddr, err = addrs.AMM(l.Mint(), quoteMint, l.Flag(layout.LaunchFlagAMMProvider))
	if err != nil {
		return err
	}

	accs, err := v.deps.Reader.GetMultipleAccounts(ctx, []solana.PublicKey{v.ammAddr, l.Mint()})
	if err != nil {
		return err
	}
	if accs[0] == nil || len(accs[0].Data) == 0 {
		return fmt.Errorf("%w: %s has no pool yet", ErrMarketNotFound, v.page)
	}
	if v.amm, err = layout.DecodeAMM(accs[0].Data); err != nil {
		return fmt.Errorf("%w: %v", ErrMarketNotFound, err)
	}
	if accs[1] == nil {
		return fmt.Errorf("%w: mint %s missing", ErrMarketNotFound, l.Mint())
	}
	if v.mint, err = layout.DecodeMint(l.Mint(), accs[1].Owner, accs[1].Data); err != nil {
		return err
	}
	return nil
}

func (v *View) loadCandles(ctx context.Context) error {
	if v.External() {
		if v.deps.Birdeye == nil {
			return nil
		}
		solIsQuote := v.amm.QuoteMint.Equals(solana.WrappedSol)
		candles, err := v.deps.Birdeye.OHLCV(ctx, v.amm.Pool, solIsQuote, v.now())
		if err != nil {
			// Candles are decoration; the page works without them.
			v.logger.Warn("Failed to load external candles", zap.Error(err))
			return nil
		}
		v.setCandles(candles)
		return nil
	}

	seriesAddr, err := v.deps.Addresses.TimeSeries(v.ammAddr, 0)
	if err != nil {
		return err
	}
	v.series = poller.NewCell("time_series", layout.DecodeTimeSeries,
		poller.OnChange(func(ts *layout.TimeSeriesData) { v.setCandles(FromTimeSeries(ts)) }),
		poller.OnDecodeError[layout.TimeSeriesData](v.decodeFailed))
	err = v.poller.Watch(ctx, seriesAddr, v.series)
	v.deps.Metrics.CandleFetch("program", err)
	return err
}

func (v *View) decodeFailed(kind string, err error) {
	v.deps.Metrics.DecodeFailure(kind)
	v.logger.Debug("Undecodable account", zap.String("kind", kind), zap.Error(err))
}

func (v *View) setCandles(c []Candle) {
	v.mu.Lock()
	v.candles = c
	v.mu.Unlock()
}

// onReserves extends the live candle of external pools, whose bars
// otherwise only arrive from the OHLCV API.
func (v *View) onReserves() {
	r := v.Reserves()
	if !r.Known() {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if r.Base == v.lastBase && r.Quote == v.lastQuote {
		return
	}
	v.lastBase, v.lastQuote = r.Base, r.Quote
	if !v.External() || len(v.candles) == 0 {
		return
	}
	price, _ := Price(r.Base, r.Quote, v.mint.Decimals()).Float64()
	v.candles = ApplyPrice(v.candles, price, v.now())
}

func (v *View) saveSnapshot(ctx context.Context) {
	if v.deps.Store == nil {
		return
	}
	r := v.Reserves()
	price, _ := v.Price().Float64()
	err := v.deps.Store.SavePoolSnapshot(ctx, &models.PoolSnapshot{
		PoolID:       v.ammAddr.String(),
		PageName:     v.page,
		Provider:     v.amm.Provider,
		BaseMint:     v.amm.BaseMint.String(),
		QuoteMint:    v.amm.QuoteMint.String(),
		BaseReserve:  r.Base,
		QuoteReserve: r.Quote,
		Price:        price,
		LastUpdate:   v.now().UTC(),
	})
	if err != nil {
		v.logger.Warn("Failed to save pool snapshot", zap.Error(err))
	}
}

// External reports whether the pool lives outside the launch program.
func (v *View) External() bool { return v.amm.Provider != layout.ProviderCook }

// AMM returns the pool account.
func (v *View) AMM() *layout.AMMData { return v.amm }

// Reserves returns the last known raw reserves.
func (v *View) Reserves() Reserves {
	var r Reserves
	if b := v.base.Get(); b != nil {
		r.Base = *b
	}
	if q := v.quote.Get(); q != nil {
		r.Quote = *q
	}
	return r
}

// Price returns the current price in SOL.
func (v *View) Price() decimal.Decimal {
	r := v.Reserves()
	return Price(r.Base, r.Quote, v.mint.Decimals())
}

// Candles returns a copy of the bars.
func (v *View) Candles() []Candle {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]Candle(nil), v.candles...)
}

// Stats summarises the pool at now.
type Stats struct {
	Price     decimal.Decimal `json:"price"`
	Reserves  Reserves        `json:"reserves"`
	Volume24h float64         `json:"volume_24h"`
	Supply    decimal.Decimal `json:"supply"`
	Provider  uint8           `json:"provider"`
}

// Stats returns the header figures of the trade page.
func (v *View) Stats() Stats {
	return Stats{
		Price:     v.Price(),
		Reserves:  v.Reserves(),
		Volume24h: Volume24h(v.Candles(), v.now()),
		Supply:    decimal.NewFromInt(int64(v.mint.Mint.Supply)).Shift(-int32(v.mint.Decimals())),
		Provider:  v.amm.Provider,
	}
}

func (v *View) pool() program.Pool {
	return program.Pool{AMM: v.amm, BaseTokenProgram: v.mint.Program, QuoteTokenProgram: solana.TokenProgramID}
}

func (v *View) reject(action string, err error) error {
	events.Notify(v.deps.Bus, events.NoticeError, action, err.Error())
	return err
}

func (v *View) owner(action string) (solana.PublicKey, error) {
	if v.deps.Assembler == nil || v.deps.Assembler.Owner().IsZero() {
		return solana.PublicKey{}, v.reject(action, wallet.ErrNotConnected)
	}
	if v.External() {
		return solana.PublicKey{}, v.reject(action, ErrExternalPool)
	}
	return v.deps.Assembler.Owner(), nil
}

func (v *View) submit(ctx context.Context, action string, ix solana.Instruction) (*txn.Result, error) {
	return v.deps.Assembler.Submit(ctx, txn.Request{
		Action:       action,
		Page:         v.page,
		Instructions: []solana.Instruction{ix},
		OnConfirmed:  v.refresh,
	})
}

func (v *View) refresh(ctx context.Context) {
	for _, addr := range []solana.PublicKey{v.amm.BaseKey, v.amm.QuoteKey} {
		if err := v.poller.Refresh(ctx, addr); err != nil {
			v.logger.Warn("Refresh after confirmation failed", zap.Error(err))
		}
	}
}

// Swap trades amount on the pool. Buying spends SOL, selling spends tokens.
func (v *View) Swap(ctx context.Context, side uint8, amount uint64) (*txn.Result, error) {
	user, err := v.owner(ActionSwap)
	if err != nil {
		return nil, err
	}
	ix, err := v.deps.Addresses.Swap(user, v.pool(), side, amount)
	if err != nil {
		return nil, v.reject(ActionSwap, err)
	}
	return v.submit(ctx, ActionSwap, ix)
}

// AddLiquidity deposits both sides into the pool.
func (v *View) AddLiquidity(ctx context.Context, baseAmount, quoteAmount uint64) (*txn.Result, error) {
	user, err := v.owner(ActionAddLiquidity)
	if err != nil {
		return nil, err
	}
	ix, err := v.deps.Addresses.AddLiquidity(user, v.pool(), baseAmount, quoteAmount)
	if err != nil {
		return nil, v.reject(ActionAddLiquidity, err)
	}
	return v.submit(ctx, ActionAddLiquidity, ix)
}

// RemoveLiquidity burns lpAmount LP tokens for both sides.
func (v *View) RemoveLiquidity(ctx context.Context, lpAmount uint64) (*txn.Result, error) {
	user, err := v.owner(ActionRemoveLiquidity)
	if err != nil {
		return nil, err
	}
	ix, err := v.deps.Addresses.RemoveLiquidity(user, v.pool(), lpAmount)
	if err != nil {
		return nil, v.reject(ActionRemoveLiquidity, err)
	}
	return v.submit(ctx, ActionRemoveLiquidity, ix)
}

// Close cancels every subscription of the view.
func (v *View) Close() {
	v.poller.Close()
}

// Daily returns the bars folded per UTC day.
func (v *View) Daily() []Candle { return Daily(v.Candles()) }
