// Package launch follows one launch page and runs its ticket actions.
package launch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/letscook/internal/blockchain"
	"github.com/rovshanmuradov/letscook/internal/cook"
	"github.com/rovshanmuradov/letscook/internal/events"
	"github.com/rovshanmuradov/letscook/internal/layout"
	"github.com/rovshanmuradov/letscook/internal/metrics"
	"github.com/rovshanmuradov/letscook/internal/poller"
	"github.com/rovshanmuradov/letscook/internal/program"
	"github.com/rovshanmuradov/letscook/internal/txn"
)

var (
	ErrLaunchNotFound = errors.New("launch not found")
	ErrNotAvailable   = errors.New("action not available")
)

// Action names used for submissions and notices.
const (
	ActionBuyTickets    = "buy_tickets"
	ActionCheckTickets  = "check_tickets"
	ActionClaimTokens   = "claim_tokens"
	ActionRefundTickets = "refund_tickets"
)

// Deps are the shared services a view uses.
type Deps struct {
	Reader    blockchain.Reader
	Feed      blockchain.Feed
	Assembler *txn.Assembler
	Addresses program.Addresses
	Bus       events.Publisher
	Metrics   *metrics.Collector
	Logger    *zap.Logger
}

// Config tunes a view.
type Config struct {
	CheckIn time.Duration
	Poller  poller.Config
}

// DefaultConfig returns the standard check-in window and resubscribe policy.
func DefaultConfig() Config {
	return Config{CheckIn: cook.DefaultCheckInTimeout, Poller: poller.DefaultConfig()}
}

// View keeps the launch and the owner's join record current for one page.
type View struct {
	page       string
	owner      solana.PublicKey
	launchAddr solana.PublicKey
	joinAddr   solana.PublicKey

	deps   Deps
	cfg    Config
	poller *poller.Poller
	launch *poller.Cell[layout.LaunchData]
	join   *poller.Cell[layout.JoinData]
	logger *zap.Logger
}

func launchNewer(cur, next *layout.LaunchData) bool {
	return next.NumInteractions > cur.NumInteractions
}

func joinNewer(cur, next *layout.JoinData) bool {
	return next.NumTickets > cur.NumTickets ||
		next.NumClaimedTickets > cur.NumClaimedTickets ||
		next.TicketStatus > cur.TicketStatus
}

// Open reads the launch for page and subscribes to it, and to the owner's
// join record when a wallet is connected. The launch must exist.
func Open(ctx context.Context, page string, deps Deps, cfg Config) (*View, error) {
	launchAddr, err := deps.Addresses.Launch(page)
	if err != nil {
		return nil, err
	}

	v := &View{
		page:       page,
		launchAddr: launchAddr,
		deps:       deps,
		cfg:        cfg,
		poller:     poller.New(deps.Reader, deps.Feed, cfg.Poller, deps.Logger),
		logger:     deps.Logger.Named("launch").With(zap.String("page", page)),
	}
	if deps.Assembler != nil {
		v.owner = deps.Assembler.Owner()
	}

	v.launch = poller.NewCell("launch", layout.DecodeLaunch,
		poller.WithNewer(launchNewer),
		poller.OnChange(func(l *layout.LaunchData) { v.changed("launch", launchAddr, l != nil) }),
		poller.OnDecodeError[layout.LaunchData](v.decodeFailed),
	)
	if err := v.poller.Watch(ctx, launchAddr, v.launch); err != nil {
		v.poller.Close()
		return nil, err
	}
	l := v.launch.Get()
	if l == nil {
		v.poller.Close()
		return nil, fmt.Errorf("%w: %s", ErrLaunchNotFound, page)
	}

	if !v.owner.IsZero() {
		v.joinAddr, err = deps.Addresses.Join(v.owner, l.GameID)
		if err != nil {
			v.poller.Close()
			return nil, err
		}
		joinAddr := v.joinAddr
		v.join = poller.NewCell("join", layout.DecodeJoin,
			poller.WithNewer(joinNewer),
			poller.OnChange(func(j *layout.JoinData) { v.changed("join", joinAddr, j != nil) }),
			poller.OnDecodeError[layout.JoinData](v.decodeFailed),
		)
		if err := v.poller.Watch(ctx, joinAddr, v.join); err != nil {
			v.poller.Close()
			return nil, err
		}
	}

	v.logger.Info("Launch opened",
		zap.String("launch", launchAddr.String()),
		zap.Bool("joined", v.Join() != nil))
	return v, nil
}

func (v *View) changed(kind string, address solana.PublicKey, present bool) {
	if v.deps.Bus != nil {
		_ = v.deps.Bus.Publish(events.NewSnapshot(kind, address.String(), present))
	}
}

func (v *View) decodeFailed(kind string, err error) {
	v.deps.Metrics.DecodeFailure(kind)
	v.logger.Debug("Undecodable account", zap.String("kind", kind), zap.Error(err))
}

// Page returns the page name.
func (v *View) Page() string { return v.page }

// Launch returns the latest launch snapshot or nil.
func (v *View) Launch() *layout.LaunchData { return v.launch.Get() }

// Join returns the owner's join record or nil.
func (v *View) Join() *layout.JoinData {
	if v.join == nil {
		return nil
	}
	return v.join.Get()
}

// Snapshot is everything a launch page shows at one instant.
type Snapshot struct {
	Page                   string
	Launch                 *layout.LaunchData
	Join                   *layout.JoinData
	State                  cook.State
	Liquidity              cook.Liquidity
	Action                 cook.Action
	Badge                  string
	Header                 string
	WinProbability         float64
	WinRate                string
	TokensPerWinningTicket decimal.Decimal
	LiquidityRaised        decimal.Decimal
	LiquidityTarget        decimal.Decimal
	Progress               float64
	Distribution           []cook.Share
}

// Snapshot derives the page state at now from the current account snapshots.
func (v *View) Snapshot(now time.Time) Snapshot {
	return Build(v.page, now, v.Launch(), v.Join(), v.cfg.CheckIn)
}

// Build derives a snapshot from decoded accounts.
func Build(page string, now time.Time, l *layout.LaunchData, j *layout.JoinData, checkIn time.Duration) Snapshot {
	state := cook.Derive(now, l, j)
	phase := cook.LiquidityPhase(state, now, l, checkIn)
	s := Snapshot{
		Page:      page,
		Launch:    l,
		Join:      j,
		State:     state,
		Liquidity: phase,
		Action:    cook.ActionFor(state, phase, j),
		Badge:     cook.Badge(state),
		WinRate:   cook.WinRate(state, j),
	}
	if l == nil {
		return s
	}
	s.Header = cook.Header(l)
	s.WinProbability = cook.WinProbability(l)
	s.TokensPerWinningTicket = cook.TokensPerWinningTicket(l)
	s.LiquidityRaised, s.LiquidityTarget = cook.GuaranteedLiquidity(l)
	s.Progress = cook.Progress(l)
	s.Distribution = cook.Distribution(l)
	return s
}

// Refresh re-reads both accounts. Snapshots older than what a push already
// delivered are ignored.
func (v *View) Refresh(ctx context.Context) error {
	if err := v.poller.Refresh(ctx, v.launchAddr); err != nil {
		return err
	}
	if v.join != nil {
		return v.poller.Refresh(ctx, v.joinAddr)
	}
	return nil
}

func (v *View) refreshAfterConfirm(ctx context.Context) {
	if err := v.Refresh(ctx); err != nil {
		v.logger.Warn("Refresh after confirmation failed", zap.Error(err))
	}
}

// reject raises a notice for a request that fails before any network call.
func (v *View) reject(action string, err error) error {
	events.Notify(v.deps.Bus, events.NoticeError, action, err.Error())
	return err
}

// expect checks that the page currently offers want.
func (v *View) expect(now time.Time, action string, want cook.Action) (*layout.LaunchData, error) {
	if v.deps.Assembler == nil || v.owner.IsZero() {
		return nil, v.reject(action, fmt.Errorf("%w: wallet not connected", ErrNotAvailable))
	}
	s := v.Snapshot(now)
	if s.Launch == nil {
		return nil, v.reject(action, ErrLaunchNotFound)
	}
	if s.Action != want {
		return nil, v.reject(action, fmt.Errorf("%w: %s in state %s", ErrNotAvailable, action, s.State))
	}
	return s.Launch, nil
}

func (v *View) submit(ctx context.Context, action string, ix solana.Instruction) (*txn.Result, error) {
	return v.deps.Assembler.Submit(ctx, txn.Request{
		Action:       action,
		Page:         v.page,
		Instructions: []solana.Instruction{ix},
		OnConfirmed:  v.refreshAfterConfirm,
	})
}

// BuyTickets buys n tickets while the launch is active.
func (v *View) BuyTickets(ctx context.Context, now time.Time, n int) (*txn.Result, error) {
	if n < 1 || n > program.MaxTicketsPerPurchase {
		return nil, v.reject(ActionBuyTickets, program.ErrTicketCount)
	}
	l, err := v.expect(now, ActionBuyTickets, cook.ActionBuy)
	if err != nil {
		return nil, err
	}
	ix, err := v.deps.Addresses.BuyTickets(v.owner, l, n)
	if err != nil {
		return nil, v.reject(ActionBuyTickets, err)
	}
	v.logger.Info("Buying tickets",
		zap.Int("tickets", n),
		zap.String("cost_sol", cook.TicketCost(l, n).String()))
	return v.submit(ctx, ActionBuyTickets, ix)
}

// CheckTickets reveals which of the owner's tickets won.
func (v *View) CheckTickets(ctx context.Context, now time.Time) (*txn.Result, error) {
	l, err := v.expect(now, ActionCheckTickets, cook.ActionCheck)
	if err != nil {
		return nil, err
	}
	ix, err := v.deps.Addresses.CheckTickets(v.owner, l)
	if err != nil {
		return nil, v.reject(ActionCheckTickets, err)
	}
	return v.submit(ctx, ActionCheckTickets, ix)
}

// ClaimTokens claims tokens for winning tickets and refunds losing ones.
func (v *View) ClaimTokens(ctx context.Context, now time.Time) (*txn.Result, error) {
	l, err := v.expect(now, ActionClaimTokens, cook.ActionClaim)
	if err != nil {
		return nil, err
	}
	ix, err := v.deps.Addresses.ClaimTokens(v.owner, l)
	if err != nil {
		return nil, v.reject(ActionClaimTokens, err)
	}
	return v.submit(ctx, ActionClaimTokens, ix)
}

// RefundTickets returns the ticket price of a failed launch.
func (v *View) RefundTickets(ctx context.Context, now time.Time) (*txn.Result, error) {
	l, err := v.expect(now, ActionRefundTickets, cook.ActionRefund)
	if err != nil {
		return nil, err
	}
	ix, err := v.deps.Addresses.RefundTickets(v.owner, l)
	if err != nil {
		return nil, v.reject(ActionRefundTickets, err)
	}
	return v.submit(ctx, ActionRefundTickets, ix)
}

// Do runs whichever action the page offers at now. tickets is only used
// when that action is a purchase.
func (v *View) Do(ctx context.Context, now time.Time, tickets int) (*txn.Result, error) {
	s := v.Snapshot(now)
	switch s.Action {
	case cook.ActionBuy:
		return v.BuyTickets(ctx, now, tickets)
	case cook.ActionCheck:
		return v.CheckTickets(ctx, now)
	case cook.ActionClaim:
		return v.ClaimTokens(ctx, now)
	case cook.ActionRefund:
		return v.RefundTickets(ctx, now)
	}
	return nil, fmt.Errorf("%w: nothing to do in state %s", ErrNotAvailable, s.State)
}

// Close cancels both subscriptions.
func (v *View) Close() {
	v.poller.Close()
	v.logger.Debug("Launch closed")
}
