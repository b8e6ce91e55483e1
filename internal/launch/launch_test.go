package launch

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/letscook/internal/blockchain/chaintest"
	"github.com/rovshanmuradov/letscook/internal/cook"
	"github.com/rovshanmuradov/letscook/internal/events"
	"github.com/rovshanmuradov/letscook/internal/events/eventstest"
	"github.com/rovshanmuradov/letscook/internal/layout"
	"github.com/rovshanmuradov/letscook/internal/layout/layouttest"
	"github.com/rovshanmuradov/letscook/internal/poller"
	"github.com/rovshanmuradov/letscook/internal/program"
	"github.com/rovshanmuradov/letscook/internal/txn"
	"github.com/rovshanmuradov/letscook/internal/wallet"
)

const (
	launchDate = 1_000_000
	endDate    = 2_000_000
)

type env struct {
	t      *testing.T
	chain  *chaintest.Chain
	addrs  program.Addresses
	signer *wallet.Wallet
	rec    *eventstest.Recorder
	deps   Deps
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		t:      t,
		chain:  chaintest.New(),
		addrs:  program.Addresses{Program: solana.NewWallet().PublicKey(), FeeAccount: solana.NewWallet().PublicKey()},
		signer: wallet.FromPrivateKey(solana.NewWallet().PrivateKey),
		rec:    &eventstest.Recorder{},
	}
	e.chain.AutoConfirm = true
	logger := zaptest.NewLogger(t)
	asm := txn.New(e.chain, e.chain, e.signer, txn.Config{Timeout: time.Second, FeeMin: 1_000, FeeMax: 100_000}, logger,
		txn.WithBus(e.rec))
	e.deps = Deps{
		Reader:    e.chain,
		Feed:      e.chain,
		Assembler: asm,
		Addresses: e.addrs,
		Bus:       e.rec,
		Logger:    logger,
	}
	return e
}

func testConfig() Config {
	return Config{
		CheckIn: cook.DefaultCheckInTimeout,
		Poller:  poller.Config{ResubscribeInitial: time.Millisecond, ResubscribeMax: 5 * time.Millisecond},
	}
}

func (e *env) putLaunch(l *layout.LaunchData) solana.PublicKey {
	addr, err := e.addrs.Launch(l.PageName)
	require.NoError(e.t, err)
	e.chain.SetAccount(addr, e.addrs.Program, 1_000_000, layouttest.Encode(e.t, l))
	return addr
}

func (e *env) putJoin(j *layout.JoinData) solana.PublicKey {
	addr, err := e.addrs.Join(j.JoinerKey, j.GameID)
	require.NoError(e.t, err)
	e.chain.SetAccount(addr, e.addrs.Program, 1_000_000, layouttest.Encode(e.t, j))
	return addr
}

func (e *env) open(page string) *View {
	v, err := Open(context.Background(), page, e.deps, testConfig())
	require.NoError(e.t, err)
	e.t.Cleanup(v.Close)
	return v
}

func at(ms int64) time.Time { return time.UnixMilli(ms) }

func TestOpenMissingLaunch(t *testing.T) {
	e := newEnv(t)
	_, err := Open(context.Background(), "nope", e.deps, testConfig())
	assert.ErrorIs(t, err, ErrLaunchNotFound)
	assert.Zero(t, e.chain.OpenSubscriptions())
}

func TestOpenSubscribesLaunchAndJoin(t *testing.T) {
	e := newEnv(t)
	e.putLaunch(layouttest.Launch("sauce", launchDate, endDate, 10, 4))

	v := e.open("sauce")
	assert.Equal(t, 2, e.chain.OpenSubscriptions(), "launch and join, even before the join exists")
	assert.Nil(t, v.Join())

	s := v.Snapshot(at(1_500_000))
	assert.Equal(t, cook.StateActiveNoTickets, s.State)
	assert.Equal(t, cook.ActionBuy, s.Action)
	assert.Equal(t, "Cooking", s.Badge)
	assert.Equal(t, "--", s.WinRate)
	assert.Equal(t, 40.0, s.Progress)

	v.Close()
	assert.Zero(t, e.chain.OpenSubscriptions())
}

func TestOpenWithoutWallet(t *testing.T) {
	e := newEnv(t)
	e.putLaunch(layouttest.Launch("sauce", launchDate, endDate, 10, 4))
	e.deps.Assembler = nil

	v := e.open("sauce")
	assert.Equal(t, 1, e.chain.OpenSubscriptions())

	_, err := v.BuyTickets(context.Background(), at(1_500_000), 1)
	assert.ErrorIs(t, err, ErrNotAvailable)
}

func TestBuyTickets(t *testing.T) {
	e := newEnv(t)
	l := layouttest.Launch("sauce", launchDate, endDate, 10, 4)
	e.putLaunch(l)
	v := e.open("sauce")
	ctx := context.Background()
	now := at(1_500_000)

	_, err := v.BuyTickets(ctx, now, 0)
	assert.ErrorIs(t, err, program.ErrTicketCount)
	_, err = v.BuyTickets(ctx, now, program.MaxTicketsPerPurchase+1)
	assert.ErrorIs(t, err, program.ErrTicketCount)
	_, err = v.BuyTickets(ctx, at(500_000), 1)
	assert.ErrorIs(t, err, ErrNotAvailable, "pre-launch")
	assert.Empty(t, e.chain.Sent(), "validation failures never reach the network")
	assert.Len(t, e.rec.Notices(), 3)

	res, err := v.BuyTickets(ctx, now, 3)
	require.NoError(t, err)
	assert.Equal(t, txn.StatusConfirmed, res.Status)
	require.Len(t, e.chain.Sent(), 1)

	// The program creates the join record; the push reaches the view.
	e.putJoin(layouttest.Join(e.signer.PublicKey(), l.GameID, 3, 0, 0))
	assert.Eventually(t, func() bool { return v.Join() != nil }, time.Second, time.Millisecond)
	assert.Equal(t, cook.StateActiveTickets, v.Snapshot(now).State)
	assert.Contains(t, e.rec.Notices(), events.MsgSuccess)
}

func TestLaunchVersionCheck(t *testing.T) {
	e := newEnv(t)
	l := layouttest.Launch("sauce", launchDate, endDate, 10, 9)
	l.NumInteractions = 5
	addr := e.putLaunch(l)
	v := e.open("sauce")

	// The last ticket sells right at the end: the push carries it, a
	// refresh served by a lagging node does not.
	sold := *l
	sold.TicketsSold = 10
	sold.NumInteractions = 6
	e.chain.Push(addr, layouttest.Encode(t, &sold))
	assert.Eventually(t, func() bool { return v.Launch().TicketsSold == 10 }, time.Second, time.Millisecond)

	require.NoError(t, v.Refresh(context.Background()))
	assert.Equal(t, uint32(10), v.Launch().TicketsSold)
	assert.Equal(t, cook.StateMintSucceededNoTickets, v.Snapshot(at(endDate)).State)
}

func TestUndecodableLaunchBecomesAbsent(t *testing.T) {
	e := newEnv(t)
	addr := e.putLaunch(layouttest.Launch("sauce", launchDate, endDate, 10, 4))
	v := e.open("sauce")

	e.chain.Push(addr, []byte{byte(layout.AccountLaunch), 1})
	assert.Eventually(t, func() bool { return v.Launch() == nil }, time.Second, time.Millisecond)
	assert.Equal(t, cook.StatePreLaunch, v.Snapshot(at(1_500_000)).State)
}

func TestDoDispatch(t *testing.T) {
	tests := []struct {
		name    string
		sold    uint32
		lp      uint8
		join    func(user solana.PublicKey) *layout.JoinData
		now     int64
		action  string
		wantErr bool
	}{
		{
			name:   "tickets to check",
			sold:   10,
			join:   func(u solana.PublicKey) *layout.JoinData { return layouttest.Join(u, 7, 3, 1, 0) },
			now:    endDate,
			action: ActionCheckTickets,
		},
		{
			name:   "failed mint refunds",
			sold:   5,
			join:   func(u solana.PublicKey) *layout.JoinData { return layouttest.Join(u, 7, 3, 0, 0) },
			now:    endDate + 1,
			action: ActionRefundTickets,
		},
		{
			name:   "checked with liquidity claims",
			sold:   10,
			lp:     layout.LPStateDeployed,
			join:   func(u solana.PublicKey) *layout.JoinData { return layouttest.Join(u, 7, 3, 3, 1) },
			now:    endDate + 1,
			action: ActionClaimTokens,
		},
		{
			name: "checked after check-in window refunds",
			sold: 10,
			join: func(u solana.PublicKey) *layout.JoinData {
				j := layouttest.Join(u, 7, 3, 3, 1)
				j.TicketStatus = layout.TicketStatusClaimed
				return j
			},
			now:    endDate + cook.DefaultCheckInTimeout.Milliseconds(),
			action: ActionRefundTickets,
		},
		{
			name:    "nothing to do",
			sold:    10,
			now:     endDate + 1,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			l := layouttest.Launch("sauce", launchDate, endDate, 10, tt.sold)
			l.Flags[layout.LaunchFlagLPState] = tt.lp
			e.putLaunch(l)
			if tt.join != nil {
				e.putJoin(tt.join(e.signer.PublicKey()))
			}
			v := e.open("sauce")

			res, err := v.Do(context.Background(), at(tt.now), 1)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNotAvailable)
				assert.Empty(t, e.chain.Sent())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, txn.StatusConfirmed, res.Status)
			key := txn.Key{Action: tt.action, Page: "sauce", Owner: e.signer.PublicKey()}
			assert.Equal(t, txn.StatusConfirmed, e.deps.Assembler.Tracker().Status(key))
		})
	}
}

func TestBuild(t *testing.T) {
	l := layouttest.Launch("sauce", 100, 200, 10, 10)
	s := Build("sauce", at(250), l, nil, cook.DefaultCheckInTimeout)
	assert.Equal(t, cook.StateMintSucceededNoTickets, s.State)
	assert.Equal(t, "Cooked Out!", s.Header)
	assert.Equal(t, cook.ActionNone, s.Action)
	assert.NotEmpty(t, s.Distribution)

	empty := Build("nope", at(250), nil, nil, cook.DefaultCheckInTimeout)
	assert.Equal(t, cook.StatePreLaunch, empty.State)
	assert.Empty(t, empty.Header)
}
