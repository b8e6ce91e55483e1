package collection

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/letscook/internal/blockchain/chaintest"
	"github.com/rovshanmuradov/letscook/internal/events"
	"github.com/rovshanmuradov/letscook/internal/events/eventstest"
	"github.com/rovshanmuradov/letscook/internal/layout"
	"github.com/rovshanmuradov/letscook/internal/layout/layouttest"
	"github.com/rovshanmuradov/letscook/internal/poller"
	"github.com/rovshanmuradov/letscook/internal/program"
	"github.com/rovshanmuradov/letscook/internal/txn"
	"github.com/rovshanmuradov/letscook/internal/wallet"
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
	e.deps = Deps{
		Reader: e.chain,
		Feed:   e.chain,
		Assembler: txn.New(e.chain, e.chain, e.signer, txn.Config{Timeout: time.Second, FeeMin: 1_000, FeeMax: 100_000}, logger,
			txn.WithBus(e.rec)),
		Addresses: e.addrs,
		Bus:       e.rec,
		Logger:    logger,
	}
	return e
}

func (e *env) putCollection(c *layout.CollectionData) {
	addr, err := e.addrs.Collection(c.PageName)
	require.NoError(e.t, err)
	e.chain.SetAccount(addr, e.addrs.Program, 1, layouttest.Encode(e.t, c))
}

func (e *env) putAssignment(c *layout.CollectionData, a *layout.AssignmentData) {
	addr, err := e.addrs.Assignment(e.signer.PublicKey(), c.Key(layout.CollectionKeyCollectionMint))
	require.NoError(e.t, err)
	e.chain.SetAccount(addr, e.addrs.Program, 1, layouttest.Encode(e.t, a))
}

func (e *env) open() *View {
	v, err := Open(context.Background(), "chefs", e.deps, poller.Config{ResubscribeInitial: time.Millisecond, ResubscribeMax: 5 * time.Millisecond})
	require.NoError(e.t, err)
	e.t.Cleanup(v.Close)
	return v
}

// sentInstruction returns the program instruction tag of the n-th sent transaction.
func (e *env) sentInstruction(n int) program.Instruction {
	sent := e.chain.Sent()
	require.Greater(e.t, len(sent), n)
	ixs := sent[n].Message.Instructions
	require.NotEmpty(e.t, ixs)
	return program.Instruction(ixs[len(ixs)-1].Data[0])
}

func TestOpenMissingCollection(t *testing.T) {
	e := newEnv(t)
	_, err := Open(context.Background(), "chefs", e.deps, poller.Config{})
	assert.ErrorIs(t, err, ErrCollectionNotFound)
	assert.Zero(t, e.chain.OpenSubscriptions())
}

func TestAssignmentFollowsInteractions(t *testing.T) {
	e := newEnv(t)
	c := layouttest.Collection("chefs", 10, 5)
	e.putCollection(c)

	v := e.open()
	assert.Nil(t, v.Assignment(), "empty account reads as no assignment")
	assert.Equal(t, uint32(5), v.Collection().NumAvailable)

	e.putAssignment(c, layouttest.Assignment(0, 2))
	assert.Eventually(t, func() bool { return v.Assignment() != nil }, time.Second, 5*time.Millisecond)

	// Same interaction count: not newer, ignored.
	e.putAssignment(c, layouttest.Assignment(1, 2))
	require.NoError(t, v.Refresh(context.Background()))
	assert.Equal(t, uint8(0), v.Assignment().Status)

	e.putAssignment(c, layouttest.Assignment(1, 3))
	assert.Eventually(t, func() bool { return v.Assignment().Status == 1 }, time.Second, 5*time.Millisecond)
}

func TestClaimNFT(t *testing.T) {
	e := newEnv(t)
	c := layouttest.Collection("chefs", 10, 5)
	e.putCollection(c)
	v := e.open()

	res, err := v.ClaimNFT(context.Background())
	require.NoError(t, err)
	assert.Equal(t, txn.StatusConfirmed, res.Status)
	assert.Equal(t, program.InstructionClaimNFT, e.sentInstruction(0))
}

func TestClaimNFTMintsWhenAssigned(t *testing.T) {
	e := newEnv(t)
	c := layouttest.Collection("chefs", 10, 0)
	e.putCollection(c)
	e.putAssignment(c, layouttest.Assignment(1, 1))
	v := e.open()

	_, err := v.ClaimNFT(context.Background())
	require.NoError(t, err, "sold out does not block minting an assigned NFT")
	assert.Equal(t, program.InstructionMintNFT, e.sentInstruction(0))
}

func TestClaimNFTRejections(t *testing.T) {
	t.Run("sold out", func(t *testing.T) {
		e := newEnv(t)
		e.putCollection(layouttest.Collection("chefs", 10, 0))
		v := e.open()

		_, err := v.ClaimNFT(context.Background())
		assert.ErrorIs(t, err, ErrSoldOut)
		assert.Contains(t, e.rec.Notices(), MsgSoldOut)
		assert.Empty(t, e.chain.Sent())
	})

	t.Run("seller", func(t *testing.T) {
		e := newEnv(t)
		c := layouttest.Collection("chefs", 10, 5)
		c.Keys[layout.CollectionKeySeller] = e.signer.PublicKey()
		e.putCollection(c)
		v := e.open()

		_, err := v.ClaimNFT(context.Background())
		assert.ErrorIs(t, err, ErrSellerClaim)
		assert.Contains(t, e.rec.Notices(), MsgSellerClaim)
		assert.Empty(t, e.chain.Sent())
	})

	t.Run("no wallet", func(t *testing.T) {
		e := newEnv(t)
		e.deps.Assembler = nil
		e.putCollection(layouttest.Collection("chefs", 10, 5))
		v := e.open()

		_, err := v.ClaimNFT(context.Background())
		assert.ErrorIs(t, err, wallet.ErrNotConnected)
	})
}

func TestActionsAfterCollectionClosed(t *testing.T) {
	e := newEnv(t)
	c := layouttest.Collection("chefs", 10, 5)
	e.putCollection(c)
	e.putAssignment(c, layouttest.Assignment(1, 1))
	v := e.open()

	addr, err := e.addrs.Collection("chefs")
	require.NoError(t, err)
	e.chain.SetAccount(addr, e.addrs.Program, 0, nil)
	require.Eventually(t, func() bool { return v.Collection() == nil }, time.Second, 5*time.Millisecond)

	ctx := context.Background()
	asset := solana.NewWallet().PublicKey()
	calls := map[string]func() (*txn.Result, error){
		ActionMintNFT:   func() (*txn.Result, error) { return v.MintNFT(ctx) },
		ActionListNFT:   func() (*txn.Result, error) { return v.ListNFT(ctx, asset, 1_000) },
		ActionUnlistNFT: func() (*txn.Result, error) { return v.UnlistNFT(ctx, asset) },
		ActionBuyNFT:    func() (*txn.Result, error) { return v.BuyNFT(ctx, asset, solana.NewWallet().PublicKey()) },
	}
	for name, call := range calls {
		assert.NotPanics(t, func() {
			_, err := call()
			assert.ErrorIs(t, err, ErrCollectionNotFound, name)
		}, name)
	}
	assert.Empty(t, e.chain.Sent())
	assert.Contains(t, e.rec.Notices(), ErrCollectionNotFound.Error())

	// Without an assignment the claim path reads the collection itself.
	e.putAssignment(c, layouttest.Assignment(0, 2))
	require.Eventually(t, func() bool {
		a := v.Assignment()
		return a != nil && a.Status == 0
	}, time.Second, 5*time.Millisecond)
	assert.NotPanics(t, func() {
		_, err := v.ClaimNFT(ctx)
		assert.ErrorIs(t, err, ErrCollectionNotFound)
	})
	assert.Empty(t, e.chain.Sent())
}

func TestMintNFTWithoutAssignment(t *testing.T) {
	e := newEnv(t)
	e.putCollection(layouttest.Collection("chefs", 10, 5))
	v := e.open()

	_, err := v.MintNFT(context.Background())
	assert.ErrorIs(t, err, ErrNotAssigned)
	assert.Contains(t, e.rec.Notices(), MsgNotAssigned)
}

func TestMarketplace(t *testing.T) {
	e := newEnv(t)
	e.putCollection(layouttest.Collection("chefs", 10, 5))
	v := e.open()
	asset := solana.NewWallet().PublicKey()

	_, err := v.ListNFT(context.Background(), asset, 5_000_000)
	require.NoError(t, err)
	assert.Equal(t, program.InstructionListNFT, e.sentInstruction(0))

	_, err = v.UnlistNFT(context.Background(), asset)
	require.NoError(t, err)
	assert.Equal(t, program.InstructionUnlistNFT, e.sentInstruction(1))

	_, err = v.BuyNFT(context.Background(), asset, solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.Equal(t, program.InstructionBuyNFT, e.sentInstruction(2))

	_, err = v.ListNFT(context.Background(), asset, 0)
	assert.ErrorIs(t, err, program.ErrZeroAmount)
	_, err = v.BuyNFT(context.Background(), asset, e.signer.PublicKey())
	assert.ErrorIs(t, err, ErrOwnListing)
	assert.Len(t, e.chain.Sent(), 3)

	assert.NotEmpty(t, e.rec.Of(events.SnapshotUpdated))
}
