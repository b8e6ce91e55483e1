package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/letscook/internal/blockchain/chaintest"
)

func testConfig() Config {
	return Config{ResubscribeInitial: time.Millisecond, ResubscribeMax: 5 * time.Millisecond}
}

func newPoller(t *testing.T, chain *chaintest.Chain) *Poller {
	t.Helper()
	p := New(chain, chain, testConfig(), zaptest.NewLogger(t))
	t.Cleanup(p.Close)
	return p
}

func value(c *Cell[counter]) int {
	if v := c.Get(); v != nil {
		return v.N
	}
	return -1
}

func TestWatchReadsThenFollowsPushes(t *testing.T) {
	chain := chaintest.New()
	addr := solana.NewWallet().PublicKey()
	chain.SetAccount(addr, solana.PublicKey{}, 1, []byte{1})

	p := newPoller(t, chain)
	cell := NewCell("counter", decodeCounter, WithNewer(increasing))
	require.NoError(t, p.Watch(context.Background(), addr, cell))

	assert.Equal(t, 1, value(cell))
	assert.Equal(t, 1, chain.Subscribes())

	chain.SetAccount(addr, solana.PublicKey{}, 1, []byte{4})
	assert.Eventually(t, func() bool { return value(cell) == 4 }, time.Second, time.Millisecond)

	// A stale push does not overwrite a newer snapshot.
	chain.Push(addr, []byte{2})
	chain.Push(addr, []byte{6})
	assert.Eventually(t, func() bool { return value(cell) == 6 }, time.Second, time.Millisecond)
}

func TestWatchMissingAccount(t *testing.T) {
	chain := chaintest.New()
	addr := solana.NewWallet().PublicKey()

	p := newPoller(t, chain)
	cell := NewCell("counter", decodeCounter)
	require.NoError(t, p.Watch(context.Background(), addr, cell))
	assert.Nil(t, cell.Get())

	chain.SetAccount(addr, solana.PublicKey{}, 1, []byte{3})
	assert.Eventually(t, func() bool { return value(cell) == 3 }, time.Second, time.Millisecond)
}

func TestWatchOncePerAddress(t *testing.T) {
	chain := chaintest.New()
	addr := solana.NewWallet().PublicKey()
	p := newPoller(t, chain)

	require.NoError(t, p.Watch(context.Background(), addr, NewCell("counter", decodeCounter)))
	err := p.Watch(context.Background(), addr, NewCell("counter", decodeCounter))
	assert.ErrorIs(t, err, ErrAlreadyWatched)
	assert.Equal(t, 1, chain.Subscribes())
	assert.True(t, p.Watching(addr))
}

func TestWatchReadError(t *testing.T) {
	chain := chaintest.New()
	chain.ReadErr = errors.New("rpc down")
	addr := solana.NewWallet().PublicKey()
	p := newPoller(t, chain)

	err := p.Watch(context.Background(), addr, NewCell("counter", decodeCounter))
	assert.ErrorContains(t, err, "rpc down")
	assert.False(t, p.Watching(addr))
	assert.Zero(t, chain.OpenSubscriptions())
}

func TestRefreshUsesVersionCheck(t *testing.T) {
	chain := chaintest.New()
	addr := solana.NewWallet().PublicKey()
	chain.SetAccount(addr, solana.PublicKey{}, 1, []byte{1})

	p := newPoller(t, chain)
	cell := NewCell("counter", decodeCounter, WithNewer(increasing))
	require.NoError(t, p.Watch(context.Background(), addr, cell))

	// The push arrives before the stored account catches up.
	chain.Push(addr, []byte{5})
	assert.Eventually(t, func() bool { return value(cell) == 5 }, time.Second, time.Millisecond)

	chain.Store(addr, []byte{3})
	require.NoError(t, p.Refresh(context.Background(), addr))
	assert.Equal(t, 5, value(cell))

	chain.Store(addr, []byte{7})
	require.NoError(t, p.Refresh(context.Background(), addr))
	assert.Equal(t, 7, value(cell))

	assert.ErrorIs(t, p.Refresh(context.Background(), solana.NewWallet().PublicKey()), ErrNotWatched)
}

func TestResubscribeAfterDrop(t *testing.T) {
	chain := chaintest.New()
	addr := solana.NewWallet().PublicKey()
	chain.SetAccount(addr, solana.PublicKey{}, 1, []byte{1})

	p := newPoller(t, chain)
	cell := NewCell("counter", decodeCounter)
	require.NoError(t, p.Watch(context.Background(), addr, cell))

	// Changed while disconnected, caught up by the read after resubscribing.
	chain.Store(addr, []byte{8})
	chain.Drop()

	assert.Eventually(t, func() bool { return chain.OpenSubscriptions() == 1 }, time.Second, time.Millisecond)
	assert.Eventually(t, func() bool { return value(cell) == 8 }, time.Second, time.Millisecond)
	assert.Equal(t, 2, chain.Subscribes())

	chain.SetAccount(addr, solana.PublicKey{}, 1, []byte{9})
	assert.Eventually(t, func() bool { return value(cell) == 9 }, time.Second, time.Millisecond)
}

func TestCloseCancelsEverything(t *testing.T) {
	chain := chaintest.New()
	p := New(chain, chain, testConfig(), zaptest.NewLogger(t))

	cells := make([]*Cell[counter], 3)
	addrs := make([]solana.PublicKey, 3)
	for i := range cells {
		addrs[i] = solana.NewWallet().PublicKey()
		chain.SetAccount(addrs[i], solana.PublicKey{}, 1, []byte{1})
		cells[i] = NewCell("counter", decodeCounter)
		require.NoError(t, p.Watch(context.Background(), addrs[i], cells[i]))
	}
	assert.Equal(t, 3, chain.OpenSubscriptions())

	p.Close()
	assert.Zero(t, chain.OpenSubscriptions())

	chain.SetAccount(addrs[0], solana.PublicKey{}, 1, []byte{2})
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, value(cells[0]), "no updates after close")

	err := p.Watch(context.Background(), solana.NewWallet().PublicKey(), NewCell("counter", decodeCounter))
	assert.ErrorIs(t, err, ErrClosed)
	p.Close()
}

func TestUnwatch(t *testing.T) {
	chain := chaintest.New()
	addr := solana.NewWallet().PublicKey()
	p := newPoller(t, chain)

	require.NoError(t, p.Watch(context.Background(), addr, NewCell("counter", decodeCounter)))
	p.Unwatch(addr)
	assert.Eventually(t, func() bool { return chain.OpenSubscriptions() == 0 }, time.Second, time.Millisecond)
	assert.False(t, p.Watching(addr))
}
