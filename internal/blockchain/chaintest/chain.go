// Package chaintest provides an in-memory chain for tests. It implements
// blockchain.Client and blockchain.Feed.
package chaintest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/letscook/internal/blockchain"
)

// ErrDropped is delivered to subscribers by Drop.
var ErrDropped = errors.New("connection dropped")

// Chain is an in-memory account store with push subscriptions.
type Chain struct {
	mu        sync.Mutex
	accounts  map[solana.PublicKey]*blockchain.Account
	subs      map[solana.PublicKey][]*accountSub
	sigSubs   map[solana.Signature][]*signatureSub
	confirmed map[solana.Signature]*blockchain.SignatureStatus
	slot      uint64

	sent      []*solana.Transaction
	reads     int
	subscribe int

	// Fees is returned by RecentPrioritizationFees.
	Fees []uint64
	// AutoConfirm confirms every sent transaction successfully.
	AutoConfirm bool
	// Injected failures.
	ReadErr      error
	SendErr      error
	SubscribeErr error
	BlockhashErr error
}

// New returns an empty chain.
func New() *Chain {
	return &Chain{
		accounts:  make(map[solana.PublicKey]*blockchain.Account),
		subs:      make(map[solana.PublicKey][]*accountSub),
		sigSubs:   make(map[solana.Signature][]*signatureSub),
		confirmed: make(map[solana.Signature]*blockchain.SignatureStatus),
	}
}

// SetAccount stores data at address and pushes it to subscribers.
func (c *Chain) SetAccount(address, owner solana.PublicKey, lamports uint64, data []byte) {
	c.mu.Lock()
	c.slot++
	acc := &blockchain.Account{
		Address:  address,
		Owner:    owner,
		Lamports: lamports,
		Data:     append([]byte(nil), data...),
		Slot:     c.slot,
	}
	c.accounts[address] = acc
	subs := append([]*accountSub(nil), c.subs[address]...)
	c.mu.Unlock()

	for _, s := range subs {
		s.push(acc)
	}
}

// Store writes data at address without notifying subscribers.
func (c *Chain) Store(address solana.PublicKey, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slot++
	c.accounts[address] = &blockchain.Account{Address: address, Data: append([]byte(nil), data...), Slot: c.slot}
}

// Push notifies subscribers with data without storing it.
func (c *Chain) Push(address solana.PublicKey, data []byte) {
	c.mu.Lock()
	c.slot++
	acc := &blockchain.Account{Address: address, Data: append([]byte(nil), data...), Slot: c.slot}
	subs := append([]*accountSub(nil), c.subs[address]...)
	c.mu.Unlock()
	for _, s := range subs {
		s.push(acc)
	}
}

// Drop fails every open account subscription, as a lost connection would.
func (c *Chain) Drop() {
	c.mu.Lock()
	var all []*accountSub
	for addr, subs := range c.subs {
		all = append(all, subs...)
		delete(c.subs, addr)
	}
	c.mu.Unlock()
	for _, s := range all {
		s.fail(ErrDropped)
	}
}

// Confirm delivers a status for sig. txErr nil means success.
func (c *Chain) Confirm(sig solana.Signature, txErr interface{}) {
	c.mu.Lock()
	status := &blockchain.SignatureStatus{Slot: c.slot, Err: txErr}
	c.confirmed[sig] = status
	subs := c.sigSubs[sig]
	delete(c.sigSubs, sig)
	c.mu.Unlock()
	for _, s := range subs {
		s.push(status)
	}
}

// Sent returns the transactions sent so far.
func (c *Chain) Sent() []*solana.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*solana.Transaction(nil), c.sent...)
}

// Reads returns how many account reads were served.
func (c *Chain) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

// Subscribes returns how many account subscriptions were opened.
func (c *Chain) Subscribes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscribe
}

// OpenSubscriptions returns the number of live account subscriptions.
func (c *Chain) OpenSubscriptions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, subs := range c.subs {
		n += len(subs)
	}
	return n
}

func (c *Chain) GetAccount(_ context.Context, address solana.PublicKey) (*blockchain.Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads++
	if c.ReadErr != nil {
		return nil, c.ReadErr
	}
	acc, ok := c.accounts[address]
	if !ok {
		return nil, fmt.Errorf("%w: %s", blockchain.ErrAccountNotFound, address)
	}
	cp := *acc
	return &cp, nil
}

func (c *Chain) GetMultipleAccounts(_ context.Context, addresses []solana.PublicKey) ([]*blockchain.Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads++
	if c.ReadErr != nil {
		return nil, c.ReadErr
	}
	out := make([]*blockchain.Account, len(addresses))
	for i, addr := range addresses {
		if acc, ok := c.accounts[addr]; ok {
			cp := *acc
			out[i] = &cp
		}
	}
	return out, nil
}

func (c *Chain) GetProgramAccounts(_ context.Context, _ solana.PublicKey, filters ...blockchain.Filter) ([]*blockchain.Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads++
	if c.ReadErr != nil {
		return nil, c.ReadErr
	}
	var out []*blockchain.Account
	for _, acc := range c.accounts {
		if matches(acc.Data, filters) {
			cp := *acc
			out = append(out, &cp)
		}
	}
	return out, nil
}

func matches(data []byte, filters []blockchain.Filter) bool {
	for _, f := range filters {
		end := f.Offset + uint64(len(f.Bytes))
		if uint64(len(data)) < end || !bytes.Equal(data[f.Offset:end], f.Bytes) {
			return false
		}
	}
	return true
}

func (c *Chain) GetBalance(_ context.Context, address solana.PublicKey) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ReadErr != nil {
		return 0, c.ReadErr
	}
	if acc, ok := c.accounts[address]; ok {
		return acc.Lamports, nil
	}
	return 0, nil
}

func (c *Chain) GetLatestBlockhash(context.Context) (solana.Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.BlockhashErr != nil {
		return solana.Hash{}, c.BlockhashErr
	}
	return solana.Hash{byte(c.slot), 1}, nil
}

func (c *Chain) SendTransaction(_ context.Context, tx *solana.Transaction) (solana.Signature, error) {
	c.mu.Lock()
	if c.SendErr != nil {
		c.mu.Unlock()
		return solana.Signature{}, c.SendErr
	}
	if len(tx.Signatures) == 0 {
		c.mu.Unlock()
		return solana.Signature{}, errors.New("transaction is not signed")
	}
	c.sent = append(c.sent, tx)
	sig := tx.Signatures[0]
	auto := c.AutoConfirm
	c.mu.Unlock()

	if auto {
		c.Confirm(sig, nil)
	}
	return sig, nil
}

func (c *Chain) RecentPrioritizationFees(context.Context, []solana.PublicKey) ([]uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ReadErr != nil {
		return nil, c.ReadErr
	}
	return append([]uint64(nil), c.Fees...), nil
}

func (c *Chain) SubscribeAccount(_ context.Context, address solana.PublicKey) (blockchain.AccountSubscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SubscribeErr != nil {
		return nil, c.SubscribeErr
	}
	c.subscribe++
	s := &accountSub{
		ch:   make(chan *blockchain.Account, 64),
		errc: make(chan error, 1),
	}
	s.close = func() { c.removeSub(address, s) }
	c.subs[address] = append(c.subs[address], s)
	return s, nil
}

func (c *Chain) removeSub(address solana.PublicKey, target *accountSub) {
	c.mu.Lock()
	defer c.mu.Unlock()
	subs := c.subs[address]
	for i, s := range subs {
		if s == target {
			c.subs[address] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(c.subs[address]) == 0 {
		delete(c.subs, address)
	}
}

func (c *Chain) SubscribeSignature(_ context.Context, sig solana.Signature) (blockchain.SignatureSubscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SubscribeErr != nil {
		return nil, c.SubscribeErr
	}
	s := &signatureSub{ch: make(chan *blockchain.SignatureStatus, 1)}
	if status, ok := c.confirmed[sig]; ok {
		s.push(status)
		return s, nil
	}
	c.sigSubs[sig] = append(c.sigSubs[sig], s)
	return s, nil
}

type accountSub struct {
	ch    chan *blockchain.Account
	errc  chan error
	once  sync.Once
	close func()
}

func (s *accountSub) push(acc *blockchain.Account) {
	cp := *acc
	select {
	case s.ch <- &cp:
	default:
	}
}

func (s *accountSub) fail(err error) {
	select {
	case s.errc <- err:
	default:
	}
}

func (s *accountSub) Recv(ctx context.Context) (*blockchain.Account, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case acc := <-s.ch:
		return acc, nil
	case err := <-s.errc:
		return nil, err
	}
}

func (s *accountSub) Close() {
	s.once.Do(s.close)
}

type signatureSub struct {
	ch chan *blockchain.SignatureStatus
}

func (s *signatureSub) push(status *blockchain.SignatureStatus) {
	select {
	case s.ch <- status:
	default:
	}
}

func (s *signatureSub) Recv(ctx context.Context) (*blockchain.SignatureStatus, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case status := <-s.ch:
		return status, nil
	}
}

func (s *signatureSub) Close() {}

var (
	_ blockchain.Client = (*Chain)(nil)
	_ blockchain.Feed   = (*Chain)(nil)
)
