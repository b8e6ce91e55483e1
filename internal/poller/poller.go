// Package poller keeps decoded account snapshots current: one read when an
// address is first watched, then one change subscription for as long as the
// watch is open.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/letscook/internal/blockchain"
)

var (
	ErrAlreadyWatched = errors.New("address is already watched")
	ErrNotWatched     = errors.New("address is not watched")
	ErrClosed         = errors.New("poller is closed")
)

// Config настраивает переподписку после потери соединения.
type Config struct {
	ResubscribeInitial time.Duration
	ResubscribeMax     time.Duration
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{
		ResubscribeInitial: 500 * time.Millisecond,
		ResubscribeMax:     30 * time.Second,
	}
}

type watch struct {
	address solana.PublicKey
	sink    Sink
	cancel  context.CancelFunc
	ctx     context.Context
}

// Poller owns the subscriptions of one view. Closing it cancels all of them.
type Poller struct {
	reader blockchain.Reader
	feed   blockchain.Feed
	cfg    Config
	logger *zap.Logger

	mu      sync.Mutex
	watches map[solana.PublicKey]*watch
	closed  bool
	wg      sync.WaitGroup
}

// New создает поллер.
func New(reader blockchain.Reader, feed blockchain.Feed, cfg Config, logger *zap.Logger) *Poller {
	return &Poller{
		reader:  reader,
		feed:    feed,
		cfg:     cfg,
		logger:  logger.Named("poller"),
		watches: make(map[solana.PublicKey]*watch),
	}
}

// Watch reads address once into sink, then subscribes to its changes. A
// missing account is applied as absent. Read and subscribe errors are
// returned and leave nothing open.
func (p *Poller) Watch(ctx context.Context, address solana.PublicKey, sink Sink) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if _, ok := p.watches[address]; ok {
		p.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyWatched, address)
	}
	wctx, cancel := context.WithCancel(context.Background())
	w := &watch{address: address, sink: sink, cancel: cancel, ctx: wctx}
	p.watches[address] = w
	p.mu.Unlock()

	if err := p.read(ctx, w); err != nil {
		p.forget(w)
		return err
	}
	sub, err := p.feed.SubscribeAccount(ctx, address)
	if err != nil {
		p.forget(w)
		return fmt.Errorf("subscribe %s: %w", address, err)
	}

	p.wg.Add(1)
	go p.loop(w, sub)
	return nil
}

// Refresh re-reads address through the same sink. The sink decides whether
// the read is newer than what a push already delivered.
func (p *Poller) Refresh(ctx context.Context, address solana.PublicKey) error {
	p.mu.Lock()
	w, ok := p.watches[address]
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotWatched, address)
	}
	return p.read(ctx, w)
}

// Unwatch cancels the subscription of address.
func (p *Poller) Unwatch(address solana.PublicKey) {
	p.mu.Lock()
	w, ok := p.watches[address]
	if ok {
		delete(p.watches, address)
	}
	p.mu.Unlock()
	if ok {
		w.cancel()
	}
}

// Watching reports whether address has an open watch.
func (p *Poller) Watching(address solana.PublicKey) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.watches[address]
	return ok
}

// Close cancels every watch and waits for their loops to exit.
func (p *Poller) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	watches := p.watches
	p.watches = make(map[solana.PublicKey]*watch)
	p.mu.Unlock()

	for _, w := range watches {
		w.cancel()
	}
	p.wg.Wait()
}

func (p *Poller) forget(w *watch) {
	p.mu.Lock()
	if p.watches[w.address] == w {
		delete(p.watches, w.address)
	}
	p.mu.Unlock()
	w.cancel()
}

func (p *Poller) read(ctx context.Context, w *watch) error {
	acc, err := p.reader.GetAccount(ctx, w.address)
	if err != nil && !errors.Is(err, blockchain.ErrAccountNotFound) {
		return fmt.Errorf("read %s: %w", w.address, err)
	}
	// A late read for a closed watch is dropped.
	if w.ctx.Err() != nil {
		return nil
	}
	w.sink.Apply(acc)
	return nil
}

func (p *Poller) loop(w *watch, sub blockchain.AccountSubscription) {
	defer p.wg.Done()
	defer func() {
		if sub != nil {
			sub.Close()
		}
	}()

	for {
		acc, err := sub.Recv(w.ctx)
		if err == nil {
			if w.ctx.Err() == nil {
				w.sink.Apply(acc)
			}
			continue
		}
		if w.ctx.Err() != nil {
			return
		}

		p.logger.Warn("Subscription lost, resubscribing",
			zap.String("address", w.address.String()),
			zap.Error(err))
		sub.Close()
		sub = nil

		next, err := p.resubscribe(w)
		if err != nil {
			return
		}
		sub = next
	}
}

func (p *Poller) resubscribe(w *watch) (blockchain.AccountSubscription, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = p.cfg.ResubscribeInitial
	policy.MaxInterval = p.cfg.ResubscribeMax

	notify := func(err error, d time.Duration) {
		p.logger.Debug("Resubscribe failed",
			zap.String("address", w.address.String()),
			zap.Duration("backoff", d),
			zap.Error(err))
	}

	operation := func() (blockchain.AccountSubscription, error) {
		sub, err := p.feed.SubscribeAccount(w.ctx, w.address)
		if err != nil {
			return nil, err
		}
		// Catch up on changes missed while disconnected.
		if err := p.read(w.ctx, w); err != nil {
			p.logger.Debug("Catch-up read failed", zap.Error(err))
		}
		return sub, nil
	}

	return backoff.Retry(w.ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify))
}
