// internal/blockchain/solbc/feed.go
package solbc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/letscook/internal/blockchain"
	"github.com/rovshanmuradov/letscook/internal/metrics"
)

// ErrSubscriptionClosed возникает, когда подписка закрыта или соединение потеряно.
var ErrSubscriptionClosed = ws.ErrSubscriptionClosed

// Feed держит одно WebSocket-соединение и открывает на нём подписки.
// Соединение создаётся лениво и пересоздаётся после ошибки подписки.
type Feed struct {
	url     string
	mu      sync.Mutex
	conn    *ws.Client
	metrics *metrics.Collector
	logger  *zap.Logger
}

// NewFeed создаёт фид для WebSocket URL.
func NewFeed(url string, logger *zap.Logger, m *metrics.Collector) *Feed {
	return &Feed{
		url:     url,
		metrics: m,
		logger:  logger.Named("solbc-feed"),
	}
}

func (f *Feed) client(ctx context.Context) (*ws.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn != nil {
		return f.conn, nil
	}
	conn, err := ws.Connect(ctx, f.url)
	if err != nil {
		return nil, NewError(err, f.url, "connect")
	}
	f.logger.Debug("WebSocket connected", zap.String("url", f.url))
	f.conn = conn
	return conn, nil
}

// drop закрывает соединение, если оно всё ещё текущее.
func (f *Feed) drop(conn *ws.Client) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn == conn && conn != nil {
		f.conn.Close()
		f.conn = nil
	}
}

// SubscribeAccount открывает подписку на изменения аккаунта.
func (f *Feed) SubscribeAccount(ctx context.Context, address solana.PublicKey) (blockchain.AccountSubscription, error) {
	conn, err := f.client(ctx)
	if err != nil {
		return nil, err
	}
	sub, err := conn.AccountSubscribeWithOpts(address, rpc.CommitmentConfirmed, solana.EncodingBase64)
	if err != nil {
		f.drop(conn)
		return nil, NewError(err, f.url, "accountSubscribe")
	}
	f.metrics.SubscriptionOpened("account")
	return &accountSubscription{
		address: address,
		sub:     sub,
		onClose: func() { f.metrics.SubscriptionClosed("account") },
	}, nil
}

// SubscribeSignature открывает подписку на подтверждение подписи.
func (f *Feed) SubscribeSignature(ctx context.Context, sig solana.Signature) (blockchain.SignatureSubscription, error) {
	conn, err := f.client(ctx)
	if err != nil {
		return nil, err
	}
	sub, err := conn.SignatureSubscribe(sig, rpc.CommitmentConfirmed)
	if err != nil {
		f.drop(conn)
		return nil, NewError(err, f.url, "signatureSubscribe")
	}
	f.metrics.SubscriptionOpened("signature")
	return &signatureSubscription{
		sub:     sub,
		onClose: func() { f.metrics.SubscriptionClosed("signature") },
	}, nil
}

// Close закрывает соединение и все его подписки.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn != nil {
		f.conn.Close()
		f.conn = nil
	}
}

type accountSubscription struct {
	address solana.PublicKey
	sub     *ws.AccountSubscription
	once    sync.Once
	onClose func()
}

func (s *accountSubscription) Recv(ctx context.Context) (*blockchain.Account, error) {
	res, err := s.sub.Recv(ctx)
	if err != nil {
		if errors.Is(err, ws.ErrSubscriptionClosed) {
			return nil, ErrSubscriptionClosed
		}
		return nil, fmt.Errorf("account %s: %w", s.address, err)
	}
	acc := res.Value.Account
	return toAccount(s.address, &acc, res.Context.Slot), nil
}

func (s *accountSubscription) Close() {
	s.once.Do(func() {
		s.sub.Unsubscribe()
		s.onClose()
	})
}

type signatureSubscription struct {
	sub     *ws.SignatureSubscription
	once    sync.Once
	onClose func()
}

func (s *signatureSubscription) Recv(ctx context.Context) (*blockchain.SignatureStatus, error) {
	res, err := s.sub.Recv(ctx)
	if err != nil {
		if errors.Is(err, ws.ErrSubscriptionClosed) {
			return nil, ErrSubscriptionClosed
		}
		return nil, err
	}
	return &blockchain.SignatureStatus{Slot: res.Context.Slot, Err: res.Value.Err}, nil
}

func (s *signatureSubscription) Close() {
	s.once.Do(func() {
		s.sub.Unsubscribe()
		s.onClose()
	})
}

var _ blockchain.Feed = (*Feed)(nil)
