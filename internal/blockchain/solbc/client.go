// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/letscook/internal/blockchain"
	"github.com/rovshanmuradov/letscook/internal/metrics"
)

// ErrNoRPCNodes возникает, когда список RPC пуст.
var ErrNoRPCNodes = errors.New("no RPC nodes configured")

// Client – тонкий адаптер над solana-go RPC. Запросы идут на текущий узел;
// после ошибки следующий запрос уходит на следующий узел списка. Сам
// запрос не повторяется.
type Client struct {
	nodes      []*rpc.Client
	urls       []string
	current    int
	mu         sync.Mutex
	commitment rpc.CommitmentType
	metrics    *metrics.Collector
	logger     *zap.Logger
}

// Option настраивает Client.
type Option func(*Client)

// WithMetrics подключает сбор метрик RPC.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) { c.metrics = m }
}

// WithCommitment задает уровень commitment для чтений.
func WithCommitment(commitment rpc.CommitmentType) Option {
	return func(c *Client) { c.commitment = commitment }
}

// NewClient создаёт новый клиент, принимая список RPC URL и логгер через dependency injection.
func NewClient(urls []string, logger *zap.Logger, opts ...Option) (*Client, error) {
	if len(urls) == 0 {
		return nil, ErrNoRPCNodes
	}
	nodes := make([]*rpc.Client, len(urls))
	for i, u := range urls {
		nodes[i] = rpc.New(u)
	}
	c := &Client{
		nodes:      nodes,
		urls:       urls,
		commitment: rpc.CommitmentConfirmed,
		logger:     logger.Named("solbc-client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) node() (*rpc.Client, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nodes[c.current], c.urls[c.current]
}

func (c *Client) rotate(failed string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.urls[c.current] == failed && len(c.nodes) > 1 {
		c.current = (c.current + 1) % len(c.nodes)
	}
}

// call выполняет один запрос, пишет метрики и оборачивает ошибку.
func (c *Client) call(method string, fn func(node *rpc.Client) error) error {
	node, endpoint := c.node()
	start := time.Now()
	err := fn(node)
	c.metrics.ObserveRPC(method, time.Since(start), err)
	if err == nil {
		return nil
	}
	if errors.Is(err, rpc.ErrNotFound) {
		return blockchain.ErrAccountNotFound
	}
	c.rotate(endpoint)
	c.logger.Debug("RPC call failed",
		zap.String("method", method),
		zap.String("endpoint", endpoint),
		zap.Error(err))
	return NewError(err, endpoint, method)
}

func toAccount(address solana.PublicKey, acc *rpc.Account, slot uint64) *blockchain.Account {
	if acc == nil {
		return nil
	}
	out := &blockchain.Account{
		Address:  address,
		Owner:    acc.Owner,
		Lamports: acc.Lamports,
		Slot:     slot,
	}
	if acc.Data != nil {
		out.Data = acc.Data.GetBinary()
	}
	return out
}

// GetAccount получает аккаунт. Отсутствующий аккаунт возвращает
// blockchain.ErrAccountNotFound.
func (c *Client) GetAccount(ctx context.Context, address solana.PublicKey) (*blockchain.Account, error) {
	var res *rpc.GetAccountInfoResult
	err := c.call("getAccountInfo", func(node *rpc.Client) error {
		var err error
		res, err = node.GetAccountInfoWithOpts(ctx, address, &rpc.GetAccountInfoOpts{
			Commitment: c.commitment,
			Encoding:   solana.EncodingBase64,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, blockchain.ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: %s", blockchain.ErrAccountNotFound, address)
		}
		return nil, err
	}
	if res == nil || res.Value == nil {
		return nil, fmt.Errorf("%w: %s", blockchain.ErrAccountNotFound, address)
	}
	return toAccount(address, res.Value, res.Context.Slot), nil
}

// GetMultipleAccounts получает информацию о нескольких аккаунтах за один запрос.
// Порядок сохраняется, отсутствующие аккаунты возвращаются как nil.
func (c *Client) GetMultipleAccounts(ctx context.Context, addresses []solana.PublicKey) ([]*blockchain.Account, error) {
	if len(addresses) == 0 {
		return nil, nil
	}
	var res *rpc.GetMultipleAccountsResult
	err := c.call("getMultipleAccounts", func(node *rpc.Client) error {
		var err error
		res, err = node.GetMultipleAccountsWithOpts(ctx, addresses, &rpc.GetMultipleAccountsOpts{
			Commitment: c.commitment,
			Encoding:   solana.EncodingBase64,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]*blockchain.Account, len(addresses))
	for i := range addresses {
		if i < len(res.Value) {
			out[i] = toAccount(addresses[i], res.Value[i], res.Context.Slot)
		}
	}
	return out, nil
}

// GetProgramAccounts получает все аккаунты программы с memcmp-фильтрами.
func (c *Client) GetProgramAccounts(
	ctx context.Context,
	program solana.PublicKey,
	filters ...blockchain.Filter,
) ([]*blockchain.Account, error) {
	opts := rpc.GetProgramAccountsOpts{
		Commitment: c.commitment,
		Encoding:   solana.EncodingBase64,
	}
	for _, f := range filters {
		opts.Filters = append(opts.Filters, rpc.RPCFilter{
			Memcmp: &rpc.RPCFilterMemcmp{
				Offset: f.Offset,
				Bytes:  f.Bytes,
			},
		})
	}

	var res rpc.GetProgramAccountsResult
	err := c.call("getProgramAccounts", func(node *rpc.Client) error {
		var err error
		res, err = node.GetProgramAccountsWithOpts(ctx, program, &opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]*blockchain.Account, 0, len(res))
	for _, keyed := range res {
		if keyed == nil {
			continue
		}
		out = append(out, toAccount(keyed.Pubkey, keyed.Account, 0))
	}
	return out, nil
}

// GetBalance получает баланс аккаунта в лампортах.
func (c *Client) GetBalance(ctx context.Context, address solana.PublicKey) (uint64, error) {
	var res *rpc.GetBalanceResult
	err := c.call("getBalance", func(node *rpc.Client) error {
		var err error
		res, err = node.GetBalance(ctx, address, c.commitment)
		return err
	})
	if err != nil {
		return 0, err
	}
	return res.Value, nil
}

// GetLatestBlockhash получает последний blockhash.
func (c *Client) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	var res *rpc.GetLatestBlockhashResult
	err := c.call("getLatestBlockhash", func(node *rpc.Client) error {
		var err error
		res, err = node.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
		return err
	})
	if err != nil {
		return solana.Hash{}, err
	}
	return res.Value.Blockhash, nil
}

// SendTransaction отправляет подписанную транзакцию.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	var sig solana.Signature
	err := c.call("sendTransaction", func(node *rpc.Client) error {
		var err error
		sig, err = node.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
			PreflightCommitment: c.commitment,
		})
		return err
	})
	if err != nil {
		err = analyzeSendError(err)
		var sim *SimulationError
		if errors.As(err, &sim) {
			c.logger.Warn("Transaction rejected in preflight",
				zap.Error(err),
				zap.Strings("logs", sim.Logs))
		} else {
			c.logger.Error("SendTransaction error", zap.Error(err))
		}
		return solana.Signature{}, err
	}
	return sig, nil
}

// RecentPrioritizationFees возвращает цены за compute unit из последних слотов.
func (c *Client) RecentPrioritizationFees(ctx context.Context, accounts []solana.PublicKey) ([]uint64, error) {
	var res []rpc.PriorizationFeeResult
	err := c.call("getRecentPrioritizationFees", func(node *rpc.Client) error {
		var err error
		res, err = node.GetRecentPrioritizationFees(ctx, solana.PublicKeySlice(accounts))
		return err
	})
	if err != nil {
		return nil, err
	}
	fees := make([]uint64, 0, len(res))
	for _, r := range res {
		fees = append(fees, r.PrioritizationFee)
	}
	return fees, nil
}

// Гарантируем, что Client реализует интерфейс blockchain.Client.
var _ blockchain.Client = (*Client)(nil)
