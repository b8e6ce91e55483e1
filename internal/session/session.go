// Package session holds everything one run of the client shares: config,
// logger, chain access, wallet, bus, store and metrics. Views are opened
// through it instead of through package globals.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/letscook/internal/api"
	"github.com/rovshanmuradov/letscook/internal/blockchain"
	"github.com/rovshanmuradov/letscook/internal/blockchain/solbc"
	"github.com/rovshanmuradov/letscook/internal/collection"
	"github.com/rovshanmuradov/letscook/internal/config"
	"github.com/rovshanmuradov/letscook/internal/events"
	"github.com/rovshanmuradov/letscook/internal/form"
	"github.com/rovshanmuradov/letscook/internal/launch"
	"github.com/rovshanmuradov/letscook/internal/logger"
	"github.com/rovshanmuradov/letscook/internal/market"
	"github.com/rovshanmuradov/letscook/internal/metrics"
	"github.com/rovshanmuradov/letscook/internal/poller"
	"github.com/rovshanmuradov/letscook/internal/program"
	"github.com/rovshanmuradov/letscook/internal/storage"
	"github.com/rovshanmuradov/letscook/internal/storage/models"
	"github.com/rovshanmuradov/letscook/internal/storage/postgres"
	"github.com/rovshanmuradov/letscook/internal/txn"
	"github.com/rovshanmuradov/letscook/internal/wallet"
)

const busBufferSize = 256

// Parts are the pieces a session does not build itself. Open fills them
// from the config; tests pass in-memory ones to New.
type Parts struct {
	Client   blockchain.Client
	Feed     blockchain.Feed
	Store    storage.Storage
	Registry *prometheus.Registry
}

// Session is one configured client.
type Session struct {
	Config    *config.Config
	Logger    *logger.Logger
	Client    blockchain.Client
	Feed      blockchain.Feed
	Wallet    *wallet.Wallet
	Bus       *events.Bus
	Store     storage.Storage
	Registry  *prometheus.Registry
	Metrics   *metrics.Collector
	Addresses program.Addresses
	Assembler *txn.Assembler
	Birdeye   *market.Birdeye
	Draft     *form.Draft
}

// Open builds a session from cfg: RPC client over rpc_list, WebSocket feed,
// Postgres store when postgres_url is set and the in-memory store otherwise.
func Open(cfg *config.Config, log *logger.Logger) (*Session, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewCollector(reg)

	client, err := solbc.NewClient(cfg.RPCList, log.Logger, solbc.WithMetrics(m))
	if err != nil {
		return nil, err
	}
	parts := Parts{
		Client:   client,
		Feed:     solbc.NewFeed(cfg.WebSocketURL, log.Logger, m),
		Registry: reg,
	}
	if cfg.PostgresURL != "" {
		store, err := postgres.NewStorage(cfg.PostgresURL, log.Logger, cfg.DebugLogging)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		if err := store.RunMigrations(); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("migrate store: %w", err)
		}
		parts.Store = store
	}
	return newSession(cfg, log, parts, m)
}

// New builds a session around parts.
func New(cfg *config.Config, log *logger.Logger, parts Parts) (*Session, error) {
	if parts.Registry == nil {
		parts.Registry = prometheus.NewRegistry()
	}
	return newSession(cfg, log, parts, metrics.NewCollector(parts.Registry))
}

func newSession(cfg *config.Config, log *logger.Logger, parts Parts, m *metrics.Collector) (*Session, error) {
	addrs, err := cfg.Addresses()
	if err != nil {
		return nil, err
	}
	if parts.Store == nil {
		parts.Store = storage.NewMemory()
	}
	s := &Session{
		Config:    cfg,
		Logger:    log,
		Client:    parts.Client,
		Feed:      parts.Feed,
		Bus:       events.NewBus(log.Logger, busBufferSize),
		Store:     parts.Store,
		Registry:  parts.Registry,
		Metrics:   m,
		Addresses: addrs,
	}

	var signer wallet.Signer
	if cfg.Keypair != "" {
		s.Wallet, err = wallet.NewWallet(cfg.Keypair)
		if err != nil {
			return nil, fmt.Errorf("load keypair: %w", err)
		}
		signer = s.Wallet
	}
	s.Assembler = txn.New(s.Client, s.Feed, signer, s.TxConfig(), log.Logger,
		txn.WithBus(s.Bus), txn.WithStore(s.Store), txn.WithMetrics(m))

	if cfg.BirdeyeEnabled {
		s.Birdeye = market.NewBirdeye(cfg.BirdeyeAPIKey, log.Logger, market.WithBirdeyeMetrics(m))
	}

	log.Info("Session ready",
		zap.Int("rpc_nodes", len(cfg.RPCList)),
		zap.String("program", addrs.Program.String()),
		zap.Bool("wallet", s.Wallet != nil),
		zap.Bool("postgres", cfg.PostgresURL != ""),
		zap.Bool("birdeye", s.Birdeye != nil))
	return s, nil
}

// TxConfig maps the configured submission settings.
func (s *Session) TxConfig() txn.Config {
	return txn.Config{
		Timeout:      s.Config.TxTimeout(),
		ComputeUnits: s.Config.ComputeUnits,
		FeeMin:       s.Config.PriorityFeeMin,
		FeeMax:       s.Config.PriorityFeeMax,
	}
}

// LoadDraft reads a launch draft into the session.
func (s *Session) LoadDraft(path string) (*form.Draft, error) {
	d, err := form.LoadDraft(path)
	if err != nil {
		return nil, err
	}
	s.Draft = d
	return d, nil
}

// ValidateDraft checks the loaded draft against the chain.
func (s *Session) ValidateDraft(ctx context.Context) error {
	if s.Draft == nil {
		return errors.New("no launch draft loaded")
	}
	return form.NewValidator(s.Client, s.Addresses, s.Bus, s.Logger.Logger).Validate(ctx, s.Draft)
}

// Directory returns a launch directory reader.
func (s *Session) Directory() *launch.Directory {
	return launch.NewDirectory(s.Client, s.Addresses, s.Config.CheckInTimeout(), s.Metrics, s.Logger.Logger)
}

// Owner is the connected wallet's key or the zero key.
func (s *Session) Owner() solana.PublicKey {
	if s.Wallet == nil {
		return solana.PublicKey{}
	}
	return s.Wallet.PublicKey()
}

// OpenLaunch opens a launch page.
func (s *Session) OpenLaunch(ctx context.Context, page string) (*launch.View, error) {
	return launch.Open(ctx, page, launch.Deps{
		Reader:    s.Client,
		Feed:      s.Feed,
		Assembler: s.Assembler,
		Addresses: s.Addresses,
		Bus:       s.Bus,
		Metrics:   s.Metrics,
		Logger:    s.Logger.Logger,
	}, launch.Config{CheckIn: s.Config.CheckInTimeout(), Poller: poller.DefaultConfig()})
}

// OpenMarket opens the trade page of a launched token.
func (s *Session) OpenMarket(ctx context.Context, page string) (*market.View, error) {
	return market.Open(ctx, page, market.Deps{
		Reader:    s.Client,
		Feed:      s.Feed,
		Assembler: s.Assembler,
		Addresses: s.Addresses,
		Bus:       s.Bus,
		Store:     s.Store,
		Birdeye:   s.Birdeye,
		Metrics:   s.Metrics,
		Logger:    s.Logger.Logger,
	}, market.Config{Poller: poller.DefaultConfig()})
}

// OpenCollection opens a hybrid collection page.
func (s *Session) OpenCollection(ctx context.Context, page string) (*collection.View, error) {
	return collection.Open(ctx, page, collection.Deps{
		Reader:    s.Client,
		Feed:      s.Feed,
		Assembler: s.Assembler,
		Addresses: s.Addresses,
		Bus:       s.Bus,
		Metrics:   s.Metrics,
		Logger:    s.Logger.Logger,
	}, poller.DefaultConfig())
}

// Candles opens page's market long enough to read its candles.
func (s *Session) Candles(ctx context.Context, page string) ([]market.Candle, error) {
	v, err := s.OpenMarket(ctx, page)
	if err != nil {
		return nil, err
	}
	defer v.Close()
	return v.Candles(), nil
}

// History returns the connected wallet's most recent actions, newest first.
func (s *Session) History(ctx context.Context, limit int) ([]*models.Action, error) {
	if s.Wallet == nil {
		return nil, wallet.ErrNotConnected
	}
	return s.Store.ListActions(ctx, s.Owner().String(), limit, 0)
}

// Server builds the HTTP API over this session.
func (s *Session) Server() *api.Server {
	refresh := s.Config.RefreshCron
	if refresh == "" {
		refresh = config.DefaultRefreshCron
	}
	return api.New(api.Config{
		ListenAddr:   s.Config.ListenAddr,
		RefreshSpec:  refresh,
		HomepageOnly: s.Config.HomepageOnly,
		CheckIn:      s.Config.CheckInTimeout(),
	}, s.Directory(), s.Logger.Logger,
		api.WithCandles(s.Candles),
		api.WithGatherer(s.Registry),
		api.WithBus(s.Bus))
}

// Close shuts the bus down and releases the feed and the store.
func (s *Session) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var errs []error
	if err := s.Bus.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if c, ok := s.Feed.(interface{ Close() }); ok {
		c.Close()
	}
	if err := s.Store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
