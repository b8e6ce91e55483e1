// Package txn assembles, signs and submits program transactions and follows
// them to confirmation.
package txn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/letscook/internal/blockchain"
	"github.com/rovshanmuradov/letscook/internal/events"
	"github.com/rovshanmuradov/letscook/internal/metrics"
	"github.com/rovshanmuradov/letscook/internal/storage"
	"github.com/rovshanmuradov/letscook/internal/storage/models"
	"github.com/rovshanmuradov/letscook/internal/wallet"
)

var (
	ErrTimedOut = errors.New("transaction not confirmed in time")
	ErrRejected = errors.New("transaction rejected")
	ErrNoAction = errors.New("no instructions to submit")
)

// maxFeeAccounts is the RPC limit for prioritization fee lookups.
const maxFeeAccounts = 128

// Config задает параметры отправки транзакций.
type Config struct {
	Timeout      time.Duration
	ComputeUnits uint32
	FeeMin       uint64
	FeeMax       uint64
}

// Request is one logical action.
type Request struct {
	Action       string
	Page         string
	Instructions []solana.Instruction
	// OnConfirmed runs after a successful confirmation, typically to
	// re-read the accounts the action changed.
	OnConfirmed func(ctx context.Context)
}

// Result describes how a submission ended.
type Result struct {
	Signature   solana.Signature
	Status      Status
	PriorityFee uint64
	Elapsed     time.Duration
}

// Assembler submits requests for one signer.
type Assembler struct {
	client  blockchain.Sender
	feed    blockchain.Feed
	signer  wallet.Signer
	cfg     Config
	tracker *Tracker
	bus     events.Publisher
	store   storage.Storage
	metrics *metrics.Collector
	logger  *zap.Logger
}

// Option настраивает Assembler.
type Option func(*Assembler)

func WithBus(bus events.Publisher) Option { return func(a *Assembler) { a.bus = bus } }

func WithStore(store storage.Storage) Option { return func(a *Assembler) { a.store = store } }

func WithMetrics(m *metrics.Collector) Option { return func(a *Assembler) { a.metrics = m } }

// WithTracker shares a tracker between assemblers so pending actions are
// seen across views.
func WithTracker(t *Tracker) Option { return func(a *Assembler) { a.tracker = t } }

// New создает Assembler. signer may be nil when no wallet is connected.
func New(client blockchain.Sender, feed blockchain.Feed, signer wallet.Signer, cfg Config, logger *zap.Logger, opts ...Option) *Assembler {
	a := &Assembler{
		client: client,
		feed:   feed,
		signer: signer,
		cfg:    cfg,
		logger: logger.Named("txn"),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.tracker == nil {
		a.tracker = NewTracker()
	}
	return a
}

// Tracker returns the status tracker.
func (a *Assembler) Tracker() *Tracker { return a.tracker }

// Owner returns the signer key, or the zero key without a wallet.
func (a *Assembler) Owner() solana.PublicKey {
	if a.signer == nil {
		return solana.PublicKey{}
	}
	return a.signer.PublicKey()
}

// PriorityFee sizes the compute unit price from recent fees paid for the
// accounts the instructions write to.
func (a *Assembler) PriorityFee(ctx context.Context, instructions []solana.Instruction) uint64 {
	accounts := writableAccounts(instructions)
	if len(accounts) > maxFeeAccounts {
		accounts = accounts[:maxFeeAccounts]
	}
	recent, err := a.client.RecentPrioritizationFees(ctx, accounts)
	if err != nil {
		a.logger.Warn("Fee estimate unavailable, using minimum", zap.Error(err))
		return a.cfg.FeeMin
	}
	return EstimateFee(recent, a.cfg.FeeMin, a.cfg.FeeMax)
}

// Submit runs req through SIGNING, SUBMITTED and one of CONFIRMED, FAILED
// or TIMED_OUT. Every outcome is announced as a notice.
func (a *Assembler) Submit(ctx context.Context, req Request) (*Result, error) {
	if a.signer == nil {
		events.Notify(a.bus, events.NoticeError, req.Action, "Wallet not connected")
		return nil, wallet.ErrNotConnected
	}
	if len(req.Instructions) == 0 {
		return nil, ErrNoAction
	}

	key := Key{Action: req.Action, Page: req.Page, Owner: a.signer.PublicKey()}
	if err := a.tracker.Begin(key); err != nil {
		events.Notify(a.bus, events.NoticeInfo, req.Action, events.MsgPending)
		return nil, err
	}

	start := time.Now()
	res := &Result{Status: StatusSigning}
	log := a.logger.With(zap.String("action", req.Action), zap.String("page", req.Page))
	a.publish(ctx, key, res, nil)

	fail := func(err error) (*Result, error) {
		res.Status = StatusFailed
		res.Elapsed = time.Since(start)
		_ = a.tracker.Advance(key, StatusFailed)
		a.finish(ctx, key, req, res, err)
		events.Notify(a.bus, events.NoticeError, req.Action, events.MsgFailed)
		log.Error("Transaction failed", zap.Error(err))
		return res, err
	}

	res.PriorityFee = a.PriorityFee(ctx, req.Instructions)
	instructions := append(BudgetInstructions(a.cfg.ComputeUnits, res.PriorityFee), req.Instructions...)

	blockhash, err := a.client.GetLatestBlockhash(ctx)
	if err != nil {
		return fail(fmt.Errorf("failed to get blockhash: %w", err))
	}
	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(key.Owner))
	if err != nil {
		return fail(fmt.Errorf("failed to create transaction: %w", err))
	}
	if err := a.signer.SignTransaction(ctx, tx); err != nil {
		return fail(fmt.Errorf("%w: %v", ErrRejected, err))
	}
	res.Signature = tx.Signatures[0]
	log = log.With(zap.String("signature", res.Signature.String()))

	// Subscribe before sending so a fast confirmation is not missed.
	sub, err := a.feed.SubscribeSignature(ctx, res.Signature)
	if err != nil {
		return fail(fmt.Errorf("failed to subscribe to signature: %w", err))
	}
	defer sub.Close()

	if _, err := a.client.SendTransaction(ctx, tx); err != nil {
		return fail(fmt.Errorf("failed to send transaction: %w", err))
	}

	res.Status = StatusSubmitted
	_ = a.tracker.Advance(key, StatusSubmitted)
	a.publish(ctx, key, res, nil)
	a.record(ctx, key, req, res)
	events.Notify(a.bus, events.NoticeInfo, req.Action, events.MsgPending)
	log.Info("Transaction submitted", zap.Uint64("priority_fee", res.PriorityFee))

	waitCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()
	status, err := sub.Recv(waitCtx)
	res.Elapsed = time.Since(start)

	switch {
	case err != nil && ctx.Err() != nil:
		// The owner went away; the outcome is no longer reported.
		res.Status = StatusTimedOut
		_ = a.tracker.Advance(key, StatusTimedOut)
		a.finish(context.Background(), key, req, res, ctx.Err())
		return res, ctx.Err()

	case err != nil:
		res.Status = StatusTimedOut
		_ = a.tracker.Advance(key, StatusTimedOut)
		err = fmt.Errorf("%w after %s: %v", ErrTimedOut, a.cfg.Timeout, err)
		a.finish(ctx, key, req, res, err)
		events.Notify(a.bus, events.NoticeError, req.Action, events.MsgNotProcessed)
		log.Warn("Transaction not confirmed", zap.Duration("timeout", a.cfg.Timeout))
		return res, err

	case status.Err != nil:
		res.Status = StatusFailed
		_ = a.tracker.Advance(key, StatusFailed)
		err = fmt.Errorf("%w: %v", ErrRejected, status.Err)
		a.finish(ctx, key, req, res, err)
		events.Notify(a.bus, events.NoticeError, req.Action, events.MsgFailed)
		log.Error("Transaction failed on chain", zap.Any("err", status.Err))
		return res, err
	}

	res.Status = StatusConfirmed
	_ = a.tracker.Advance(key, StatusConfirmed)
	a.finish(ctx, key, req, res, nil)
	a.metrics.ObserveConfirmation(req.Action, res.Elapsed)
	events.Notify(a.bus, events.NoticeSuccess, req.Action, events.MsgSuccess)
	log.Info("Transaction confirmed",
		zap.Uint64("slot", status.Slot),
		zap.Duration("elapsed", res.Elapsed))

	if req.OnConfirmed != nil {
		req.OnConfirmed(ctx)
	}
	return res, nil
}

// publish delivers a status change on the calling goroutine, so subscribers
// see statuses in order and the final one before Submit returns.
func (a *Assembler) publish(ctx context.Context, key Key, res *Result, err error) {
	if a.bus == nil {
		return
	}
	sig := ""
	if !res.Signature.IsZero() {
		sig = res.Signature.String()
	}
	e := events.NewSubmission(key.Action, key.Owner.String(), res.Status.String(), sig, err)
	if perr := a.bus.PublishSync(ctx, e); perr != nil {
		a.logger.Debug("Submission subscriber failed", zap.Error(perr))
	}
}

func (a *Assembler) record(ctx context.Context, key Key, req Request, res *Result) {
	if a.store == nil {
		return
	}
	if err := a.store.SaveAction(ctx, newAction(key, req, res, "")); err != nil {
		a.logger.Warn("Failed to record action", zap.Error(err))
	}
}

func newAction(key Key, req Request, res *Result, errMsg string) *models.Action {
	return &models.Action{
		Signature:     res.Signature.String(),
		WalletAddress: key.Owner.String(),
		Action:        req.Action,
		PageName:      req.Page,
		Status:        res.Status.String(),
		ErrorMessage:  errMsg,
		PriorityFee:   res.PriorityFee,
		ExecutionTime: res.Elapsed.Seconds(),
	}
}

// finish publishes the terminal status, counts it and updates the record.
func (a *Assembler) finish(ctx context.Context, key Key, req Request, res *Result, err error) {
	a.publish(ctx, key, res, err)
	a.metrics.RecordSubmission(req.Action, res.Status.String())
	if a.store == nil || res.Signature.IsZero() {
		return
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	uerr := a.store.UpdateActionStatus(ctx, res.Signature.String(), res.Status.String(), msg, res.Elapsed)
	if errors.Is(uerr, storage.ErrNotFound) {
		// Failed before it was ever sent.
		uerr = a.store.SaveAction(ctx, newAction(key, req, res, msg))
	}
	if uerr != nil {
		a.logger.Warn("Failed to update action", zap.Error(uerr))
	}
}
