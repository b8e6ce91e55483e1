// Package collection follows a hybrid NFT collection page: the collection
// account, the user's assignment and the NFT marketplace actions.
package collection

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/letscook/internal/blockchain"
	"github.com/rovshanmuradov/letscook/internal/events"
	"github.com/rovshanmuradov/letscook/internal/layout"
	"github.com/rovshanmuradov/letscook/internal/metrics"
	"github.com/rovshanmuradov/letscook/internal/poller"
	"github.com/rovshanmuradov/letscook/internal/program"
	"github.com/rovshanmuradov/letscook/internal/txn"
	"github.com/rovshanmuradov/letscook/internal/wallet"
)

var (
	ErrCollectionNotFound = errors.New("collection not found")
	ErrSoldOut            = errors.New("collection sold out")
	ErrSellerClaim        = errors.New("seller cannot claim from own collection")
	ErrNotAssigned        = errors.New("no nft assigned")
	ErrOwnListing         = errors.New("cannot buy own listing")
)

// Notice texts shown for rejected requests.
const (
	MsgSoldOut     = "No NFTs available"
	MsgSellerClaim = "Launch creator cannot buy NFTs"
	MsgNotAssigned = "No NFT assigned yet"
)

// Action names used for submissions and notices.
const (
	ActionClaimNFT  = "claim_nft"
	ActionMintNFT   = "mint_nft"
	ActionListNFT   = "list_nft"
	ActionUnlistNFT = "unlist_nft"
	ActionBuyNFT    = "buy_nft"
)

// Deps are the shared services a collection view uses.
type Deps struct {
	Reader    blockchain.Reader
	Feed      blockchain.Feed
	Assembler *txn.Assembler
	Addresses program.Addresses
	Bus       events.Publisher
	Metrics   *metrics.Collector
	Logger    *zap.Logger
}

// View keeps one collection page current.
type View struct {
	page           string
	collectionAddr solana.PublicKey
	assignmentAddr solana.PublicKey
	owner          solana.PublicKey
	tokenProgram   solana.PublicKey

	collection *poller.Cell[layout.CollectionData]
	assignment *poller.Cell[layout.AssignmentData]

	deps   Deps
	poller *poller.Poller
	logger *zap.Logger
}

func interacted(cur, next uint16) bool { return next > cur }

func collectionNewer(cur, next *layout.CollectionData) bool {
	return interacted(cur.NumInteractions, next.NumInteractions)
}

func assignmentNewer(cur, next *layout.AssignmentData) bool {
	return interacted(cur.NumInteractions, next.NumInteractions)
}

// Open reads the collection for page and follows it together with the
// connected wallet's assignment.
func Open(ctx context.Context, page string, deps Deps, cfg poller.Config) (*View, error) {
	addr, err := deps.Addresses.Collection(page)
	if err != nil {
		return nil, err
	}
	v := &View{
		page:           page,
		collectionAddr: addr,
		deps:           deps,
		poller:         poller.New(deps.Reader, deps.Feed, cfg, deps.Logger),
		logger:         deps.Logger.Named("collection").With(zap.String("page", page)),
	}
	if deps.Assembler != nil {
		v.owner = deps.Assembler.Owner()
	}

	v.collection = poller.NewCell("collection", layout.DecodeCollection,
		poller.WithNewer(collectionNewer),
		poller.OnChange(func(c *layout.CollectionData) { v.changed("collection", addr, c != nil) }),
		poller.OnDecodeError[layout.CollectionData](v.decodeFailed),
	)
	if err := v.poller.Watch(ctx, addr, v.collection); err != nil {
		v.poller.Close()
		return nil, err
	}
	c := v.collection.Get()
	if c == nil {
		v.poller.Close()
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, page)
	}

	// The token program is whatever owns the collection's token mint.
	mint, err := deps.Reader.GetAccount(ctx, c.Key(layout.CollectionKeyMintAddress))
	switch {
	case err == nil:
		v.tokenProgram = mint.Owner
	case errors.Is(err, blockchain.ErrAccountNotFound):
		v.tokenProgram = solana.TokenProgramID
	default:
		v.poller.Close()
		return nil, err
	}

	if !v.owner.IsZero() {
		v.assignmentAddr, err = deps.Addresses.Assignment(v.owner, c.Key(layout.CollectionKeyCollectionMint))
		if err != nil {
			v.poller.Close()
			return nil, err
		}
		assignAddr := v.assignmentAddr
		v.assignment = poller.NewCell("assignment", layout.DecodeAssignment,
			poller.WithNewer(assignmentNewer),
			poller.OnChange(func(a *layout.AssignmentData) { v.changed("assignment", assignAddr, a != nil) }),
			poller.OnDecodeError[layout.AssignmentData](v.decodeFailed),
		)
		if err := v.poller.Watch(ctx, assignAddr, v.assignment); err != nil {
			v.poller.Close()
			return nil, err
		}
	}

	v.logger.Info("Collection opened",
		zap.String("collection", addr.String()),
		zap.Uint32("available", c.NumAvailable),
		zap.Bool("assigned", v.Assignment() != nil))
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

// Collection returns the latest collection snapshot.
func (v *View) Collection() *layout.CollectionData { return v.collection.Get() }

// Assignment returns the wallet's assignment or nil when none exists.
func (v *View) Assignment() *layout.AssignmentData {
	if v.assignment == nil {
		return nil
	}
	return v.assignment.Get()
}

// Refresh re-reads the collection and assignment accounts.
func (v *View) Refresh(ctx context.Context) error {
	if err := v.poller.Refresh(ctx, v.collectionAddr); err != nil {
		return err
	}
	if v.assignment != nil {
		return v.poller.Refresh(ctx, v.assignmentAddr)
	}
	return nil
}

func (v *View) refreshAfterConfirm(ctx context.Context) {
	if err := v.Refresh(ctx); err != nil {
		v.logger.Warn("Refresh after confirmation failed", zap.Error(err))
	}
}

func (v *View) reject(action string, err error) error {
	return v.refuse(action, err.Error(), err)
}

// refuse raises msg for a request that fails before any network call.
func (v *View) refuse(action, msg string, err error) error {
	events.Notify(v.deps.Bus, events.NoticeError, action, msg)
	return err
}

func (v *View) submit(ctx context.Context, action string, build func() (solana.Instruction, error)) (*txn.Result, error) {
	if v.owner.IsZero() || v.deps.Assembler == nil {
		return nil, v.reject(action, wallet.ErrNotConnected)
	}
	ix, err := build()
	if err != nil {
		return nil, v.reject(action, err)
	}
	return v.deps.Assembler.Submit(ctx, txn.Request{
		Action:       action,
		Page:         v.page,
		Instructions: []solana.Instruction{ix},
		OnConfirmed:  v.refreshAfterConfirm,
	})
}

// ClaimNFT swaps collection tokens for a random NFT. When an NFT has
// already been assigned it is minted instead.
func (v *View) ClaimNFT(ctx context.Context) (*txn.Result, error) {
	if v.owner.IsZero() {
		return nil, v.reject(ActionClaimNFT, wallet.ErrNotConnected)
	}
	if a := v.Assignment(); a != nil && a.Status > 0 {
		v.logger.Debug("NFT already assigned, minting", zap.Stringer("nft", a.NFT))
		return v.MintNFT(ctx)
	}
	c := v.Collection()
	if c == nil {
		return nil, v.reject(ActionClaimNFT, ErrCollectionNotFound)
	}
	if c.NumAvailable == 0 {
		return nil, v.refuse(ActionClaimNFT, MsgSoldOut, ErrSoldOut)
	}
	if v.owner.Equals(c.Key(layout.CollectionKeySeller)) {
		return nil, v.refuse(ActionClaimNFT, MsgSellerClaim, ErrSellerClaim)
	}
	return v.submit(ctx, ActionClaimNFT, func() (solana.Instruction, error) {
		return v.deps.Addresses.ClaimNFT(c, program.NFTClaim{User: v.owner, TokenProgram: v.tokenProgram})
	})
}

// MintNFT mints the NFT assigned to the wallet.
func (v *View) MintNFT(ctx context.Context) (*txn.Result, error) {
	a := v.Assignment()
	if a == nil || a.Status == 0 {
		return nil, v.refuse(ActionMintNFT, MsgNotAssigned, ErrNotAssigned)
	}
	c := v.Collection()
	if c == nil {
		return nil, v.reject(ActionMintNFT, ErrCollectionNotFound)
	}
	return v.submit(ctx, ActionMintNFT, func() (solana.Instruction, error) {
		return v.deps.Addresses.MintNFT(v.owner, c, a.NFT)
	})
}

// ListNFT offers an owned asset for price lamports.
func (v *View) ListNFT(ctx context.Context, asset solana.PublicKey, price uint64) (*txn.Result, error) {
	c := v.Collection()
	if c == nil {
		return nil, v.reject(ActionListNFT, ErrCollectionNotFound)
	}
	return v.submit(ctx, ActionListNFT, func() (solana.Instruction, error) {
		return v.deps.Addresses.ListNFT(v.owner, c, asset, price)
	})
}

// UnlistNFT withdraws a listing.
func (v *View) UnlistNFT(ctx context.Context, asset solana.PublicKey) (*txn.Result, error) {
	c := v.Collection()
	if c == nil {
		return nil, v.reject(ActionUnlistNFT, ErrCollectionNotFound)
	}
	return v.submit(ctx, ActionUnlistNFT, func() (solana.Instruction, error) {
		return v.deps.Addresses.UnlistNFT(v.owner, c, asset)
	})
}

// BuyNFT buys a listed asset from seller.
func (v *View) BuyNFT(ctx context.Context, asset, seller solana.PublicKey) (*txn.Result, error) {
	if seller.Equals(v.owner) {
		return nil, v.reject(ActionBuyNFT, ErrOwnListing)
	}
	c := v.Collection()
	if c == nil {
		return nil, v.reject(ActionBuyNFT, ErrCollectionNotFound)
	}
	return v.submit(ctx, ActionBuyNFT, func() (solana.Instruction, error) {
		return v.deps.Addresses.BuyNFT(v.owner, c, asset, seller)
	})
}

// Close cancels every subscription of the view.
func (v *View) Close() {
	v.poller.Close()
}
