// internal/program/instructions.go
package program

import (
	"bytes"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/letscook/internal/layout"
)

// Instruction is the one-byte selector at the start of instruction data.
type Instruction uint8

const (
	InstructionInit Instruction = iota
	InstructionCreateLaunch
	InstructionBuyTickets
	InstructionCheckTickets
	InstructionInitCookAMM
	InstructionHypeVote
	InstructionClaimRefund
	InstructionEditLaunch
	InstructionClaimTokens
	InstructionSetName
	InstructionSwapCookAMM
	InstructionGetMMRewardTokens
	InstructionCloseAccount
	InstructionLaunchCollection
	InstructionClaimNFT
	InstructionMintNFT
	InstructionWrapNFT
	InstructionEditCollection
	InstructionMintRandomNFT
	InstructionCreateOpenBookMarket
	InstructionCreateRaydium
	InstructionSwapRaydium
	InstructionAddCookLiquidity
	InstructionRemoveCookLiquidity
	InstructionListNFT
	InstructionUnlistNFT
	InstructionBuyNFT
)

// MaxTicketsPerPurchase bounds a single ticket purchase.
const MaxTicketsPerPurchase = 100

var (
	ErrNilLaunch     = errors.New("launch data is required")
	ErrNilCollection = errors.New("collection data is required")
	ErrNilAMM        = errors.New("amm data is required")
	ErrTicketCount   = fmt.Errorf("ticket count must be between 1 and %d", MaxTicketsPerPurchase)
	ErrZeroAmount    = errors.New("amount must be positive")
)

type basicArgs struct {
	Instruction Instruction
}

type buyTicketsArgs struct {
	Instruction Instruction
	NumTickets  uint16
}

type swapArgs struct {
	Instruction Instruction
	Side        uint8
	InAmount    uint64
}

type liquidityArgs struct {
	Instruction Instruction
	BaseAmount  uint64
	QuoteAmount uint64
}

type removeLiquidityArgs struct {
	Instruction Instruction
	LPAmount    uint64
}

type listNFTArgs struct {
	Instruction Instruction
	Price       uint64
}

func encodeArgs(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := bin.NewBorshEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode instruction data: %w", err)
	}
	return buf.Bytes(), nil
}

func signer(key solana.PublicKey) *solana.AccountMeta {
	return &solana.AccountMeta{PublicKey: key, IsSigner: true, IsWritable: true}
}

func writable(key solana.PublicKey) *solana.AccountMeta {
	return &solana.AccountMeta{PublicKey: key, IsWritable: true}
}

func readonly(key solana.PublicKey) *solana.AccountMeta {
	return &solana.AccountMeta{PublicKey: key}
}

// launchAccounts are the addresses shared by every ticket instruction.
type launchAccounts struct {
	userData solana.PublicKey
	join     solana.PublicKey
	launch   solana.PublicKey
	vault    solana.PublicKey
}

func (a Addresses) deriveLaunchAccounts(user solana.PublicKey, l *layout.LaunchData) (launchAccounts, error) {
	var out launchAccounts
	if l == nil {
		return out, ErrNilLaunch
	}
	var err error
	if out.userData, err = a.User(user); err != nil {
		return out, err
	}
	if out.join, err = a.Join(user, l.GameID); err != nil {
		return out, err
	}
	if out.launch, err = a.Launch(l.PageName); err != nil {
		return out, err
	}
	if out.vault, err = a.SolVault(); err != nil {
		return out, err
	}
	return out, nil
}

// BuyTickets builds the instruction that buys numTickets tickets for user.
func (a Addresses) BuyTickets(user solana.PublicKey, l *layout.LaunchData, numTickets int) (solana.Instruction, error) {
	if numTickets < 1 || numTickets > MaxTicketsPerPurchase {
		return nil, ErrTicketCount
	}
	acc, err := a.deriveLaunchAccounts(user, l)
	if err != nil {
		return nil, err
	}
	data, err := encodeArgs(buyTicketsArgs{Instruction: InstructionBuyTickets, NumTickets: uint16(numTickets)})
	if err != nil {
		return nil, err
	}

	// Account order is fixed by the program.
	metas := []*solana.AccountMeta{
		signer(user),
		writable(acc.userData),
		writable(acc.join),
		writable(acc.launch),
		writable(acc.vault),
		writable(a.FeeAccount),
		readonly(a.PythBTC),
		readonly(a.PythETH),
		readonly(a.PythSOL),
		readonly(solana.SystemProgramID),
	}
	return solana.NewInstruction(a.Program, metas, data), nil
}

// CheckTickets builds the instruction that reveals which of the user's
// tickets won.
func (a Addresses) CheckTickets(user solana.PublicKey, l *layout.LaunchData) (solana.Instruction, error) {
	acc, err := a.deriveLaunchAccounts(user, l)
	if err != nil {
		return nil, err
	}
	data, err := encodeArgs(basicArgs{Instruction: InstructionCheckTickets})
	if err != nil {
		return nil, err
	}
	metas := []*solana.AccountMeta{
		signer(user),
		writable(acc.userData),
		writable(acc.join),
		writable(acc.launch),
		readonly(a.PythBTC),
		readonly(a.PythETH),
		readonly(a.PythSOL),
		readonly(solana.SystemProgramID),
	}
	return solana.NewInstruction(a.Program, metas, data), nil
}

// ClaimTokens builds the instruction that pays out winning tickets and
// returns the SOL of losing ones.
func (a Addresses) ClaimTokens(user solana.PublicKey, l *layout.LaunchData) (solana.Instruction, error) {
	acc, err := a.deriveLaunchAccounts(user, l)
	if err != nil {
		return nil, err
	}
	mint := l.Mint()
	tokenProgram := l.TokenProgram()
	userATA, err := ATA(user, mint, tokenProgram)
	if err != nil {
		return nil, err
	}
	vaultATA, err := ATA(acc.vault, mint, tokenProgram)
	if err != nil {
		return nil, err
	}
	data, err := encodeArgs(basicArgs{Instruction: InstructionClaimTokens})
	if err != nil {
		return nil, err
	}
	metas := []*solana.AccountMeta{
		signer(user),
		writable(acc.userData),
		writable(acc.join),
		writable(acc.launch),
		writable(acc.vault),
		writable(mint),
		writable(userATA),
		writable(vaultATA),
		writable(a.FeeAccount),
		readonly(tokenProgram),
		readonly(solana.SPLAssociatedTokenAccountProgramID),
		readonly(solana.SystemProgramID),
	}
	return solana.NewInstruction(a.Program, metas, data), nil
}

// RefundTickets builds the instruction that refunds tickets of a failed
// launch, or of a launch whose liquidity was never deployed.
func (a Addresses) RefundTickets(user solana.PublicKey, l *layout.LaunchData) (solana.Instruction, error) {
	acc, err := a.deriveLaunchAccounts(user, l)
	if err != nil {
		return nil, err
	}
	data, err := encodeArgs(basicArgs{Instruction: InstructionClaimRefund})
	if err != nil {
		return nil, err
	}
	metas := []*solana.AccountMeta{
		signer(user),
		writable(acc.userData),
		writable(acc.join),
		writable(acc.launch),
		writable(acc.vault),
		writable(a.FeeAccount),
		readonly(l.Mint()),
		readonly(solana.SystemProgramID),
	}
	return solana.NewInstruction(a.Program, metas, data), nil
}

// NFTClaim carries what ClaimNFT needs besides the collection itself.
type NFTClaim struct {
	User         solana.PublicKey
	TokenProgram solana.PublicKey
}

// ClaimNFT builds the instruction that swaps collection tokens for a
// randomly assigned NFT.
func (a Addresses) ClaimNFT(c *layout.CollectionData, claim NFTClaim) (solana.Instruction, error) {
	if c == nil {
		return nil, ErrNilCollection
	}
	user := claim.User
	collectionMint := c.Key(layout.CollectionKeyCollectionMint)
	tokenMint := c.Key(layout.CollectionKeyMintAddress)

	userData, err := a.User(user)
	if err != nil {
		return nil, err
	}
	assignment, err := a.Assignment(user, collectionMint)
	if err != nil {
		return nil, err
	}
	collection, err := a.Collection(c.PageName)
	if err != nil {
		return nil, err
	}
	vault, err := a.SolVault()
	if err != nil {
		return nil, err
	}
	userATA, err := ATA(user, tokenMint, claim.TokenProgram)
	if err != nil {
		return nil, err
	}
	vaultATA, err := ATA(vault, tokenMint, claim.TokenProgram)
	if err != nil {
		return nil, err
	}
	tokenProgram := claim.TokenProgram
	if tokenProgram.IsZero() {
		tokenProgram = solana.TokenProgramID
	}
	data, err := encodeArgs(basicArgs{Instruction: InstructionClaimNFT})
	if err != nil {
		return nil, err
	}
	metas := []*solana.AccountMeta{
		signer(user),
		writable(userData),
		writable(assignment),
		writable(collection),
		writable(vault),
		writable(tokenMint),
		writable(userATA),
		writable(vaultATA),
		writable(collectionMint),
		writable(a.FeeAccount),
		writable(a.PythBTC),
		writable(a.PythETH),
		writable(a.PythSOL),
		writable(solana.SystemProgramID),
		writable(tokenProgram),
	}
	return solana.NewInstruction(a.Program, metas, data), nil
}

// MintNFT builds the instruction that mints the NFT already assigned to user.
func (a Addresses) MintNFT(user solana.PublicKey, c *layout.CollectionData, assigned solana.PublicKey) (solana.Instruction, error) {
	if c == nil {
		return nil, ErrNilCollection
	}
	collectionMint := c.Key(layout.CollectionKeyCollectionMint)
	assignment, err := a.Assignment(user, collectionMint)
	if err != nil {
		return nil, err
	}
	collection, err := a.Collection(c.PageName)
	if err != nil {
		return nil, err
	}
	vault, err := a.SolVault()
	if err != nil {
		return nil, err
	}
	metadata, err := Metadata(collectionMint)
	if err != nil {
		return nil, err
	}
	data, err := encodeArgs(basicArgs{Instruction: InstructionMintNFT})
	if err != nil {
		return nil, err
	}
	metas := []*solana.AccountMeta{
		signer(user),
		writable(assignment),
		writable(collection),
		writable(vault),
		writable(assigned),
		writable(collectionMint),
		writable(metadata),
		writable(a.FeeAccount),
		readonly(solana.TokenMetadataProgramID),
		readonly(solana.SystemProgramID),
	}
	return solana.NewInstruction(a.Program, metas, data), nil
}

// ListNFT builds the instruction that lists an owned NFT for price lamports.
func (a Addresses) ListNFT(user solana.PublicKey, c *layout.CollectionData, asset solana.PublicKey, price uint64) (solana.Instruction, error) {
	if price == 0 {
		return nil, ErrZeroAmount
	}
	return a.marketplace(InstructionListNFT, user, c, asset, solana.PublicKey{}, price)
}

// UnlistNFT builds the instruction that removes a listing.
func (a Addresses) UnlistNFT(user solana.PublicKey, c *layout.CollectionData, asset solana.PublicKey) (solana.Instruction, error) {
	return a.marketplace(InstructionUnlistNFT, user, c, asset, solana.PublicKey{}, 0)
}

// BuyNFT builds the instruction that buys a listed NFT from seller.
func (a Addresses) BuyNFT(user solana.PublicKey, c *layout.CollectionData, asset, seller solana.PublicKey) (solana.Instruction, error) {
	return a.marketplace(InstructionBuyNFT, user, c, asset, seller, 0)
}

func (a Addresses) marketplace(
	ix Instruction,
	user solana.PublicKey,
	c *layout.CollectionData,
	asset, seller solana.PublicKey,
	price uint64,
) (solana.Instruction, error) {
	if c == nil {
		return nil, ErrNilCollection
	}
	collection, err := a.Collection(c.PageName)
	if err != nil {
		return nil, err
	}
	listing, err := a.Listing(asset)
	if err != nil {
		return nil, err
	}

	var data []byte
	if ix == InstructionListNFT {
		data, err = encodeArgs(listNFTArgs{Instruction: ix, Price: price})
	} else {
		data, err = encodeArgs(basicArgs{Instruction: ix})
	}
	if err != nil {
		return nil, err
	}

	metas := []*solana.AccountMeta{signer(user)}
	if ix == InstructionBuyNFT {
		metas = append(metas, writable(seller))
	}
	metas = append(metas,
		writable(asset),
		writable(listing),
		writable(collection),
		writable(c.Key(layout.CollectionKeyCollectionMint)),
	)
	if ix == InstructionBuyNFT {
		metas = append(metas, writable(a.FeeAccount))
	}
	metas = append(metas, readonly(solana.SystemProgramID))
	return solana.NewInstruction(a.Program, metas, data), nil
}

// Pool carries the AMM and the token programs of both sides.
type Pool struct {
	AMM               *layout.AMMData
	BaseTokenProgram  solana.PublicKey
	QuoteTokenProgram solana.PublicKey
}

func (p Pool) programs() (base, quote solana.PublicKey) {
	base, quote = p.BaseTokenProgram, p.QuoteTokenProgram
	if base.IsZero() {
		base = solana.TokenProgramID
	}
	if quote.IsZero() {
		quote = solana.TokenProgramID
	}
	return base, quote
}

// Swap sides.
const (
	SideBuy  uint8 = 0
	SideSell uint8 = 1
)

// Swap builds a Cook AMM swap. Buying spends quote, selling spends base.
func (a Addresses) Swap(user solana.PublicKey, p Pool, side uint8, inAmount uint64) (solana.Instruction, error) {
	if p.AMM == nil {
		return nil, ErrNilAMM
	}
	if inAmount == 0 {
		return nil, ErrZeroAmount
	}
	amm := p.AMM
	baseProgram, quoteProgram := p.programs()

	userData, err := a.User(user)
	if err != nil {
		return nil, err
	}
	pool, err := a.AMM(amm.BaseMint, amm.QuoteMint, amm.Provider)
	if err != nil {
		return nil, err
	}
	series, err := a.TimeSeries(pool, 0)
	if err != nil {
		return nil, err
	}
	userBase, err := ATA(user, amm.BaseMint, baseProgram)
	if err != nil {
		return nil, err
	}
	userQuote, err := ATA(user, amm.QuoteMint, quoteProgram)
	if err != nil {
		return nil, err
	}
	data, err := encodeArgs(swapArgs{Instruction: InstructionSwapCookAMM, Side: side, InAmount: inAmount})
	if err != nil {
		return nil, err
	}
	metas := []*solana.AccountMeta{
		signer(user),
		writable(userData),
		writable(amm.BaseMint),
		writable(amm.QuoteMint),
		writable(userBase),
		writable(userQuote),
		writable(pool),
		writable(amm.BaseKey),
		writable(amm.QuoteKey),
		writable(a.FeeAccount),
		writable(series),
		readonly(baseProgram),
		readonly(quoteProgram),
		readonly(solana.SPLAssociatedTokenAccountProgramID),
		readonly(solana.SystemProgramID),
	}
	return solana.NewInstruction(a.Program, metas, data), nil
}

func (a Addresses) liquidityMetas(user solana.PublicKey, p Pool) ([]*solana.AccountMeta, error) {
	amm := p.AMM
	baseProgram, quoteProgram := p.programs()
	pool, err := a.AMM(amm.BaseMint, amm.QuoteMint, amm.Provider)
	if err != nil {
		return nil, err
	}
	userBase, err := ATA(user, amm.BaseMint, baseProgram)
	if err != nil {
		return nil, err
	}
	userQuote, err := ATA(user, amm.QuoteMint, quoteProgram)
	if err != nil {
		return nil, err
	}
	userLP, err := ATA(user, amm.LPMint, solana.TokenProgramID)
	if err != nil {
		return nil, err
	}
	return []*solana.AccountMeta{
		signer(user),
		writable(pool),
		writable(amm.BaseMint),
		writable(amm.QuoteMint),
		writable(amm.LPMint),
		writable(userBase),
		writable(userQuote),
		writable(userLP),
		writable(amm.BaseKey),
		writable(amm.QuoteKey),
		readonly(baseProgram),
		readonly(quoteProgram),
		readonly(solana.TokenProgramID),
		readonly(solana.SPLAssociatedTokenAccountProgramID),
		readonly(solana.SystemProgramID),
	}, nil
}

// AddLiquidity builds a deposit into a Cook AMM.
func (a Addresses) AddLiquidity(user solana.PublicKey, p Pool, baseAmount, quoteAmount uint64) (solana.Instruction, error) {
	if p.AMM == nil {
		return nil, ErrNilAMM
	}
	if baseAmount == 0 || quoteAmount == 0 {
		return nil, ErrZeroAmount
	}
	metas, err := a.liquidityMetas(user, p)
	if err != nil {
		return nil, err
	}
	data, err := encodeArgs(liquidityArgs{
		Instruction: InstructionAddCookLiquidity,
		BaseAmount:  baseAmount,
		QuoteAmount: quoteAmount,
	})
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(a.Program, metas, data), nil
}

// RemoveLiquidity builds a withdrawal of lpAmount LP tokens.
func (a Addresses) RemoveLiquidity(user solana.PublicKey, p Pool, lpAmount uint64) (solana.Instruction, error) {
	if p.AMM == nil {
		return nil, ErrNilAMM
	}
	if lpAmount == 0 {
		return nil, ErrZeroAmount
	}
	metas, err := a.liquidityMetas(user, p)
	if err != nil {
		return nil, err
	}
	data, err := encodeArgs(removeLiquidityArgs{Instruction: InstructionRemoveCookLiquidity, LPAmount: lpAmount})
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(a.Program, metas, data), nil
}
