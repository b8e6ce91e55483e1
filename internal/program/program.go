// Package program derives the launch program's addresses and builds its
// instructions. Nothing here talks to the network.
package program

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// SolAccountSeed seeds the program-owned SOL vault.
const SolAccountSeed uint32 = 59957379

// Seed strings used by the program.
const (
	seedLaunch      = "Launch"
	seedJoiner      = "Joiner"
	seedCollection  = "Collection"
	seedAssignment  = "assignment"
	seedUser        = "User"
	seedListing     = "Listing"
	seedCookAMM     = "CookAMM"
	seedRaydiumCPMM = "RaydiumCPMM"
	seedTimeSeries  = "TimeSeries"
	seedMetadata    = "metadata"
)

// Addresses are the well-known accounts every instruction needs.
type Addresses struct {
	Program    solana.PublicKey
	FeeAccount solana.PublicKey
	PythBTC    solana.PublicKey
	PythETH    solana.PublicKey
	PythSOL    solana.PublicKey
}

func (a Addresses) find(what string, seeds ...[]byte) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(seeds, a.Program)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive %s: %w", what, err)
	}
	return addr, nil
}

// Launch derives the launch account for a page name.
func (a Addresses) Launch(pageName string) (solana.PublicKey, error) {
	return a.find("launch account", []byte(pageName), []byte(seedLaunch))
}

// Join derives a user's join account for a launch game id.
func (a Addresses) Join(user solana.PublicKey, gameID uint64) (solana.PublicKey, error) {
	id := make([]byte, 8)
	binary.LittleEndian.PutUint64(id, gameID)
	return a.find("join account", user.Bytes(), id, []byte(seedJoiner))
}

// Collection derives the collection account for a page name.
func (a Addresses) Collection(pageName string) (solana.PublicKey, error) {
	return a.find("collection account", []byte(pageName), []byte(seedCollection))
}

// Assignment derives a user's NFT assignment account for a collection mint.
func (a Addresses) Assignment(user, collectionMint solana.PublicKey) (solana.PublicKey, error) {
	return a.find("assignment account", user.Bytes(), collectionMint.Bytes(), []byte(seedAssignment))
}

// User derives the user data account.
func (a Addresses) User(user solana.PublicKey) (solana.PublicKey, error) {
	return a.find("user account", user.Bytes(), []byte(seedUser))
}

// Listing derives the listing account for a base mint.
func (a Addresses) Listing(baseMint solana.PublicKey) (solana.PublicKey, error) {
	return a.find("listing account", baseMint.Bytes(), []byte(seedListing))
}

// AMM derives the pool account for a mint pair. The two mints are ordered
// by their base58 form so either argument order gives the same address.
func (a Addresses) AMM(mintA, mintB solana.PublicKey, provider uint8) (solana.PublicKey, error) {
	first, second := mintA, mintB
	if second.String() < first.String() {
		first, second = second, first
	}
	seed := seedCookAMM
	if provider != 0 {
		seed = seedRaydiumCPMM
	}
	return a.find("amm account", first.Bytes(), second.Bytes(), []byte(seed))
}

// TimeSeries derives the price series account at index for an AMM.
func (a Addresses) TimeSeries(amm solana.PublicKey, index uint32) (solana.PublicKey, error) {
	idx := make([]byte, 4)
	binary.LittleEndian.PutUint32(idx, index)
	return a.find("time series account", amm.Bytes(), idx, []byte(seedTimeSeries))
}

// SolVault derives the program SOL account.
func (a Addresses) SolVault() (solana.PublicKey, error) {
	seed := make([]byte, 4)
	binary.LittleEndian.PutUint32(seed, SolAccountSeed)
	return a.find("program sol account", seed)
}

// Metadata derives the Metaplex metadata account of a mint.
func Metadata(mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(seedMetadata), solana.TokenMetadataProgramID.Bytes(), mint.Bytes()},
		solana.TokenMetadataProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive metadata account: %w", err)
	}
	return addr, nil
}

// ATA derives the associated token account of owner for mint under the
// given token program. Owners may be off curve.
func ATA(owner, mint, tokenProgram solana.PublicKey) (solana.PublicKey, error) {
	if tokenProgram.IsZero() {
		tokenProgram = solana.TokenProgramID
	}
	addr, _, err := solana.FindProgramAddress(
		[][]byte{owner.Bytes(), tokenProgram.Bytes(), mint.Bytes()},
		solana.SPLAssociatedTokenAccountProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive associated token account: %w", err)
	}
	return addr, nil
}
