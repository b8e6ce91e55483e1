// Package layouttest builds encoded program accounts for tests.
package layouttest

import (
	"bytes"
	"encoding/binary"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/letscook/internal/layout"
)

// Encode borsh-encodes v and fails the test on error.
func Encode(t testing.TB, v interface{}) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := bin.NewBorshEncoder(&buf).Encode(v); err != nil {
		t.Fatalf("encode %T: %v", v, err)
	}
	return buf.Bytes()
}

// Launch returns a launch selling numMints tickets between launchDate and
// endDate, with mint and seller keys filled in.
func Launch(pageName string, launchDate, endDate uint64, numMints, ticketsSold uint32) *layout.LaunchData {
	return &layout.LaunchData{
		AccountType:     layout.AccountLaunch,
		GameID:          7,
		NumInteractions: 1,
		PageName:        pageName,
		Name:            "Sauce",
		Symbol:          "SAUCE",
		TotalSupply:     1_000_000_000,
		Decimals:        6,
		NumMints:        numMints,
		TicketPrice:     100_000_000,
		LaunchDate:      launchDate,
		EndDate:         endDate,
		TicketsSold:     ticketsSold,
		Distribution:    []uint8{50, 30, 5, 5, 5, 5},
		Flags:           []uint8{0, 0, 0, 0, 0},
		Keys: []solana.PublicKey{
			solana.NewWallet().PublicKey(),
			solana.NewWallet().PublicKey(),
			solana.NewWallet().PublicKey(),
			solana.WrappedSol,
		},
	}
}

// Join returns a join record for user.
func Join(user solana.PublicKey, gameID uint64, tickets, claimed, winning uint16) *layout.JoinData {
	return &layout.JoinData{
		AccountType:       layout.AccountJoin,
		JoinerKey:         user,
		PageName:          "sauce",
		GameID:            gameID,
		NumTickets:        tickets,
		NumClaimedTickets: claimed,
		NumWinningTickets: winning,
	}
}

// TokenAccount returns a raw SPL token account holding amount.
func TokenAccount(mint, owner solana.PublicKey, amount uint64) []byte {
	data := make([]byte, 165)
	copy(data[0:32], mint[:])
	copy(data[32:64], owner[:])
	binary.LittleEndian.PutUint64(data[64:72], amount)
	data[108] = 1
	return data
}

// Mint returns a raw SPL mint with no authorities.
func Mint(supply uint64, decimals uint8) []byte {
	data := make([]byte, 82)
	binary.LittleEndian.PutUint64(data[36:44], supply)
	data[44] = decimals
	data[45] = 1
	return data
}

// AMM returns a pool between base and quote with fresh reserve accounts.
func AMM(base, quote solana.PublicKey, provider uint8) *layout.AMMData {
	return &layout.AMMData{
		AccountType: layout.AccountAMM,
		Pool:        solana.NewWallet().PublicKey(),
		BaseMint:    base,
		QuoteMint:   quote,
		LPMint:      solana.NewWallet().PublicKey(),
		BaseKey:     solana.NewWallet().PublicKey(),
		QuoteKey:    solana.NewWallet().PublicKey(),
		FeeBps:      25,
		Provider:    provider,
	}
}

// Collection returns a hybrid collection with numAvailable NFTs left.
func Collection(pageName string, total, numAvailable uint32) *layout.CollectionData {
	return &layout.CollectionData{
		AccountType:     layout.AccountCollection,
		NumInteractions: 1,
		PageName:        pageName,
		Name:            "Sauce Chefs",
		Symbol:          "CHEF",
		Total:           total,
		NumAvailable:    numAvailable,
		SwapPrice:       1_000_000,
		SwapFee:         100,
		Flags:           []uint8{0},
		Keys: []solana.PublicKey{
			solana.NewWallet().PublicKey(),
			solana.NewWallet().PublicKey(),
			solana.NewWallet().PublicKey(),
			solana.NewWallet().PublicKey(),
		},
	}
}

// Assignment returns an assignment with the given status.
func Assignment(status uint8, interactions uint16) *layout.AssignmentData {
	return &layout.AssignmentData{
		AccountType:     layout.AccountAssignment,
		NumInteractions: interactions,
		NFT:             solana.NewWallet().PublicKey(),
		NFTIndex:        3,
		Status:          status,
		RandomAddress:   solana.NewWallet().PublicKey(),
	}
}
