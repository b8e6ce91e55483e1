// internal/layout/launch.go
package layout

import (
	"github.com/gagliardetto/solana-go"
)

// Indexes into LaunchData.Keys.
const (
	LaunchKeySeller = iota
	LaunchKeyTeamWallet
	LaunchKeyMintAddress
	LaunchKeyWSOLAddress
)

// Indexes into LaunchData.Flags.
const (
	LaunchFlagLPState = iota
	LaunchFlagTokenProgramVersion
	LaunchFlagBookProvider
	LaunchFlagAMMProvider
	LaunchFlagExtensions
)

// LPStateDeployed is the LP-state flag value once liquidity has been created.
const LPStateDeployed = 2

// Distribution slots, in the order they are stored.
var DistributionLabels = [...]string{
	"Let's Cook Raffle",
	"Liquidity Pool",
	"LP Rewards",
	"Airdrops",
	"Team",
	"Others",
}

// LaunchData is the launch account derived from [page_name, "Launch"].
// Dates are unix milliseconds.
type LaunchData struct {
	AccountType      AccountType
	GameID           uint64
	LastInteraction  int64
	NumInteractions  uint16
	PageName         string
	Name             string
	Symbol           string
	Icon             string
	URI              string
	Banner           string
	Description      string
	TotalSupply      uint64
	Decimals         uint8
	NumMints         uint32
	TicketPrice      uint64
	MinimumLiquidity uint64
	LaunchDate       uint64
	EndDate          uint64
	TicketsSold      uint32
	TicketsClaimed   uint32
	MintsWon         uint32
	Distribution     []uint8
	Flags            []uint8
	Keys             []solana.PublicKey
	Socials          []string
}

// DecodeLaunch decodes a launch account.
func DecodeLaunch(data []byte) (*LaunchData, error) {
	var l LaunchData
	if err := decode(data, AccountLaunch, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// Key returns the key at idx or the zero key when the launch does not carry it.
func (l *LaunchData) Key(idx int) solana.PublicKey {
	if idx < 0 || idx >= len(l.Keys) {
		return solana.PublicKey{}
	}
	return l.Keys[idx]
}

// Flag returns the flag at idx, zero when absent.
func (l *LaunchData) Flag(idx int) uint8 {
	if idx < 0 || idx >= len(l.Flags) {
		return 0
	}
	return l.Flags[idx]
}

// Mint is the launched token mint.
func (l *LaunchData) Mint() solana.PublicKey { return l.Key(LaunchKeyMintAddress) }

// Seller is the launch creator.
func (l *LaunchData) Seller() solana.PublicKey { return l.Key(LaunchKeySeller) }

// TokenProgram picks the token program the mint was created under.
func (l *LaunchData) TokenProgram() solana.PublicKey {
	if l.Flag(LaunchFlagTokenProgramVersion) == 1 {
		return solana.Token2022ProgramID
	}
	return solana.TokenProgramID
}

// JoinData is the per-user ticket record derived from
// [user, game_id, "Joiner"]. It only exists after a first purchase.
type JoinData struct {
	AccountType       AccountType
	JoinerKey         solana.PublicKey
	PageName          string
	GameID            uint64
	NumTickets        uint16
	NumClaimedTickets uint16
	NumWinningTickets uint16
	TicketStatus      uint8
	RandomAddress     solana.PublicKey
	LastSlot          uint64
}

// Ticket status values.
const (
	TicketStatusUnclaimed uint8 = 0
	TicketStatusClaimed   uint8 = 1
)

// DecodeJoin decodes a join account.
func DecodeJoin(data []byte) (*JoinData, error) {
	var j JoinData
	if err := decode(data, AccountJoin, &j); err != nil {
		return nil, err
	}
	return &j, nil
}

// JoinerOffset is the byte offset of JoinerKey, used for program account filters.
const JoinerOffset = 1
