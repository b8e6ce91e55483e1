// internal/cook/figures.go
package cook

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/letscook/internal/layout"
)

// LamportsPerSOL converts lamport amounts to SOL.
const LamportsPerSOL = 1_000_000_000

// PlatformFeeLamports is charged per ticket on top of the ticket price.
const PlatformFeeLamports = 10_000_000

var lamportsPerSOL = decimal.New(1, 9)

// SOL converts lamports to SOL.
func SOL(lamports uint64) decimal.Decimal {
	return fromUint64(lamports).Div(lamportsPerSOL)
}

func fromUint64(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}

// TicketCost returns what n tickets cost including the platform fee.
func TicketCost(l *layout.LaunchData, n int) decimal.Decimal {
	if l == nil || n <= 0 {
		return decimal.Zero
	}
	per := SOL(l.TicketPrice).Add(SOL(PlatformFeeLamports))
	return per.Mul(decimal.NewFromInt(int64(n)))
}

// WinProbability is the chance that one of the remaining unchecked tickets
// wins. It is zero when every sold ticket has been checked and is clamped to
// [0, 1].
func WinProbability(l *layout.LaunchData) float64 {
	if l == nil || l.TicketsSold <= l.TicketsClaimed {
		return 0
	}
	remaining := int64(l.NumMints) - int64(l.MintsWon)
	if remaining <= 0 {
		return 0
	}
	p := float64(remaining) / float64(l.TicketsSold-l.TicketsClaimed)
	if p > 1 {
		return 1
	}
	return p
}

// WinRate formats the share of the user's tickets that won. It shows "--"
// until the user's tickets have all been checked.
func WinRate(state State, j *layout.JoinData) string {
	if state.Active() || state.MintFailed() || state == StateMintSucceededTicketsLeft {
		return "--"
	}
	if j == nil || j.NumTickets == 0 {
		return "--"
	}
	rate := decimal.NewFromInt(int64(j.NumWinningTickets)).
		Div(decimal.NewFromInt(int64(j.NumTickets))).
		Mul(decimal.NewFromInt(100))
	return rate.StringFixed(2) + "%"
}

// Badge is the short status label shown next to a launch.
func Badge(state State) string {
	switch {
	case state == StatePreLaunch:
		return "Warming Up"
	case state.Active():
		return "Cooking"
	case state.MintedOut():
		return "Cook Out"
	default:
		return "Cook Failed"
	}
}

// Header is the ticket counter headline of a launch page.
func Header(l *layout.LaunchData) string {
	if l == nil {
		return ""
	}
	if l.TicketsSold >= l.NumMints {
		return "Cooked Out!"
	}
	return fmt.Sprintf("Total: %d", l.TicketsSold)
}

// TokensPerWinningTicket is the raffle allocation divided across mints.
func TokensPerWinningTicket(l *layout.LaunchData) decimal.Decimal {
	if l == nil || l.NumMints == 0 || len(l.Distribution) == 0 {
		return decimal.Zero
	}
	supply := fromUint64(l.TotalSupply)
	return supply.
		Mul(decimal.NewFromInt(int64(l.Distribution[0]))).
		Div(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(l.NumMints)))
}

// GuaranteedLiquidity returns the SOL raised so far toward liquidity and
// the SOL a full sale would raise.
func GuaranteedLiquidity(l *layout.LaunchData) (raised, target decimal.Decimal) {
	if l == nil {
		return decimal.Zero, decimal.Zero
	}
	counted := l.TicketsSold
	if l.NumMints < counted {
		counted = l.NumMints
	}
	price := SOL(l.TicketPrice)
	raised = price.Mul(decimal.NewFromInt(int64(counted)))
	target = price.Mul(decimal.NewFromInt(int64(l.NumMints)))
	return raised, target
}

// Progress is the percentage of the mint target sold, capped at 100.
func Progress(l *layout.LaunchData) float64 {
	if l == nil || l.NumMints == 0 {
		return 0
	}
	sold := l.TicketsSold
	if sold > l.NumMints {
		sold = l.NumMints
	}
	return 100 * float64(sold) / float64(l.NumMints)
}

// Share is one labelled slice of the token distribution.
type Share struct {
	Label   string `json:"label"`
	Percent uint8  `json:"percent"`
}

// Distribution pairs the stored percentages with their labels. Slots the
// launch does not use are left out.
func Distribution(l *layout.LaunchData) []Share {
	if l == nil {
		return nil
	}
	var out []Share
	for i, pct := range l.Distribution {
		if i >= len(layout.DistributionLabels) || pct == 0 {
			continue
		}
		out = append(out, Share{Label: layout.DistributionLabels[i], Percent: pct})
	}
	return out
}
