package cook

import (
	"time"

	"github.com/rovshanmuradov/letscook/internal/layout"
)

// DefaultCheckInTimeout is how long after the sale ends the team has to
// deploy liquidity before ticket holders may take their SOL back.
const DefaultCheckInTimeout = 48 * time.Hour

// Liquidity subdivides MINT_SUCCEEDED_TICKETS_CHECKED.
type Liquidity int

const (
	LiquidityNotApplicable Liquidity = iota
	LiquidityNoLP
	LiquidityLP
	LiquidityTimeout
)

func (p Liquidity) String() string {
	switch p {
	case LiquidityNoLP:
		return "NO_LP"
	case LiquidityLP:
		return "LP"
	case LiquidityTimeout:
		return "LP_TIMEOUT"
	default:
		return "N/A"
	}
}

// LiquidityPhase reports where a checked launch stands on liquidity. Other
// states return LiquidityNotApplicable.
func LiquidityPhase(state State, now time.Time, l *layout.LaunchData, checkIn time.Duration) Liquidity {
	if state != StateMintSucceededTicketsChecked || l == nil {
		return LiquidityNotApplicable
	}
	if l.Flag(layout.LaunchFlagLPState) == layout.LPStateDeployed {
		return LiquidityLP
	}
	if checkIn <= 0 {
		checkIn = DefaultCheckInTimeout
	}
	if millis(now) >= l.EndDate+uint64(checkIn.Milliseconds()) {
		return LiquidityTimeout
	}
	return LiquidityNoLP
}

// Action is what the user can do next.
type Action int

const (
	ActionNone Action = iota
	ActionBuy
	ActionCheck
	ActionClaim
	ActionRefund
)

func (a Action) String() string {
	switch a {
	case ActionBuy:
		return "buy"
	case ActionCheck:
		return "check"
	case ActionClaim:
		return "claim"
	case ActionRefund:
		return "refund"
	default:
		return "none"
	}
}

// ActionFor dispatches a state to the action offered to the user.
func ActionFor(state State, phase Liquidity, j *layout.JoinData) Action {
	switch state {
	case StateActiveNoTickets, StateActiveTickets:
		return ActionBuy
	case StateMintSucceededTicketsLeft:
		return ActionCheck
	case StateMintFailedNotRefunded:
		return ActionRefund
	case StateMintSucceededTicketsChecked:
		switch phase {
		case LiquidityLP:
			return ActionClaim
		case LiquidityTimeout:
			return ActionRefund
		case LiquidityNoLP:
			if j != nil && j.TicketStatus == layout.TicketStatusUnclaimed {
				return ActionClaim
			}
		}
	}
	return ActionNone
}
