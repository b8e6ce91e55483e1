// Package cook derives the lifecycle of a launch as seen by one user.
//
// A state is never stored. It is recomputed from the wall clock and the
// latest launch and join snapshots every time it is needed.
package cook

import (
	"time"

	"github.com/rovshanmuradov/letscook/internal/layout"
)

// State is the derived cook state of a launch and user pair.
type State int

const (
	StatePreLaunch State = iota
	StateActiveNoTickets
	StateActiveTickets
	StateMintFailedNotRefunded
	StateMintFailedRefunded
	StateMintSucceededNoTickets
	StateMintSucceededTicketsLeft
	StateMintSucceededTicketsChecked
)

var stateNames = map[State]string{
	StatePreLaunch:                   "PRE_LAUNCH",
	StateActiveNoTickets:             "ACTIVE_NO_TICKETS",
	StateActiveTickets:               "ACTIVE_TICKETS",
	StateMintFailedNotRefunded:       "MINT_FAILED_NOT_REFUNDED",
	StateMintFailedRefunded:          "MINT_FAILED_REFUNDED",
	StateMintSucceededNoTickets:      "MINT_SUCCEEDED_NO_TICKETS",
	StateMintSucceededTicketsLeft:    "MINT_SUCCEEDED_TICKETS_LEFT",
	StateMintSucceededTicketsChecked: "MINT_SUCCEEDED_TICKETS_CHECKED",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// Active reports whether tickets are on sale.
func (s State) Active() bool {
	return s == StateActiveNoTickets || s == StateActiveTickets
}

// MintedOut reports whether the sale reached its mint target.
func (s State) MintedOut() bool {
	return s == StateMintSucceededNoTickets ||
		s == StateMintSucceededTicketsLeft ||
		s == StateMintSucceededTicketsChecked
}

// MintFailed reports whether the sale ended under-subscribed.
func (s State) MintFailed() bool {
	return s == StateMintFailedNotRefunded || s == StateMintFailedRefunded
}

// input is what a rule looks at.
type input struct {
	now        uint64
	launchDate uint64
	endDate    uint64
	sold       uint32
	numMints   uint32
	join       *layout.JoinData
}

func (in input) joined() bool { return in.join != nil }

func (in input) ticketsLeft() bool {
	return in.join != nil && in.join.NumClaimedTickets < in.join.NumTickets
}

type rule struct {
	state State
	match func(in input) bool
}

// rules is evaluated top to bottom and the first match wins. Every row
// restates the time window it belongs to so rows can be read alone.
var rules = []rule{
	{StatePreLaunch, func(in input) bool { return in.now < in.launchDate }},
	{StateActiveNoTickets, func(in input) bool { return in.now < in.endDate && !in.joined() }},
	{StateActiveTickets, func(in input) bool { return in.now < in.endDate }},
	{StateMintFailedRefunded, func(in input) bool { return in.sold < in.numMints && !in.joined() }},
	{StateMintFailedNotRefunded, func(in input) bool { return in.sold < in.numMints }},
	{StateMintSucceededNoTickets, func(in input) bool { return !in.joined() }},
	{StateMintSucceededTicketsLeft, func(in input) bool { return in.ticketsLeft() }},
	{StateMintSucceededTicketsChecked, func(input) bool { return true }},
}

// Derive computes the cook state at now. A nil launch yields PRE_LAUNCH.
// Launch dates are unix milliseconds.
func Derive(now time.Time, l *layout.LaunchData, j *layout.JoinData) State {
	if l == nil {
		return StatePreLaunch
	}
	in := input{
		now:        millis(now),
		launchDate: l.LaunchDate,
		endDate:    l.EndDate,
		sold:       l.TicketsSold,
		numMints:   l.NumMints,
		join:       j,
	}
	for _, r := range rules {
		if r.match(in) {
			return r.state
		}
	}
	return StateMintSucceededTicketsChecked
}

func millis(t time.Time) uint64 {
	ms := t.UnixMilli()
	if ms < 0 {
		return 0
	}
	return uint64(ms)
}
