// internal/txn/tracker.go
package txn

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// Status is where a submission is in its lifecycle.
type Status int

const (
	StatusIdle Status = iota
	StatusSigning
	StatusSubmitted
	StatusConfirmed
	StatusFailed
	StatusTimedOut
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusSigning:
		return "signing"
	case StatusSubmitted:
		return "submitted"
	case StatusConfirmed:
		return "confirmed"
	case StatusFailed:
		return "failed"
	case StatusTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can follow.
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusFailed || s == StatusTimedOut
}

// Pending reports whether a transaction is in flight.
func (s Status) Pending() bool {
	return s == StatusSigning || s == StatusSubmitted
}

var (
	ErrActionPending     = errors.New("action already pending")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Key identifies one logical action of one owner.
type Key struct {
	Action string
	Page   string
	Owner  solana.PublicKey
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Action, k.Page, k.Owner)
}

var transitions = map[Status][]Status{
	StatusSigning:   {StatusSubmitted, StatusFailed},
	StatusSubmitted: {StatusConfirmed, StatusFailed, StatusTimedOut},
}

// Tracker enforces at most one pending transaction per key.
type Tracker struct {
	mu     sync.Mutex
	states map[Key]Status
}

// NewTracker создает трекер.
func NewTracker() *Tracker {
	return &Tracker{states: make(map[Key]Status)}
}

// Begin moves key into SIGNING. It fails with ErrActionPending while an
// earlier submission for the same key is still in flight.
func (t *Tracker) Begin(key Key) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur := t.states[key]; cur.Pending() {
		return fmt.Errorf("%w: %s is %s", ErrActionPending, key, cur)
	}
	t.states[key] = StatusSigning
	return nil
}

// Advance moves key to the next status.
func (t *Tracker) Advance(key Key, to Status) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur := t.states[key]
	for _, next := range transitions[cur] {
		if next == to {
			t.states[key] = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cur, to)
}

// Status returns the last status of key.
func (t *Tracker) Status(key Key) Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.states[key]
}

// Pending returns the keys with a transaction in flight.
func (t *Tracker) Pending() []Key {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Key
	for k, s := range t.states {
		if s.Pending() {
			out = append(out, k)
		}
	}
	return out
}
