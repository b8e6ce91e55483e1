// internal/poller/cell.go
package poller

import (
	"sync"

	"github.com/rovshanmuradov/letscook/internal/blockchain"
)

// Sink receives account snapshots from the poller.
type Sink interface {
	Apply(acc *blockchain.Account) bool
}

// Decoder turns account data into a value.
type Decoder[T any] func(data []byte) (*T, error)

// Newer reports whether next should replace cur. Both are non-nil.
type Newer[T any] func(cur, next *T) bool

// Cell holds the latest decoded snapshot of one account. Missing, empty and
// undecodable accounts all leave the cell empty.
type Cell[T any] struct {
	mu       sync.RWMutex
	notifyMu sync.Mutex
	value    *T
	slot     uint64
	kind     string
	decode   Decoder[T]
	newer    Newer[T]
	onChange func(*T)
	onError  func(kind string, err error)
}

// CellOption настраивает Cell.
type CellOption[T any] func(*Cell[T])

// WithNewer only lets snapshots through that newer accepts. Without it the
// last write wins.
func WithNewer[T any](newer Newer[T]) CellOption[T] {
	return func(c *Cell[T]) { c.newer = newer }
}

// OnChange is called after every accepted change, outside the cell lock.
// Calls are serialized and carry the value stored at call time, so the last
// call always sees the final value.
func OnChange[T any](fn func(*T)) CellOption[T] {
	return func(c *Cell[T]) { c.onChange = fn }
}

// OnDecodeError is called when a payload fails to decode.
func OnDecodeError[T any](fn func(kind string, err error)) CellOption[T] {
	return func(c *Cell[T]) { c.onError = fn }
}

// NewCell creates an empty cell.
func NewCell[T any](kind string, decode Decoder[T], opts ...CellOption[T]) *Cell[T] {
	c := &Cell[T]{kind: kind, decode: decode}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the current snapshot or nil.
func (c *Cell[T]) Get() *T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Kind names what the cell holds.
func (c *Cell[T]) Kind() string { return c.kind }

// Apply folds a snapshot into the cell and reports whether it changed.
func (c *Cell[T]) Apply(acc *blockchain.Account) bool {
	var next *T
	if acc != nil && len(acc.Data) > 0 {
		v, err := c.decode(acc.Data)
		if err != nil {
			if c.onError != nil {
				c.onError(c.kind, err)
			}
		} else {
			next = v
		}
	}

	c.mu.Lock()
	switch {
	case next == nil && c.value == nil:
		c.mu.Unlock()
		return false
	case next != nil && c.value != nil && c.newer != nil && !c.newer(c.value, next):
		c.mu.Unlock()
		return false
	}
	c.value = next
	if acc != nil {
		c.slot = acc.Slot
	}
	c.mu.Unlock()

	c.notify()
	return true
}

func (c *Cell[T]) notify() {
	if c.onChange == nil {
		return
	}
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	c.onChange(c.Get())
}

// Set replaces the snapshot directly, bypassing the version check.
func (c *Cell[T]) Set(v *T) {
	c.mu.Lock()
	c.value = v
	c.mu.Unlock()
	c.notify()
}
