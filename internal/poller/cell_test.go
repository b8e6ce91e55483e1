package poller

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rovshanmuradov/letscook/internal/blockchain"
)

type counter struct {
	N int
}

func decodeCounter(data []byte) (*counter, error) {
	if data[0] == 0xff {
		return nil, errors.New("bad payload")
	}
	return &counter{N: int(data[0])}, nil
}

func increasing(cur, next *counter) bool { return next.N > cur.N }

func account(b ...byte) *blockchain.Account {
	return &blockchain.Account{Data: b}
}

func TestCellApply(t *testing.T) {
	var decodeErrs int
	var changes []*counter
	c := NewCell("counter", decodeCounter,
		WithNewer(increasing),
		OnChange(func(v *counter) { changes = append(changes, v) }),
		OnDecodeError[counter](func(string, error) { decodeErrs++ }),
	)

	assert.Nil(t, c.Get())
	assert.False(t, c.Apply(nil), "absent into empty is no change")

	assert.True(t, c.Apply(account(2)))
	assert.Equal(t, 2, c.Get().N)

	assert.False(t, c.Apply(account(1)), "older snapshot is ignored")
	assert.False(t, c.Apply(account(2)), "same version is ignored")
	assert.Equal(t, 2, c.Get().N)

	assert.True(t, c.Apply(account(3)))
	assert.Equal(t, 3, c.Get().N)

	assert.True(t, c.Apply(account(0xff)), "undecodable payload clears the cell")
	assert.Nil(t, c.Get())
	assert.Equal(t, 1, decodeErrs)

	assert.True(t, c.Apply(account(1)), "any value is newer than absent")
	assert.True(t, c.Apply(account(5)))
	assert.True(t, c.Apply(account()), "zero-length data clears the cell")
	assert.Nil(t, c.Get())

	assert.Len(t, changes, 6)
}

func TestCellLastWriteWins(t *testing.T) {
	c := NewCell("counter", decodeCounter)
	c.Apply(account(5))
	assert.True(t, c.Apply(account(1)))
	assert.Equal(t, 1, c.Get().N)

	c.Set(&counter{N: 9})
	assert.Equal(t, 9, c.Get().N)
	assert.Equal(t, "counter", c.Kind())
}

func TestCellConcurrentChangesEndOnStoredValue(t *testing.T) {
	var mu sync.Mutex
	var last *counter
	c := NewCell("counter", decodeCounter,
		WithNewer(increasing),
		OnChange(func(v *counter) {
			mu.Lock()
			last = v
			mu.Unlock()
		}),
	)

	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(1)
		go func(n byte) {
			defer wg.Done()
			c.Apply(account(n))
		}(byte(i))
	}
	wg.Wait()

	assert.Equal(t, 100, c.Get().N)
	mu.Lock()
	defer mu.Unlock()
	assert.Same(t, c.Get(), last)
}
