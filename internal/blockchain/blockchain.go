// internal/blockchain/blockchain.go
package blockchain

import (
	"errors"

	"github.com/gagliardetto/solana-go"
)

// ErrAccountNotFound is returned when an address holds no account.
var ErrAccountNotFound = errors.New("account not found")

// Account is a raw account snapshot as read or pushed by the node.
type Account struct {
	Address  solana.PublicKey
	Owner    solana.PublicKey
	Lamports uint64
	Data     []byte
	Slot     uint64
}

// Filter matches Bytes at Offset of the account data.
type Filter struct {
	Offset uint64
	Bytes  []byte
}

// SignatureStatus is the outcome pushed for a watched signature. Err is
// the transaction error reported by the node, nil on success.
type SignatureStatus struct {
	Slot uint64
	Err  interface{}
}
