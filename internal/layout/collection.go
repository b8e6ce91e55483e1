// internal/layout/collection.go
package layout

import (
	"github.com/gagliardetto/solana-go"
)

// Indexes into CollectionData.Keys.
const (
	CollectionKeySeller = iota
	CollectionKeyTeamWallet
	CollectionKeyMintAddress
	CollectionKeyCollectionMint
)

// CollectionData is the hybrid collection account derived from
// [page_name, "Collection"].
type CollectionData struct {
	AccountType     AccountType
	NumInteractions uint16
	PageName        string
	Name            string
	Symbol          string
	Icon            string
	Banner          string
	Description     string
	Total           uint32
	NumAvailable    uint32
	SwapPrice       uint64
	SwapFee         uint16
	LaunchDate      uint64
	Flags           []uint8
	Keys            []solana.PublicKey
}

// DecodeCollection decodes a collection account.
func DecodeCollection(data []byte) (*CollectionData, error) {
	var c CollectionData
	if err := decode(data, AccountCollection, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Key returns the key at idx or the zero key.
func (c *CollectionData) Key(idx int) solana.PublicKey {
	if idx < 0 || idx >= len(c.Keys) {
		return solana.PublicKey{}
	}
	return c.Keys[idx]
}

// AssignmentData records which NFT, if any, has been assigned to a user
// for a collection. Derived from [user, collection_mint, "assignment"].
type AssignmentData struct {
	AccountType     AccountType
	NumInteractions uint16
	NFT             solana.PublicKey
	NFTIndex        uint32
	Status          uint8
	RandomAddress   solana.PublicKey
}

// DecodeAssignment decodes an assignment account.
func DecodeAssignment(data []byte) (*AssignmentData, error) {
	var a AssignmentData
	if err := decode(data, AccountAssignment, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
