// internal/layout/token.go
package layout

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
)

// MintData is a decoded SPL mint together with the program that owns it.
type MintData struct {
	Address solana.PublicKey
	Program solana.PublicKey
	Mint    token.Mint
}

// Decimals returns the mint decimals.
func (m *MintData) Decimals() uint8 { return m.Mint.Decimals }

// DecodeMint decodes the base mint layout. Token-2022 extensions that follow
// the base layout are ignored.
func DecodeMint(address, owner solana.PublicKey, data []byte) (*MintData, error) {
	if len(data) == 0 {
		return nil, ErrEmptyAccount
	}
	m := &MintData{Address: address, Program: owner}
	if err := bin.NewBinDecoder(data).Decode(&m.Mint); err != nil {
		return nil, fmt.Errorf("decode mint %s: %w", address, err)
	}
	return m, nil
}

// DecodeTokenAccount decodes an SPL token account.
func DecodeTokenAccount(data []byte) (*token.Account, error) {
	if len(data) == 0 {
		return nil, ErrEmptyAccount
	}
	var acc token.Account
	if err := bin.NewBinDecoder(data).Decode(&acc); err != nil {
		return nil, fmt.Errorf("decode token account: %w", err)
	}
	return &acc, nil
}
