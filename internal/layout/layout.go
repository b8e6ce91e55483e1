// Package layout decodes the account layouts owned by the launch program.
//
// All program accounts are borsh encoded and start with a one byte account
// type tag. The client never writes these accounts, so only decoders live here.
package layout

import (
	"encoding/binary"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
)

var (
	// ErrEmptyAccount is returned when an account exists but carries no data.
	// Callers treat it the same as a missing account.
	ErrEmptyAccount = errors.New("account data is empty")

	// ErrAccountType is returned when the type tag does not match the layout.
	ErrAccountType = errors.New("unexpected account type")
)

// AccountType is the first byte of every program account.
type AccountType uint8

const (
	AccountProgram AccountType = iota
	AccountLaunch
	AccountJoin
	AccountUser
	AccountCollection
	AccountAssignment
	AccountAMM
	AccountTimeSeries
	AccountListing
)

// TypeOffset is the byte offset of the account type tag.
const TypeOffset = 0

// decode runs the borsh decoder over data and checks the leading type tag.
func decode(data []byte, want AccountType, dst interface{}) error {
	if len(data) == 0 {
		return ErrEmptyAccount
	}
	if AccountType(data[TypeOffset]) != want {
		return fmt.Errorf("%w: got %d, want %d", ErrAccountType, data[TypeOffset], want)
	}
	if err := bin.NewBorshDecoder(data).Decode(dst); err != nil {
		return fmt.Errorf("decode account type %d: %w", want, err)
	}
	return nil
}

// tokenAmountOffset is where the amount field sits inside an SPL token account.
const tokenAmountOffset = 64

// TokenAmount reads the raw amount of an SPL token account without decoding
// the full layout. Reserve accounts are watched through this path.
func TokenAmount(data []byte) (uint64, error) {
	if len(data) == 0 {
		return 0, ErrEmptyAccount
	}
	if len(data) < tokenAmountOffset+8 {
		return 0, fmt.Errorf("token account too short: %d bytes", len(data))
	}
	return binary.LittleEndian.Uint64(data[tokenAmountOffset : tokenAmountOffset+8]), nil
}
