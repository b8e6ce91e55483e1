// internal/txn/fees.go
package txn

import (
	"sort"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
)

// EstimateFee picks the median of the non-zero recent fees, clamped to
// [min, max]. With no samples it returns min.
func EstimateFee(recent []uint64, min, max uint64) uint64 {
	var paid []uint64
	for _, f := range recent {
		if f > 0 {
			paid = append(paid, f)
		}
	}
	if len(paid) == 0 {
		return min
	}
	sort.Slice(paid, func(i, j int) bool { return paid[i] < paid[j] })
	fee := paid[len(paid)/2]
	if fee < min {
		fee = min
	}
	if max > 0 && fee > max {
		fee = max
	}
	return fee
}

// BudgetInstructions returns the compute unit limit and price
// instructions. Zero values are left out.
func BudgetInstructions(units uint32, microLamports uint64) []solana.Instruction {
	var out []solana.Instruction
	if units > 0 {
		out = append(out, computebudget.NewSetComputeUnitLimitInstruction(units).Build())
	}
	if microLamports > 0 {
		out = append(out, computebudget.NewSetComputeUnitPriceInstruction(microLamports).Build())
	}
	return out
}

// writableAccounts lists each writable account once, in first-seen order.
func writableAccounts(instructions []solana.Instruction) []solana.PublicKey {
	seen := make(map[solana.PublicKey]struct{})
	var out []solana.PublicKey
	for _, ix := range instructions {
		for _, meta := range ix.Accounts() {
			if !meta.IsWritable {
				continue
			}
			if _, ok := seen[meta.PublicKey]; ok {
				continue
			}
			seen[meta.PublicKey] = struct{}{}
			out = append(out, meta.PublicKey)
		}
	}
	return out
}
