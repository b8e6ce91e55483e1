package txn

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateFee(t *testing.T) {
	tests := []struct {
		name   string
		recent []uint64
		want   uint64
	}{
		{"no samples", nil, 1_000},
		{"only zeros", []uint64{0, 0, 0}, 1_000},
		{"median", []uint64{5_000, 0, 20_000, 10_000}, 10_000},
		{"below min", []uint64{10, 20, 30}, 1_000},
		{"above max", []uint64{5_000_000, 9_000_000}, 1_000_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateFee(tt.recent, 1_000, 1_000_000))
		})
	}
}

func TestBudgetInstructions(t *testing.T) {
	ixs := BudgetInstructions(400_000, 5_000)
	require.Len(t, ixs, 2)
	for _, ix := range ixs {
		assert.Equal(t, computebudget.ProgramID, ix.ProgramID())
	}

	assert.Len(t, BudgetInstructions(0, 5_000), 1)
	assert.Empty(t, BudgetInstructions(0, 0))
}

func TestWritableAccounts(t *testing.T) {
	a, b, c := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
	ix1 := solana.NewInstruction(solana.SystemProgramID, solana.AccountMetaSlice{
		solana.Meta(a).WRITE().SIGNER(),
		solana.Meta(b),
	}, nil)
	ix2 := solana.NewInstruction(solana.SystemProgramID, solana.AccountMetaSlice{
		solana.Meta(c).WRITE(),
		solana.Meta(a).WRITE(),
	}, nil)

	assert.Equal(t, []solana.PublicKey{a, c}, writableAccounts([]solana.Instruction{ix1, ix2}))
}
