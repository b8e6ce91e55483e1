package solbc

import (
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simulationFailure(logs ...interface{}) error {
	return NewError(&jsonrpc.RPCError{
		Code:    -32002,
		Message: "Transaction simulation failed: Error processing Instruction 2: custom program error: 0x1",
		Data:    map[string]interface{}{"logs": logs},
	}, "http://node", "sendTransaction")
}

func TestAnalyzeSendErrorCustomCode(t *testing.T) {
	err := analyzeSendError(simulationFailure(
		"Program ComputeBudget111111111111111111111111111111 success",
		"Program log: Error: tickets sold out",
		"Program failed: custom program error: 0x1771",
	))

	var sim *SimulationError
	require.ErrorAs(t, err, &sim)
	require.NotNil(t, sim.Program)
	assert.Equal(t, 6001, sim.Program.Code)
	assert.Len(t, sim.Logs, 3)

	var rpcErr *jsonrpc.RPCError
	assert.ErrorAs(t, err, &rpcErr, "still unwraps to the RPC error")
}

func TestAnalyzeSendErrorAnchor(t *testing.T) {
	err := analyzeSendError(simulationFailure(
		"Program log: AnchorError occurred. Error Code: InstructionFallbackNotFound. Error Number: 101. Error Message: Fallback functions are not supported.",
	))

	var sim *SimulationError
	require.ErrorAs(t, err, &sim)
	assert.Equal(t, &ProgramError{Code: 101, Name: "InstructionFallbackNotFound", Msg: "Fallback functions are not supported"}, sim.Program)
	assert.Contains(t, err.Error(), "InstructionFallbackNotFound")
}

func TestAnalyzeSendErrorPassThrough(t *testing.T) {
	plain := errors.New("connection refused")
	assert.Same(t, plain, analyzeSendError(plain))

	other := &jsonrpc.RPCError{Code: -32005, Message: "Node is behind"}
	assert.Equal(t, error(other), analyzeSendError(other))

	var sim *SimulationError
	require.ErrorAs(t, analyzeSendError(simulationFailure()), &sim)
	assert.Nil(t, sim.Program)
	assert.Contains(t, sim.Error(), "simulation failed")
}
