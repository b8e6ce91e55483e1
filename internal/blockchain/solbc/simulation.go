// internal/blockchain/solbc/simulation.go
package solbc

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

// ProgramError is the failure a program reported while the node simulated
// a transaction.
type ProgramError struct {
	Code int
	Name string
	Msg  string
}

// SimulationError is returned by SendTransaction when preflight rejects a
// transaction. It unwraps to the RPC error.
type SimulationError struct {
	Err     error
	Logs    []string
	Program *ProgramError
}

func (e *SimulationError) Error() string {
	if e.Program != nil {
		if e.Program.Name != "" {
			return fmt.Sprintf("simulation failed: program error %d (%s): %s", e.Program.Code, e.Program.Name, e.Program.Msg)
		}
		return fmt.Sprintf("simulation failed: program error %d", e.Program.Code)
	}
	return fmt.Sprintf("simulation failed: %v", e.Err)
}

func (e *SimulationError) Unwrap() error { return e.Err }

var customErrorRe = regexp.MustCompile(`custom program error: (0x[0-9a-fA-F]+)`)

// analyzeSendError turns a preflight failure into a SimulationError and
// leaves every other error as it is.
func analyzeSendError(err error) error {
	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) || !strings.Contains(rpcErr.Message, "Transaction simulation failed") {
		return err
	}
	sim := &SimulationError{Err: err}

	data, ok := rpcErr.Data.(map[string]interface{})
	if !ok {
		return sim
	}
	logs, _ := data["logs"].([]interface{})
	for _, entry := range logs {
		line, ok := entry.(string)
		if !ok {
			continue
		}
		sim.Logs = append(sim.Logs, line)
		if sim.Program != nil {
			continue
		}
		if strings.Contains(line, "AnchorError occurred") {
			sim.Program = parseAnchorErrorLog(line)
		} else if m := customErrorRe.FindStringSubmatch(line); m != nil {
			if code, perr := strconv.ParseInt(m[1], 0, 64); perr == nil {
				sim.Program = &ProgramError{Code: int(code)}
			}
		}
	}
	return sim
}

// parseAnchorErrorLog reads lines such as
// "Program log: AnchorError occurred. Error Code: Foo. Error Number: 6000. Error Message: Bar."
func parseAnchorErrorLog(line string) *ProgramError {
	field := func(label string) string {
		parts := strings.SplitN(line, label, 2)
		if len(parts) < 2 {
			return ""
		}
		return strings.TrimSpace(strings.SplitN(parts[1], ".", 2)[0])
	}
	pe := &ProgramError{
		Name: field("Error Code:"),
		Msg:  field("Error Message:"),
	}
	pe.Code, _ = strconv.Atoi(field("Error Number:"))
	return pe
}
