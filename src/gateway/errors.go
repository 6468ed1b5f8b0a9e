package gateway

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

var (
	// ErrTransactionReverted means the call reverted, either during the
	// pre-submission simulation or with a zero-status receipt. Terminal for
	// the invocation; the cause is usually structural.
	ErrTransactionReverted = errors.New("transaction reverted")

	// ErrSubmissionFailed covers network and RPC-level failures. The next
	// scheduled cycle retries; the transaction may still land, so callers
	// must re-query before any compensating action.
	ErrSubmissionFailed = errors.New("transaction submission failed")

	// ErrConfigurationMissing is fatal at process level.
	ErrConfigurationMissing = errors.New("gateway configuration missing")
)

type errorWithData interface {
	ErrorData() interface{}
}

// revertReason extracts a human-readable Error(string) reason from an RPC
// error, when the node returned the revert data.
func revertReason(err error) (string, bool) {
	var dataErr errorWithData
	if !errors.As(err, &dataErr) {
		return "", false
	}

	hexData, ok := dataErr.ErrorData().(string)
	if !ok {
		return "", false
	}

	raw, decodeErr := hex.DecodeString(strings.TrimPrefix(hexData, "0x"))
	if decodeErr != nil {
		return "", false
	}

	reason, unpackErr := abi.UnpackRevert(raw)
	if unpackErr != nil {
		return "", false
	}
	return reason, true
}

// classifyCallError maps a simulation/submission error onto the gateway
// taxonomy, attaching the decoded revert reason when available.
func classifyCallError(op string, err error) error {
	if reason, ok := revertReason(err); ok {
		return fmt.Errorf("%s: %w: %s", op, ErrTransactionReverted, reason)
	}
	if strings.Contains(strings.ToLower(err.Error()), "execution reverted") {
		return fmt.Errorf("%s: %w: %v", op, ErrTransactionReverted, err)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrSubmissionFailed, err)
}
