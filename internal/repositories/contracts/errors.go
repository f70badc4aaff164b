package contracts

import (
	"context"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/rpc"
	"gitlab.com/TitanInd/escrow-bridge/internal/usererr"
)

var (
	ErrNoBytecode       = errors.New("contract bytecode is not available, configure the build artifact")
	ErrUnexpectedOutput = errors.New("unexpected contract call output")
	ErrNoABI            = errors.New("contract abi is not available")
)

// translateNodeError is the single place where node error strings are inspected.
// Reverts become TransactionFailed, missing code becomes ContractNotFound,
// everything else is returned as is.
func translateNodeError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := usererr.CodeOf(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, bind.ErrNoCode) || strings.Contains(err.Error(), "no contract code at given address") {
		return usererr.Wrap(err, usererr.ContractNotFound, "contract not found")
	}
	if isRevert(err) {
		return usererr.Wrap(err, usererr.TransactionFailed, "transaction reverted")
	}
	return err
}

func isRevert(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "revert")
}

// json-rpc code for an unknown method
const rpcMethodNotFound = -32601

func isMethodNotFound(err error) bool {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == rpcMethodNotFound {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "method not found") || strings.Contains(msg, "does not exist/is not available")
}
