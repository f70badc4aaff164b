package contracts

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type Event struct {
	Name    string
	Address common.Address
	Args    map[string]interface{}
}

type TxResult struct {
	Tx      *types.Transaction
	Receipt *types.Receipt
	Success bool
	Fee     *big.Int
	Events  []Event
}

func (r *TxResult) Event(name string) (Event, bool) {
	for _, ev := range r.Events {
		if ev.Name == name {
			return ev, true
		}
	}
	return Event{}, false
}

func (r *TxResult) HasEvent(name string) bool {
	_, ok := r.Event(name)
	return ok
}

// receiptSucceeded reads the status field on post-Byzantium receipts. Older receipts
// carry a state root instead, there a transaction that used all of its gas is
// treated as failed.
func receiptSucceeded(tx *types.Transaction, receipt *types.Receipt) bool {
	if len(receipt.PostState) == 0 {
		return receipt.Status == types.ReceiptStatusSuccessful
	}
	return receipt.GasUsed < tx.Gas()
}

func newTxResult(tx *types.Transaction, receipt *types.Receipt, contractABI *abi.ABI) *TxResult {
	fee := new(big.Int).Mul(tx.GasPrice(), new(big.Int).SetUint64(receipt.GasUsed))
	return &TxResult{
		Tx:      tx,
		Receipt: receipt,
		Success: receiptSucceeded(tx, receipt),
		Fee:     fee,
		Events:  decodeEvents(contractABI, receipt.Logs),
	}
}

// decodeEvents skips logs that the abi does not describe
func decodeEvents(contractABI *abi.ABI, logs []*types.Log) []Event {
	if contractABI == nil {
		return nil
	}

	var events []Event
	for _, log := range logs {
		if log == nil || len(log.Topics) == 0 {
			continue
		}
		ev, err := contractABI.EventByID(log.Topics[0])
		if err != nil {
			continue
		}

		args := make(map[string]interface{})
		if err := ev.Inputs.UnpackIntoMap(args, log.Data); err != nil {
			continue
		}

		var indexed abi.Arguments
		for _, arg := range ev.Inputs {
			if arg.Indexed {
				indexed = append(indexed, arg)
			}
		}
		if err := abi.ParseTopicsIntoMap(args, indexed, log.Topics[1:]); err != nil {
			continue
		}

		events = append(events, Event{Name: ev.Name, Address: log.Address, Args: args})
	}
	return events
}
