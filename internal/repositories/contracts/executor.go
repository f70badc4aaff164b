package contracts

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"gitlab.com/TitanInd/escrow-bridge/internal/interfaces"
	"gitlab.com/TitanInd/escrow-bridge/internal/usererr"
	"golang.org/x/exp/slices"
)

// GasSafetyMargin is added on top of the estimate, capped by the block gas limit
const GasSafetyMargin uint64 = 20000

// TxRequest describes a state-changing call. A nil To deploys Bytecode with
// Args as constructor arguments.
type TxRequest struct {
	ABI      *abi.ABI
	To       *common.Address
	Method   string
	Args     []interface{}
	Value    *big.Int
	Bytecode []byte
}

func (r *TxRequest) methodName() string {
	if r.To == nil {
		return "constructor"
	}
	if r.ABI == nil {
		return "transfer of ether"
	}
	return r.Method
}

func (r *TxRequest) value() *big.Int {
	if r.Value == nil {
		return new(big.Int)
	}
	return r.Value
}

func (r *TxRequest) pack() ([]byte, error) {
	if r.To == nil {
		if len(r.Bytecode) == 0 {
			return nil, ErrNoBytecode
		}
		if r.ABI == nil {
			return common.CopyBytes(r.Bytecode), nil
		}
		args, err := r.ABI.Pack("", r.Args...)
		if err != nil {
			return nil, usererr.Wrap(err, usererr.InvalidData, "invalid constructor arguments")
		}
		return append(common.CopyBytes(r.Bytecode), args...), nil
	}
	if r.ABI == nil {
		return nil, nil
	}
	data, err := r.ABI.Pack(r.Method, r.Args...)
	if err != nil {
		return nil, usererr.Wrap(err, usererr.InvalidData, "invalid arguments of %s", r.Method)
	}
	return data, nil
}

// TxExecutor submits transactions from the acting account after checking
// that they fit into a block and that the account can pay for them
type TxExecutor struct {
	// config
	timeout time.Duration

	// state
	nonce    uint64   // next nonce to hand out while reservations are open
	reserved int      // nonces handed out but not yet accepted or returned
	released []uint64 // returned nonces below nonce, reused first
	nonceMu  sync.Mutex

	// deps
	connections *ConnectionProvider
	gas         *GasOracle
	log         interfaces.ILogger
}

func NewTxExecutor(connections *ConnectionProvider, gas *GasOracle, timeout time.Duration, log interfaces.ILogger) *TxExecutor {
	return &TxExecutor{
		timeout:     timeout,
		connections: connections,
		gas:         gas,
		log:         log,
	}
}

// Estimate runs the read-only part of Execute and returns the gas estimate
func (e *TxExecutor) Estimate(ctx context.Context, req *TxRequest) (uint64, error) {
	conn, err := e.connections.Get(ctx)
	if err != nil {
		return 0, err
	}
	data, err := req.pack()
	if err != nil {
		return 0, err
	}
	return e.estimate(ctx, conn, req, data)
}

func (e *TxExecutor) estimate(ctx context.Context, conn *Connection, req *TxRequest, data []byte) (uint64, error) {
	gas, err := conn.Client.EstimateGas(ctx, ethereum.CallMsg{
		From:  conn.Account(),
		To:    req.To,
		Gas:   conn.BlockGasLimit,
		Value: req.value(),
		Data:  data,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return 0, err
		}
		return 0, usererr.Wrap(err, usererr.TransactionFailed, "gas estimation of %s failed", req.methodName())
	}
	return gas, nil
}

func (e *TxExecutor) Execute(ctx context.Context, req *TxRequest) (*TxResult, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	conn, err := e.connections.Get(ctx)
	if err != nil {
		return nil, err
	}
	data, err := req.pack()
	if err != nil {
		return nil, err
	}
	method := req.methodName()
	from := conn.Account()
	value := req.value()

	estimate, err := e.estimate(ctx, conn, req, data)
	if err != nil {
		return nil, err
	}
	if estimate > conn.BlockGasLimit {
		return nil, usererr.New(usererr.TransactionFailed, "%s takes more gas (%d) than the block gas limit of %d", method, estimate, conn.BlockGasLimit)
	}

	gasPrice, err := e.gas.GasPrice(ctx)
	if err != nil {
		return nil, err
	}

	fee := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(estimate))
	required := new(big.Int).Add(fee, value)
	balance, err := conn.Client.BalanceAt(ctx, from, nil)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(required) < 0 {
		return nil, usererr.New(usererr.InsufficientEtherBalance, "balance of address %s is insufficient to call method %s: have %s wei, need %s wei", from, method, balance, required)
	}

	gasLimit := estimate + GasSafetyMargin
	if gasLimit > conn.BlockGasLimit {
		gasLimit = conn.BlockGasLimit
	}

	nonce, err := e.getNonce(ctx, conn.Client, from)
	if err != nil {
		return nil, err
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       req.To,
		Value:    value,
		Data:     data,
	})

	signed, err := conn.Signer.SignTx(ctx, tx, conn.ChainID)
	if err != nil {
		e.releaseNonce(nonce)
		return nil, err
	}

	if err := conn.Client.SendTransaction(ctx, signed); err != nil {
		e.releaseNonce(nonce)
		return nil, translateNodeError(err)
	}
	e.commitNonce()
	e.log.Debugf("sent %s, tx %s, nonce %d, gas %d, gas price %s", method, signed.Hash(), nonce, gasLimit, gasPrice)

	receipt, err := bind.WaitMined(ctx, conn.Client, signed)
	if err != nil {
		return nil, translateNodeError(err)
	}

	result := newTxResult(signed, receipt, req.ABI)
	if !result.Success {
		return result, usererr.New(usererr.TransactionFailed, "transaction %s of %s failed in block %s", signed.Hash(), method, receipt.BlockNumber)
	}
	e.log.Debugf("mined %s, tx %s, gas used %d, fee %s", method, signed.Hash(), receipt.GasUsed, result.Fee)

	return result, nil
}

// getNonce merges the pending nonce with the local reservations so that
// concurrent submissions never reuse a nonce. With no reservation open the
// node's pending nonce is taken as is.
func (e *TxExecutor) getNonce(ctx context.Context, client EthereumClient, from common.Address) (uint64, error) {
	e.nonceMu.Lock()
	defer e.nonceMu.Unlock()

	pending, err := client.PendingNonceAt(ctx, from)
	if err != nil {
		return 0, err
	}

	if e.reserved == 0 {
		e.nonce = pending
		e.released = e.released[:0]
	}

	// returned nonces fill the gaps they left before new ones are taken
	for len(e.released) > 0 {
		nonce := e.released[0]
		e.released = e.released[1:]
		if nonce >= pending {
			e.reserved++
			return nonce, nil
		}
	}

	nonce := pending
	if e.nonce > pending {
		nonce = e.nonce
	}
	e.nonce = nonce + 1
	e.reserved++

	return nonce, nil
}

// commitNonce closes the reservation of a nonce accepted by the node
func (e *TxExecutor) commitNonce() {
	e.nonceMu.Lock()
	defer e.nonceMu.Unlock()

	e.reserved--
}

// releaseNonce returns a nonce that never reached the node
func (e *TxExecutor) releaseNonce(nonce uint64) {
	e.nonceMu.Lock()
	defer e.nonceMu.Unlock()

	e.reserved--
	if e.nonce == nonce+1 {
		e.nonce = nonce
		return
	}
	e.released = append(e.released, nonce)
	slices.Sort(e.released)
}
