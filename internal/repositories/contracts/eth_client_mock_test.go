package contracts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// simContract is an in-memory stand-in for contract code. exec validates the
// call and mutates state only when apply is set, so estimation can reuse it.
type simContract interface {
	call(from common.Address, input []byte) ([]byte, error)
	exec(from common.Address, input []byte, value *big.Int, apply bool) ([]*types.Log, error)
}

type ethClientMock struct {
	mu sync.Mutex

	networkID  *big.Int
	chainID    *big.Int
	gasLimit   uint64
	gasPrice   *big.Int
	gasPerCall uint64

	balances   map[common.Address]*big.Int
	contracts  map[common.Address]simContract
	nonces     map[common.Address]uint64
	usedNonces map[common.Address]map[uint64]bool
	receipts   map[common.Hash]*types.Receipt
	sent       []*types.Transaction

	deploy func(from common.Address, data []byte) (simContract, error)

	networkErr       error
	estimateOverride func(msg ethereum.CallMsg) (uint64, error)
	sendErr          error
	sendHook         func(tx *types.Transaction) error
	chainErr         error
	failReceipts     bool
	preByzantium     bool
}

func newEthClientMock() *ethClientMock {
	return &ethClientMock{
		networkID:  big.NewInt(5777),
		chainID:    big.NewInt(1337),
		gasLimit:   6_000_000,
		gasPrice:   big.NewInt(1_000_000_000),
		gasPerCall: 100_000,
		balances:   make(map[common.Address]*big.Int),
		contracts:  make(map[common.Address]simContract),
		nonces:     make(map[common.Address]uint64),
		usedNonces: make(map[common.Address]map[uint64]bool),
		receipts:   make(map[common.Hash]*types.Receipt),
	}
}

func revert(format string, args ...interface{}) error {
	return fmt.Errorf("execution reverted: %s", fmt.Sprintf(format, args...))
}

func (m *ethClientMock) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *ethClientMock) NetworkID(context.Context) (*big.Int, error) {
	if m.networkErr != nil {
		return nil, m.networkErr
	}
	return m.networkID, nil
}

func (m *ethClientMock) ChainID(context.Context) (*big.Int, error) {
	if m.chainErr != nil {
		return nil, m.chainErr
	}
	return m.chainID, nil
}

func (m *ethClientMock) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &types.Header{GasLimit: m.gasLimit, Number: big.NewInt(int64(len(m.sent)))}, nil
}

func (m *ethClientMock) BalanceAt(_ context.Context, account common.Address, _ *big.Int) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.balances[account]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

func (m *ethClientMock) CodeAt(_ context.Context, contract common.Address, _ *big.Int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.contracts[contract]; ok {
		return []byte{0x60, 0x80}, nil
	}
	return nil, nil
}

func (m *ethClientMock) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return m.CodeAt(ctx, account, nil)
}

func (m *ethClientMock) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if call.To == nil {
		return nil, errors.New("call without recipient")
	}
	sim, ok := m.contracts[*call.To]
	if !ok {
		return nil, nil
	}
	return sim.call(call.From, call.Data)
}

func (m *ethClientMock) PendingNonceAt(_ context.Context, account common.Address) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nonces[account], nil
}

func (m *ethClientMock) SuggestGasPrice(context.Context) (*big.Int, error) {
	return m.gasPrice, nil
}

func (m *ethClientMock) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return m.gasPrice, nil
}

func (m *ethClientMock) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	if m.estimateOverride != nil {
		return m.estimateOverride(msg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if msg.To == nil {
		return m.gasPerCall, nil
	}
	sim, ok := m.contracts[*msg.To]
	if !ok {
		return 21000, nil
	}
	if _, err := sim.exec(msg.From, msg.Data, msg.Value, false); err != nil {
		return 0, err
	}
	return m.gasPerCall, nil
}

func (m *ethClientMock) SendTransaction(_ context.Context, tx *types.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sendErr != nil {
		return m.sendErr
	}
	if m.sendHook != nil {
		if err := m.sendHook(tx); err != nil {
			return err
		}
	}
	from, err := types.Sender(types.LatestSignerForChainID(m.chainID), tx)
	if err != nil {
		return err
	}
	if m.usedNonces[from] == nil {
		m.usedNonces[from] = make(map[uint64]bool)
	}
	if m.usedNonces[from][tx.Nonce()] {
		return fmt.Errorf("nonce too low: %d", tx.Nonce())
	}
	m.usedNonces[from][tx.Nonce()] = true
	for m.usedNonces[from][m.nonces[from]] {
		m.nonces[from]++
	}
	m.sent = append(m.sent, tx)

	receipt := &types.Receipt{
		TxHash:      tx.Hash(),
		GasUsed:     m.gasPerCall,
		BlockNumber: big.NewInt(int64(len(m.sent))),
		Status:      types.ReceiptStatusSuccessful,
	}

	var execErr error
	switch {
	case tx.To() == nil:
		addr := crypto.CreateAddress(from, tx.Nonce())
		sim, err := m.deploy(from, tx.Data())
		if err != nil {
			execErr = err
			break
		}
		m.contracts[addr] = sim
		receipt.ContractAddress = addr
	case m.contracts[*tx.To()] != nil:
		logs, err := m.contracts[*tx.To()].exec(from, tx.Data(), tx.Value(), true)
		if err != nil {
			execErr = err
			break
		}
		for _, l := range logs {
			l.Address = *tx.To()
			l.TxHash = tx.Hash()
		}
		receipt.Logs = logs
	default:
		receipt.GasUsed = 21000
		to := *tx.To()
		if m.balances[to] == nil {
			m.balances[to] = new(big.Int)
		}
		m.balances[to].Add(m.balances[to], tx.Value())
	}

	if execErr != nil || m.failReceipts {
		receipt.Status = types.ReceiptStatusFailed
		receipt.Logs = nil
		receipt.GasUsed = tx.Gas()
	}
	if m.preByzantium {
		receipt.PostState = common.Hash{1}.Bytes()
		receipt.Status = 0
	}

	m.receipts[tx.Hash()] = receipt
	return nil
}

func (m *ethClientMock) TransactionReceipt(_ context.Context, txHash common.Hash) (*types.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.receipts[txHash]; ok {
		return r, nil
	}
	return nil, ethereum.NotFound
}

func (m *ethClientMock) FilterLogs(context.Context, ethereum.FilterQuery) ([]types.Log, error) {
	return nil, nil
}

func (m *ethClientMock) SubscribeFilterLogs(context.Context, ethereum.FilterQuery, chan<- types.Log) (ethereum.Subscription, error) {
	return nil, errors.New("subscriptions are not supported")
}

// rpcClientMock adds raw json-rpc for node managed accounts
type rpcClientMock struct {
	*ethClientMock
	accounts      []common.Address
	keys          map[common.Address]*KeySigner
	rawSignResult bool
}

func (r *rpcClientMock) CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	switch method {
	case "eth_accounts":
		*(result.(*[]common.Address)) = r.accounts
		return nil
	case "eth_signTransaction":
		a := args[0].(signTxArgs)
		signer, ok := r.keys[a.From]
		if !ok {
			return fmt.Errorf("unknown account %s", a.From)
		}
		tx := types.NewTx(&types.LegacyTx{
			Nonce:    uint64(a.Nonce),
			GasPrice: a.GasPrice.ToInt(),
			Gas:      uint64(a.Gas),
			To:       a.To,
			Value:    a.Value.ToInt(),
			Data:     a.Data,
		})
		signed, err := signer.SignTx(ctx, tx, r.chainID)
		if err != nil {
			return err
		}
		raw, err := signed.MarshalBinary()
		if err != nil {
			return err
		}
		// geth answers {raw, tx}, ganache the bare raw transaction
		var body interface{} = map[string]interface{}{"raw": hexutil.Bytes(raw), "tx": signed}
		if r.rawSignResult {
			body = hexutil.Bytes(raw)
		}
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, result)
	}
	return fmt.Errorf("method %s is not supported", method)
}

func unpackInput(contractABI *abi.ABI, input []byte) (*abi.Method, []interface{}, error) {
	if len(input) < 4 {
		return nil, nil, revert("no method selector")
	}
	method, err := contractABI.MethodById(input[:4])
	if err != nil {
		return nil, nil, revert("unknown method")
	}
	args, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, nil, revert("bad arguments: %s", err)
	}
	return method, args, nil
}
