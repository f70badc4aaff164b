package contracts

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
	"gitlab.com/TitanInd/escrow-bridge/internal/lib"
	"gitlab.com/TitanInd/escrow-bridge/internal/usererr"
)

func TestExecuteSuccess(t *testing.T) {
	env := newTestEnv(t)
	holder := env.account()
	tokenAddr, _ := env.addToken(holder, ether(100))
	to := randomAddress()

	res, err := env.executor.Execute(context.Background(), &TxRequest{
		ABI:    env.token.ABI,
		To:     &tokenAddr,
		Method: "transfer",
		Args:   []interface{}{to, ether(1)},
	})
	require.NoError(t, err)
	require.True(t, res.Success)

	// price 1 gwei, gas used 100000
	require.Equal(t, big.NewInt(100_000_000_000_000), res.Fee)
	require.Equal(t, env.mock.gasPerCall+GasSafetyMargin, res.Tx.Gas())

	ev, ok := res.Event("Transfer")
	require.True(t, ok)
	require.Equal(t, holder, ev.Args["from"])
	require.Equal(t, to, ev.Args["to"])
	require.Equal(t, ether(1), ev.Args["value"])
}

func TestExecuteGasLimitCappedByBlock(t *testing.T) {
	env := newTestEnv(t)
	env.mock.gasLimit = env.mock.gasPerCall + 5000

	to := randomAddress()
	res, err := SendEther(context.Background(), env.executor, to, big.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, uint64(21000+GasSafetyMargin), res.Tx.Gas())

	tokenAddr, _ := env.addToken(env.account(), ether(1))
	res, err = env.executor.Execute(context.Background(), &TxRequest{
		ABI: env.token.ABI, To: &tokenAddr, Method: "transfer", Args: []interface{}{to, big.NewInt(1)},
	})
	require.NoError(t, err)
	require.Equal(t, env.mock.gasLimit, res.Tx.Gas())
}

func TestExecuteEstimateAboveBlockLimit(t *testing.T) {
	env := newTestEnv(t)
	env.mock.estimateOverride = func(ethereum.CallMsg) (uint64, error) {
		return env.mock.gasLimit + 1, nil
	}

	_, err := SendEther(context.Background(), env.executor, randomAddress(), big.NewInt(1))
	require.True(t, usererr.Is(err, usererr.TransactionFailed))
	require.Zero(t, env.mock.sentCount())
}

func TestExecuteEstimationFailure(t *testing.T) {
	env := newTestEnv(t)
	env.mock.estimateOverride = func(ethereum.CallMsg) (uint64, error) {
		return 0, errors.New("gas required exceeds allowance")
	}

	_, err := SendEther(context.Background(), env.executor, randomAddress(), big.NewInt(1))
	require.True(t, usererr.Is(err, usererr.TransactionFailed))
	require.Zero(t, env.mock.sentCount())
}

func TestExecuteInsufficientEther(t *testing.T) {
	env := newTestEnv(t)
	// fee is 21000 gwei
	env.mock.balances[env.account()] = big.NewInt(21000*1_000_000_000 + 99)

	_, err := SendEther(context.Background(), env.executor, randomAddress(), big.NewInt(100))
	require.True(t, usererr.Is(err, usererr.InsufficientEtherBalance))
	require.Contains(t, err.Error(), env.account().Hex())
	require.Zero(t, env.mock.sentCount())

	_, err = SendEther(context.Background(), env.executor, randomAddress(), big.NewInt(99))
	require.NoError(t, err)
}

func TestExecuteRevertOnSend(t *testing.T) {
	env := newTestEnv(t)
	env.mock.sendErr = errors.New("VM Exception while processing transaction: revert")

	_, err := SendEther(context.Background(), env.executor, randomAddress(), big.NewInt(1))
	require.True(t, usererr.Is(err, usererr.TransactionFailed))

	env.mock.sendErr = errors.New("connection reset by peer")
	_, err = SendEther(context.Background(), env.executor, randomAddress(), big.NewInt(1))
	_, isUserErr := usererr.CodeOf(err)
	require.False(t, isUserErr)

	// nonces of failed sends are reused
	env.mock.sendErr = nil
	res, err := SendEther(context.Background(), env.executor, randomAddress(), big.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, uint64(0), res.Tx.Nonce())
}

func TestExecuteFailedReceipt(t *testing.T) {
	env := newTestEnv(t)
	env.mock.failReceipts = true

	res, err := SendEther(context.Background(), env.executor, randomAddress(), big.NewInt(1))
	require.True(t, usererr.Is(err, usererr.TransactionFailed))
	require.NotNil(t, res)
	require.False(t, res.Success)
}

func TestExecutePreByzantiumReceipt(t *testing.T) {
	env := newTestEnv(t)
	env.mock.preByzantium = true

	res, err := SendEther(context.Background(), env.executor, randomAddress(), big.NewInt(1))
	require.NoError(t, err)
	require.True(t, res.Success)

	env.mock.failReceipts = true
	_, err = SendEther(context.Background(), env.executor, randomAddress(), big.NewInt(1))
	require.True(t, usererr.Is(err, usererr.TransactionFailed))
}

func TestExecuteConcurrentNonces(t *testing.T) {
	env := newTestEnv(t)

	wg := sync.WaitGroup{}
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = SendEther(context.Background(), env.executor, randomAddress(), big.NewInt(1))
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	nonces := map[uint64]bool{}
	for _, tx := range env.mock.sent {
		nonces[tx.Nonce()] = true
	}
	require.Len(t, nonces, 8)
}

func TestExecuteWithNodeSigner(t *testing.T) {
	local := newTestSigner(t)
	client := &rpcClientMock{
		ethClientMock: newEthClientMock(),
		accounts:      []common.Address{local.Address()},
		keys:          map[common.Address]*KeySigner{local.Address(): local},
	}
	client.balances[local.Address()] = ether(1)

	log := lib.NewTestLogger()
	conns := NewConnectionProvider(NodeAccounts{}, 0, time.Second, log)
	require.NoError(t, conns.Init(dialMock(client)))
	executor := NewTxExecutor(conns, NewGasOracle(conns), 0, log)

	to := randomAddress()
	_, err := SendEther(context.Background(), executor, to, big.NewInt(5))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(5), client.balances[to])
}

func TestExecuteReusesNonceOfFailedSend(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// two concurrent submissions took nonces 0 and 1, the first never reached the node
	first, err := env.executor.getNonce(ctx, env.mock, env.account())
	require.NoError(t, err)
	second, err := env.executor.getNonce(ctx, env.mock, env.account())
	require.NoError(t, err)
	require.Equal(t, []uint64{0, 1}, []uint64{first, second})
	env.executor.releaseNonce(first)

	res, err := SendEther(ctx, env.executor, randomAddress(), big.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, first, res.Tx.Nonce())

	// the second fails too, nothing is reserved anymore so the node's pending nonce wins
	env.executor.releaseNonce(second)
	pending, err := env.mock.PendingNonceAt(ctx, env.account())
	require.NoError(t, err)

	res, err = SendEther(ctx, env.executor, randomAddress(), big.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, pending, res.Tx.Nonce())
}

func TestExecuteNonceAfterFailedTotalsChunk(t *testing.T) {
	env := newTestEnv(t)
	project, _ := activeProject(t, env)
	ctx := context.Background()

	var once sync.Once
	env.mock.sendHook = func(*types.Transaction) (err error) {
		once.Do(func() {
			err = errors.New("connection reset by peer")
		})
		return err
	}

	totals := map[common.Address]uint64{}
	for i := 0; i < 4; i++ {
		totals[randomAddress()] = uint64(i + 1)
	}
	_, err := project.UpdateTotals(ctx, totals)
	require.Error(t, err)

	pending, err := env.mock.PendingNonceAt(ctx, env.account())
	require.NoError(t, err)

	res, err := SendEther(ctx, env.executor, randomAddress(), big.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, pending, res.Tx.Nonce())
}

func TestExecuteWithNodeSignerRawResult(t *testing.T) {
	local := newTestSigner(t)
	client := &rpcClientMock{
		ethClientMock: newEthClientMock(),
		accounts:      []common.Address{local.Address()},
		keys:          map[common.Address]*KeySigner{local.Address(): local},
		rawSignResult: true,
	}
	client.balances[local.Address()] = ether(1)

	log := lib.NewTestLogger()
	conns := NewConnectionProvider(NodeAccounts{}, 0, time.Second, log)
	require.NoError(t, conns.Init(dialMock(client)))
	executor := NewTxExecutor(conns, NewGasOracle(conns), 0, log)

	to := randomAddress()
	_, err := SendEther(context.Background(), executor, to, big.NewInt(5))
	require.NoError(t, err)
	require.Equal(t, big.NewInt(5), client.balances[to])
}
