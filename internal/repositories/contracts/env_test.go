package contracts

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"gitlab.com/TitanInd/escrow-bridge/internal/lib"
)

var testBytecode = []byte{0x60, 0x80, 0x60, 0x40}

type testEnv struct {
	mock     *ethClientMock
	signer   *KeySigner
	conns    *ConnectionProvider
	executor *TxExecutor
	factory  *Factory
	project  *ContractMeta
	token    *ContractMeta
}

var defaultProjectOptions = ProjectOptions{
	TotalsChunkSize:            2,
	TotalsConcurrency:          2,
	PerformanceChunkSize:       2,
	ForceFinalizeGasCap:        2_000_000,
	ForceFinalizeMaxIterations: 10,
}

func newTestSigner(t *testing.T) *KeySigner {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer, err := NewKeySigner(key)
	require.NoError(t, err)
	return signer
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithOptions(t, defaultProjectOptions)
}

func newTestEnvWithOptions(t *testing.T, opts ProjectOptions) *testEnv {
	log := lib.NewTestLogger()
	mock := newEthClientMock()
	signer := newTestSigner(t)
	mock.balances[signer.Address()] = ether(10)

	conns := NewConnectionProvider(signer, 0, time.Second, log)
	require.NoError(t, conns.Init(func(context.Context) (EthereumClient, error) {
		return mock, nil
	}))
	executor := NewTxExecutor(conns, NewGasOracle(conns), 5*time.Second, log)

	projectMeta, err := ProjectMeta("")
	require.NoError(t, err)
	projectMeta.Bytecode = testBytecode
	tokenMeta, err := TokenMeta("")
	require.NoError(t, err)
	tokenMeta.Bytecode = testBytecode

	return &testEnv{
		mock:     mock,
		signer:   signer,
		conns:    conns,
		executor: executor,
		factory:  NewFactory(conns, executor, projectMeta, tokenMeta, opts, log),
		project:  projectMeta,
		token:    tokenMeta,
	}
}

func (e *testEnv) account() common.Address {
	return e.signer.Address()
}

// addProject places a simulated project owned by and with the client set to the acting account
func (e *testEnv) addProject(totalWorkItems uint64, price *big.Int) (common.Address, *projectSim) {
	sim := newProjectSim(e.project.ABI, e.account(), e.account(), totalWorkItems, price)
	addr := randomAddress()
	e.mock.mu.Lock()
	e.mock.contracts[addr] = sim
	e.mock.mu.Unlock()
	return addr, sim
}

func (e *testEnv) addToken(holder common.Address, supply *big.Int) (common.Address, *tokenSim) {
	sim := newTokenSim(e.token.ABI, holder, supply)
	addr := randomAddress()
	e.mock.mu.Lock()
	e.mock.contracts[addr] = sim
	e.mock.mu.Unlock()
	return addr, sim
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

func randomAddress() common.Address {
	key, _ := crypto.GenerateKey()
	return crypto.PubkeyToAddress(key.PublicKey)
}
