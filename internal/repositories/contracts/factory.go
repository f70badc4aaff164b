package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"gitlab.com/TitanInd/escrow-bridge/internal/interfaces"
)

// Factory hands out proxies that share one connection and one executor
type Factory struct {
	project     *ContractEnv
	token       *ContractEnv
	projectOpts ProjectOptions
	connections *ConnectionProvider
	executor    *TxExecutor
}

func NewFactory(connections *ConnectionProvider, executor *TxExecutor, projectMeta, tokenMeta *ContractMeta, projectOpts ProjectOptions, log interfaces.ILogger) *Factory {
	return &Factory{
		project: &ContractEnv{
			Meta:        projectMeta,
			Connections: connections,
			Executor:    executor,
			Log:         log.Named("PROJECT"),
		},
		token: &ContractEnv{
			Meta:        tokenMeta,
			Connections: connections,
			Executor:    executor,
			Log:         log.Named("TOKEN"),
		},
		projectOpts: projectOpts,
		connections: connections,
		executor:    executor,
	}
}

func (f *Factory) Connection(ctx context.Context) (*Connection, error) {
	return f.connections.Get(ctx)
}

func (f *Factory) Project(ctx context.Context, address common.Address) (*ProjectContract, error) {
	return BindProject(ctx, f.project, address, f.projectOpts)
}

func (f *Factory) DeployProject(ctx context.Context, params DeployParams) (*ProjectContract, *TxResult, error) {
	return DeployProject(ctx, f.project, params, f.projectOpts)
}

func (f *Factory) EstimateProjectDeployGas(ctx context.Context, params DeployParams) (uint64, error) {
	return EstimateProjectDeployGas(ctx, f.project, params)
}

func (f *Factory) Token(ctx context.Context, address common.Address) (*TokenContract, error) {
	return BindToken(ctx, f.token, address)
}

func (f *Factory) DeployToken(ctx context.Context, args ...interface{}) (*TokenContract, *TxResult, error) {
	return DeployToken(ctx, f.token, args...)
}

func (f *Factory) SendEther(ctx context.Context, to common.Address, value *big.Int) (*TxResult, error) {
	return SendEther(ctx, f.executor, to, value)
}

func (f *Factory) EtherBalance(ctx context.Context, address common.Address) (*big.Int, error) {
	conn, err := f.connections.Get(ctx)
	if err != nil {
		return nil, err
	}
	return conn.Client.BalanceAt(ctx, address, nil)
}
