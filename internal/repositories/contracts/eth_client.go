package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// EthereumClient is the subset of the node API used by the gateway
type EthereumClient interface {
	bind.ContractBackend
	bind.DeployBackend
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	NetworkID(ctx context.Context) (*big.Int, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// RPCCaller issues raw json-rpc requests, used for node managed accounts
type RPCCaller interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

type EthClient struct {
	// config
	url string

	// state
	*ethclient.Client
	rpc *rpc.Client
}

func DialContext(ctx context.Context, url string) (*EthClient, error) {
	rpcClient, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return &EthClient{
		url:    url,
		Client: ethclient.NewClient(rpcClient),
		rpc:    rpcClient,
	}, nil
}

func (c *EthClient) CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	return c.rpc.CallContext(ctx, result, method, args...)
}

func (c *EthClient) URL() string {
	return c.url
}

var (
	_ EthereumClient = (*EthClient)(nil)
	_ RPCCaller      = (*EthClient)(nil)
)
