package contracts

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"gitlab.com/TitanInd/escrow-bridge/internal/interfaces"
)

// ContractEnv is shared by all proxies of one contract kind
type ContractEnv struct {
	Meta        *ContractMeta
	Connections *ConnectionProvider
	Executor    *TxExecutor
	Log         interfaces.ILogger
}

// BaseContract binds an abi to a deployed address of the acting connection
type BaseContract struct {
	env     *ContractEnv
	conn    *Connection
	address common.Address
	bound   *bind.BoundContract
	log     interfaces.ILogger
}

// Bind fails with ContractNotFound when there is no code at address
func Bind(ctx context.Context, env *ContractEnv, address common.Address) (*BaseContract, error) {
	conn, err := env.Connections.Get(ctx)
	if err != nil {
		return nil, err
	}

	code, err := conn.Client.CodeAt(ctx, address, nil)
	if err != nil {
		return nil, translateNodeError(err)
	}
	if len(code) == 0 {
		return nil, translateNodeError(fmt.Errorf("%s at %s: %w", env.Meta.Name, address, bind.ErrNoCode))
	}

	return &BaseContract{
		env:     env,
		conn:    conn,
		address: address,
		bound:   bind.NewBoundContract(address, *env.Meta.ABI, conn.Client, conn.Client, conn.Client),
		log:     env.Log.With("Contract", address.Hex()),
	}, nil
}

func deployRequest(env *ContractEnv, args []interface{}) *TxRequest {
	return &TxRequest{
		ABI:      env.Meta.ABI,
		Args:     args,
		Bytecode: env.Meta.Bytecode,
	}
}

// Deploy submits the creation transaction with the same gates as any other transaction
func Deploy(ctx context.Context, env *ContractEnv, args ...interface{}) (*BaseContract, *TxResult, error) {
	if !env.Meta.CanDeploy() {
		return nil, nil, fmt.Errorf("%s: %w", env.Meta.Name, ErrNoBytecode)
	}

	res, err := env.Executor.Execute(ctx, deployRequest(env, args))
	if err != nil {
		return nil, res, err
	}
	env.Log.Infof("deployed %s at %s, tx %s", env.Meta.Name, res.Receipt.ContractAddress, res.Tx.Hash())

	contract, err := Bind(ctx, env, res.Receipt.ContractAddress)
	if err != nil {
		return nil, res, err
	}
	return contract, res, nil
}

func EstimateDeployGas(ctx context.Context, env *ContractEnv, args ...interface{}) (uint64, error) {
	if !env.Meta.CanDeploy() {
		return 0, fmt.Errorf("%s: %w", env.Meta.Name, ErrNoBytecode)
	}
	return env.Executor.Estimate(ctx, deployRequest(env, args))
}

func (c *BaseContract) Address() common.Address {
	return c.address
}

// Account is the address transactions are sent from
func (c *BaseContract) Account() common.Address {
	return c.conn.Account()
}

func (c *BaseContract) Connection() *Connection {
	return c.conn
}

// Call performs a read-only call and returns the unpacked outputs
func (c *BaseContract) Call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	var out []interface{}
	err := c.bound.Call(&bind.CallOpts{Context: ctx, From: c.Account()}, &out, method, args...)
	if err != nil {
		return nil, translateNodeError(err)
	}
	return out, nil
}

func (c *BaseContract) Invoke(ctx context.Context, method string, args ...interface{}) (*TxResult, error) {
	return c.InvokeWithValue(ctx, nil, method, args...)
}

func (c *BaseContract) InvokeWithValue(ctx context.Context, value *big.Int, method string, args ...interface{}) (*TxResult, error) {
	to := c.address
	res, err := c.env.Executor.Execute(ctx, &TxRequest{
		ABI:    c.env.Meta.ABI,
		To:     &to,
		Method: method,
		Args:   args,
		Value:  value,
	})
	if err != nil {
		return res, err
	}
	c.log.Debugf("%s succeeded, fee %s wei", method, res.Fee)
	return res, nil
}

// SendEther transfers value from the acting account to a plain address
func SendEther(ctx context.Context, executor *TxExecutor, to common.Address, value *big.Int) (*TxResult, error) {
	return executor.Execute(ctx, &TxRequest{To: &to, Value: value})
}
