package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"gitlab.com/TitanInd/escrow-bridge/internal/usererr"
)

type TokenContract struct {
	*BaseContract
}

func BindToken(ctx context.Context, env *ContractEnv, address common.Address) (*TokenContract, error) {
	base, err := Bind(ctx, env, address)
	if err != nil {
		return nil, err
	}
	return &TokenContract{base}, nil
}

func DeployToken(ctx context.Context, env *ContractEnv, args ...interface{}) (*TokenContract, *TxResult, error) {
	base, res, err := Deploy(ctx, env, args...)
	if err != nil {
		return nil, res, err
	}
	return &TokenContract{base}, res, nil
}

func (t *TokenContract) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	out, err := t.Call(ctx, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return bigAt(out, 0)
}

func (t *TokenContract) TotalSupply(ctx context.Context) (*big.Int, error) {
	out, err := t.Call(ctx, "totalSupply")
	if err != nil {
		return nil, err
	}
	return bigAt(out, 0)
}

func (t *TokenContract) Decimals(ctx context.Context) (uint8, error) {
	out, err := t.Call(ctx, "decimals")
	if err != nil {
		return 0, err
	}
	return outputAt[uint8](out, 0)
}

// Transfer checks the sender balance up front and requires the Transfer event,
// tokens that return false instead of reverting are reported as failed
func (t *TokenContract) Transfer(ctx context.Context, to common.Address, amount *big.Int) (*TxResult, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, usererr.New(usererr.InvalidData, "invalid token amount %s", amount)
	}

	balance, err := t.BalanceOf(ctx, t.Account())
	if err != nil {
		return nil, err
	}
	if balance.Cmp(amount) < 0 {
		return nil, usererr.New(usererr.InsufficientTokenBalance, "token balance of %s is %s, cannot transfer %s", t.Account(), balance, amount)
	}

	res, err := t.Invoke(ctx, "transfer", to, amount)
	if err != nil {
		return res, err
	}
	if !res.HasEvent("Transfer") {
		return res, usererr.New(usererr.TransactionFailed, "token transfer of %s to %s did not emit Transfer event, tx %s", amount, to, res.Tx.Hash())
	}
	return res, nil
}
