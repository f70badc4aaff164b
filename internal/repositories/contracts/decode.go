package contracts

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

func outputAt[T any](out []interface{}, i int) (T, error) {
	var zero T
	if i >= len(out) {
		return zero, fmt.Errorf("%w: expected at least %d values, got %d", ErrUnexpectedOutput, i+1, len(out))
	}
	v, ok := out[i].(T)
	if !ok {
		return zero, fmt.Errorf("%w: value %d is %T, expected %T", ErrUnexpectedOutput, i, out[i], zero)
	}
	return v, nil
}

func bigAt(out []interface{}, i int) (*big.Int, error) {
	return outputAt[*big.Int](out, i)
}

func uint64At(out []interface{}, i int) (uint64, error) {
	v, err := bigAt(out, i)
	if err != nil {
		return 0, err
	}
	return toUint64(v)
}

func addressAt(out []interface{}, i int) (common.Address, error) {
	return outputAt[common.Address](out, i)
}

func toUint64(v *big.Int) (uint64, error) {
	if v == nil || !v.IsUint64() {
		return 0, fmt.Errorf("%w: %s does not fit uint64", ErrUnexpectedOutput, v)
	}
	return v.Uint64(), nil
}

func bigSlice(values []uint64) []*big.Int {
	res := make([]*big.Int, len(values))
	for i, v := range values {
		res[i] = new(big.Int).SetUint64(v)
	}
	return res
}
