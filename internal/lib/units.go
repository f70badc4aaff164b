package lib

import (
	"math/big"

	"github.com/shopspring/decimal"
	"gitlab.com/TitanInd/escrow-bridge/internal/usererr"
)

const EtherDecimals = 18

// FormatUnits renders an integer amount of the smallest unit as a decimal string
func FormatUnits(amount *big.Int, decimals int32) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -decimals).String()
}

func WeiToEther(wei *big.Int) string {
	return FormatUnits(wei, EtherDecimals)
}

// ParseAmount parses a non-negative integer amount, exponent notation is accepted ("1e17")
func ParseAmount(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, usererr.Wrap(err, usererr.InvalidData, "invalid amount %q", s)
	}
	if d.IsNegative() {
		return nil, usererr.New(usererr.InvalidData, "amount %q is negative", s)
	}
	if !d.Equal(d.Truncate(0)) {
		return nil, usererr.New(usererr.InvalidData, "amount %q is not an integer", s)
	}
	return d.BigInt(), nil
}
