package contracts

import (
	"context"
	"math/big"
)

// GasOracle reads the node's suggested gas price on every call
type GasOracle struct {
	connections *ConnectionProvider
}

func NewGasOracle(connections *ConnectionProvider) *GasOracle {
	return &GasOracle{connections: connections}
}

func (o *GasOracle) GasPrice(ctx context.Context) (*big.Int, error) {
	conn, err := o.connections.Get(ctx)
	if err != nil {
		return nil, err
	}
	return conn.Client.SuggestGasPrice(ctx)
}
