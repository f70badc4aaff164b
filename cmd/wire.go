//go:build wireinject
// +build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"gitlab.com/TitanInd/escrow-bridge/internal/config"
)

func initGateway(ctx context.Context, cfg *config.Config, logs *loggers) (*gateway, error) {
	wire.Build(gatewaySet)
	return nil, nil
}
