package main

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	"gitlab.com/TitanInd/escrow-bridge/internal/config"
	"gitlab.com/TitanInd/escrow-bridge/internal/handlers/httphandlers"
	"gitlab.com/TitanInd/escrow-bridge/internal/interfaces"
	"gitlab.com/TitanInd/escrow-bridge/internal/notifier"
	"gitlab.com/TitanInd/escrow-bridge/internal/repositories/contracts"
)

type loggers struct {
	App      interfaces.ILogger
	Contract interfaces.ILogger
	HTTP     interfaces.ILogger
	Notifier interfaces.ILogger
}

type gateway struct {
	Connections *contracts.ConnectionProvider
	Factory     *contracts.Factory
	Notifier    *notifier.Notifier
	Handler     *gin.Engine
}

var gatewaySet = wire.NewSet(
	provideAccountSource,
	provideConnectionProvider,
	contracts.NewGasOracle,
	provideExecutor,
	provideFactory,
	provideNotifier,
	provideHTTPHandler,
	wire.Struct(new(gateway), "*"),
)

// provideAccountSource prefers a local key, then the mnemonic, then the node's own accounts
func provideAccountSource(cfg *config.Config, logs *loggers) (contracts.AccountSource, error) {
	switch {
	case cfg.Wallet.PrivateKey != "":
		return contracts.NewKeySignerFromHex(cfg.Wallet.PrivateKey)
	case cfg.Wallet.Mnemonic != "":
		return contracts.NewKeySignerFromMnemonic(cfg.Wallet.Mnemonic, cfg.Wallet.AccountIndex)
	default:
		logs.App.Warn("no wallet configured, transactions are signed by the node's default account")
		return contracts.NodeAccounts{}, nil
	}
}

func provideConnectionProvider(cfg *config.Config, accounts contracts.AccountSource, logs *loggers) *contracts.ConnectionProvider {
	return contracts.NewConnectionProvider(accounts, cfg.Blockchain.ExpectedNetworkID, cfg.Blockchain.HandshakeTimeout, logs.Contract.Named("CONN"))
}

func provideExecutor(cfg *config.Config, connections *contracts.ConnectionProvider, gas *contracts.GasOracle, logs *loggers) *contracts.TxExecutor {
	return contracts.NewTxExecutor(connections, gas, cfg.Blockchain.TxTimeout, logs.Contract.Named("TX"))
}

func provideFactory(cfg *config.Config, connections *contracts.ConnectionProvider, executor *contracts.TxExecutor, logs *loggers) (*contracts.Factory, error) {
	projectMeta, err := contracts.ProjectMeta(cfg.Contracts.ProjectArtifactPath)
	if err != nil {
		return nil, err
	}
	tokenMeta, err := contracts.TokenMeta(cfg.Contracts.TokenArtifactPath)
	if err != nil {
		return nil, err
	}
	if !projectMeta.CanDeploy() {
		logs.App.Warn("project artifact is not set, contract deployment is disabled")
	}

	opts := contracts.ProjectOptions{
		TotalsChunkSize:            cfg.Escrow.TotalsChunkSize,
		TotalsConcurrency:          cfg.Escrow.TotalsConcurrency,
		PerformanceChunkSize:       cfg.Escrow.PerformanceChunkSize,
		ForceFinalizeGasCap:        cfg.Escrow.ForceFinalizeGasCap,
		ForceFinalizeMaxIterations: cfg.Escrow.ForceFinalizeMaxIterations,
	}
	return contracts.NewFactory(connections, executor, projectMeta, tokenMeta, opts, logs.Contract), nil
}

func provideNotifier(ctx context.Context, cfg *config.Config, logs *loggers) *notifier.Notifier {
	client := &http.Client{Timeout: cfg.Notifier.Timeout}
	return notifier.NewNotifier(ctx, client, notifier.NewTaskHistory(cfg.Notifier.HistorySize), logs.Notifier)
}

func provideHTTPHandler(cfg *config.Config, factory *contracts.Factory, notif *notifier.Notifier, logs *loggers) (*gin.Engine, error) {
	publicUrl, err := url.Parse(cfg.Web.PublicUrl)
	if err != nil {
		return nil, err
	}
	return httphandlers.NewHTTPHandler(factory, notif, cfg, publicUrl, cfg.Web.TestRun, logs.HTTP), nil
}
