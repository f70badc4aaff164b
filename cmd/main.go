package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gitlab.com/TitanInd/escrow-bridge/internal/config"
	"gitlab.com/TitanInd/escrow-bridge/internal/lib"
	"gitlab.com/TitanInd/escrow-bridge/internal/repositories/contracts"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if len(os.Args) > 1 && os.Args[1] == walletAddressCmd {
		args := append([]string{os.Args[0]}, os.Args[2:]...)
		if err := printWalletAddress(&args); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := start(); err != nil {
		panic(err)
	}
}

func start() error {
	var cfg config.Config
	err := config.LoadConfig(&cfg, &os.Args, ".env")
	if err != nil {
		return err
	}

	logs, err := newLoggers(&cfg)
	if err != nil {
		return err
	}
	log := logs.App

	defer func() {
		_ = log.Sync()
	}()

	log.Infof("escrow bridge %s, config: %+v", config.BuildVersion, cfg.GetSanitized())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-shutdownChan
		log.Warnf("Received signal: %s", s)
		cancel()

		s = <-shutdownChan
		log.Warnf("Received signal: %s. Forcing exit...", s)
		os.Exit(1)
	}()

	// tasks outlive the http server so the running ones can deliver their callbacks
	tasksCtx, cancelTasks := context.WithCancel(context.Background())
	defer cancelTasks()

	gw, err := initGateway(tasksCtx, &cfg, logs)
	if err != nil {
		return err
	}

	nodeURL := cfg.Blockchain.EthNodeAddress
	err = gw.Connections.Init(func(ctx context.Context) (contracts.EthereumClient, error) {
		client, err := contracts.DialContext(ctx, nodeURL)
		if err != nil {
			return nil, err
		}
		return client, nil
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:    cfg.Web.Address,
		Handler: gw.Handler,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("http server is listening: %s", cfg.Web.Address)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("http server shutdown: %s", err)
	}

	done := make(chan struct{})
	go func() {
		gw.Notifier.Wait()
		close(done)
	}()

	log.Infof("waiting for %d running tasks", gw.Notifier.InFlight())
	select {
	case <-done:
	case <-shutdownCtx.Done():
		log.Warnf("aborting %d running tasks", gw.Notifier.InFlight())
		cancelTasks()
		<-done
	}

	log.Info("App exited")
	return nil
}

func newLoggers(cfg *config.Config) (*loggers, error) {
	newLogger := func(level, fileName string) (*lib.Logger, error) {
		return lib.NewLogger(lib.LoggerOptions{
			Level:      level,
			Color:      cfg.Log.Color,
			IsProd:     cfg.Log.IsProd,
			JSON:       cfg.Log.JSON,
			FolderPath: cfg.Log.FolderPath,
			FileName:   fileName,
		})
	}

	app, err := newLogger(cfg.Log.LevelApp, "app.log")
	if err != nil {
		return nil, err
	}
	contract, err := newLogger(cfg.Log.LevelContract, "contract.log")
	if err != nil {
		return nil, err
	}
	httpLog, err := newLogger(cfg.Log.LevelHTTP, "http.log")
	if err != nil {
		return nil, err
	}
	notifierLog, err := newLogger(cfg.Log.LevelNotifier, "notifier.log")
	if err != nil {
		return nil, err
	}

	return &loggers{
		App:      app,
		Contract: contract,
		HTTP:     httpLog.Named("HTTP"),
		Notifier: notifierLog.Named("NOTIFIER"),
	}, nil
}
