package config

import (
	"strings"
	"time"
)

// Validation tags described here: https://pkg.go.dev/github.com/go-playground/validator/v10
type Config struct {
	Blockchain struct {
		EthNodeAddress    string        `env:"ETH_NODE_ADDRESS"      flag:"eth-node-address"      validate:"required,url"`
		ExpectedNetworkID uint64        `env:"ETH_NETWORK_ID"        flag:"eth-network-id"        desc:"connection fails if the node reports another network id, 0 accepts any"`
		HandshakeTimeout  time.Duration `env:"ETH_HANDSHAKE_TIMEOUT" flag:"eth-handshake-timeout" desc:"time limit for the initial node handshake"`
		TxTimeout         time.Duration `env:"ETH_TX_TIMEOUT"        flag:"eth-tx-timeout"        desc:"time limit for a single transaction from estimation to receipt, 0 waits indefinitely"`
	}
	Contracts struct {
		ProjectArtifactPath string `env:"PROJECT_ARTIFACT_PATH" flag:"project-artifact-path" validate:"omitempty,file" desc:"truffle build artifact of GGProject, required for deployment"`
		TokenArtifactPath   string `env:"TOKEN_ARTIFACT_PATH"   flag:"token-artifact-path"   validate:"omitempty,file" desc:"truffle build artifact of the ERC-20 token, required for token deployment"`
	}
	Environment string `env:"ENVIRONMENT" flag:"environment"`
	Escrow      struct {
		TotalsChunkSize            int    `env:"ESCROW_TOTALS_CHUNK_SIZE"              flag:"escrow-totals-chunk-size"              validate:"gte=0" desc:"workers per updateTotals transaction"`
		TotalsConcurrency          int    `env:"ESCROW_TOTALS_CONCURRENCY"             flag:"escrow-totals-concurrency"             validate:"gte=0" desc:"updateTotals transactions in flight at once, 1 submits sequentially"`
		PerformanceChunkSize       int    `env:"ESCROW_PERFORMANCE_CHUNK_SIZE"         flag:"escrow-performance-chunk-size"         validate:"gte=0" desc:"workers per updatePerformance transaction"`
		ForceFinalizeGasCap        uint64 `env:"ESCROW_FORCE_FINALIZE_GAS_CAP"         flag:"escrow-force-finalize-gas-cap"         desc:"gas budget passed to forceFinalize"`
		ForceFinalizeMaxIterations int    `env:"ESCROW_FORCE_FINALIZE_MAX_ITERATIONS"  flag:"escrow-force-finalize-max-iterations"  validate:"gte=0" desc:"upper bound of forceFinalize transactions per request, 0 is unbounded"`
	}
	Log struct {
		Color         bool   `env:"LOG_COLOR"          flag:"log-color"`
		FolderPath    string `env:"LOG_FOLDER_PATH"    flag:"log-folder-path"    validate:"omitempty,dirpath" desc:"enables file logging and sets the folder path"`
		IsProd        bool   `env:"LOG_IS_PROD"        flag:"log-is-prod"        desc:"affects the format of the log output"`
		JSON          bool   `env:"LOG_JSON"           flag:"log-json"`
		LevelApp      string `env:"LOG_LEVEL_APP"      flag:"log-level-app"      validate:"omitempty,oneof=debug info warn error dpanic panic fatal"`
		LevelContract string `env:"LOG_LEVEL_CONTRACT" flag:"log-level-contract" validate:"omitempty,oneof=debug info warn error dpanic panic fatal"`
		LevelHTTP     string `env:"LOG_LEVEL_HTTP"     flag:"log-level-http"     validate:"omitempty,oneof=debug info warn error dpanic panic fatal"`
		LevelNotifier string `env:"LOG_LEVEL_NOTIFIER" flag:"log-level-notifier" validate:"omitempty,oneof=debug info warn error dpanic panic fatal"`
	}
	Notifier struct {
		Timeout     time.Duration `env:"NOTIFIER_TIMEOUT"      flag:"notifier-timeout"      desc:"time limit for a single callback POST"`
		HistorySize int           `env:"NOTIFIER_HISTORY_SIZE" flag:"notifier-history-size" validate:"gte=0" desc:"number of recent tasks kept for /api/tasks lookups"`
	}
	Wallet struct {
		Mnemonic     string `env:"WALLET_MNEMONIC"      flag:"wallet-mnemonic"      validate:"excluded_with=PrivateKey"`
		AccountIndex uint32 `env:"WALLET_ACCOUNT_INDEX" flag:"wallet-account-index" desc:"hd derivation index used with the mnemonic"`
		PrivateKey   string `env:"WALLET_PRIVATE_KEY"   flag:"wallet-private-key"   validate:"omitempty,hexadecimal" desc:"signs locally, when neither key nor mnemonic is set the node's default account is used"`
	}
	Web struct {
		Address   string `env:"WEB_ADDRESS"    flag:"web-address"    validate:"required,hostname_port" desc:"http server address host:port"`
		PublicUrl string `env:"WEB_PUBLIC_URL" flag:"web-public-url" validate:"omitempty,url"          desc:"public url of the gateway, falls back to web-address if empty"`
		TestRun   bool   `env:"GATEWAY_TEST_RUN" flag:"gateway-test-run" desc:"exposes the direct-call endpoints used by integration tests"`
	}
}

func (cfg *Config) SetDefaults() {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	// Blockchain

	if cfg.Blockchain.HandshakeTimeout == 0 {
		cfg.Blockchain.HandshakeTimeout = 30 * time.Second
	}

	// Escrow

	if cfg.Escrow.TotalsChunkSize == 0 {
		cfg.Escrow.TotalsChunkSize = 50
	}
	if cfg.Escrow.TotalsConcurrency == 0 {
		cfg.Escrow.TotalsConcurrency = 4
	}
	if cfg.Escrow.PerformanceChunkSize == 0 {
		cfg.Escrow.PerformanceChunkSize = 50
	}
	if cfg.Escrow.ForceFinalizeGasCap == 0 {
		cfg.Escrow.ForceFinalizeGasCap = 2_000_000
	}

	// Log

	if cfg.Log.LevelApp == "" {
		cfg.Log.LevelApp = "debug"
	}
	if cfg.Log.LevelContract == "" {
		cfg.Log.LevelContract = "debug"
	}
	if cfg.Log.LevelHTTP == "" {
		cfg.Log.LevelHTTP = "info"
	}
	if cfg.Log.LevelNotifier == "" {
		cfg.Log.LevelNotifier = "info"
	}

	// Notifier

	if cfg.Notifier.Timeout == 0 {
		cfg.Notifier.Timeout = 30 * time.Second
	}
	if cfg.Notifier.HistorySize == 0 {
		cfg.Notifier.HistorySize = 1000
	}

	// Wallet

	cfg.Wallet.PrivateKey = strings.TrimPrefix(cfg.Wallet.PrivateKey, "0x")
	cfg.Wallet.Mnemonic = strings.TrimSpace(cfg.Wallet.Mnemonic)

	// Web

	if cfg.Web.Address == "" {
		cfg.Web.Address = "0.0.0.0:3000"
	}
	if cfg.Web.PublicUrl == "" {
		cfg.Web.PublicUrl = "http://" + cfg.Web.Address
	}
}

// GetSanitized returns a copy of the config with sensitive data removed
// explicitly adding each field here to avoid accidentally leaking sensitive data
func (cfg *Config) GetSanitized() interface{} {
	publicCfg := Config{}

	publicCfg.Blockchain.ExpectedNetworkID = cfg.Blockchain.ExpectedNetworkID
	publicCfg.Blockchain.HandshakeTimeout = cfg.Blockchain.HandshakeTimeout
	publicCfg.Blockchain.TxTimeout = cfg.Blockchain.TxTimeout

	publicCfg.Contracts = cfg.Contracts
	publicCfg.Environment = cfg.Environment
	publicCfg.Escrow = cfg.Escrow
	publicCfg.Log = cfg.Log
	publicCfg.Notifier = cfg.Notifier

	publicCfg.Wallet.AccountIndex = cfg.Wallet.AccountIndex

	publicCfg.Web = cfg.Web

	return publicCfg
}
