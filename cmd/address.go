package main

import (
	"fmt"

	"gitlab.com/TitanInd/escrow-bridge/internal/config"
	"gitlab.com/TitanInd/escrow-bridge/internal/repositories/contracts"
)

const walletAddressCmd = "wallet-address"

type walletConfig struct {
	Mnemonic     string `env:"WALLET_MNEMONIC"      flag:"wallet-mnemonic"      validate:"required_without=PrivateKey"`
	AccountIndex uint32 `env:"WALLET_ACCOUNT_INDEX" flag:"wallet-account-index"`
	PrivateKey   string `env:"WALLET_PRIVATE_KEY"   flag:"wallet-private-key"   validate:"required_without=Mnemonic"`
}

func (cfg *walletConfig) SetDefaults() {
}

// printWalletAddress shows which account the gateway will act as, without touching the node
func printWalletAddress(args *[]string) error {
	var cfg walletConfig
	err := config.LoadConfig(&cfg, args, ".env")
	if err != nil {
		return err
	}

	var signer *contracts.KeySigner
	if cfg.PrivateKey != "" {
		signer, err = contracts.NewKeySignerFromHex(cfg.PrivateKey)
	} else {
		signer, err = contracts.NewKeySignerFromMnemonic(cfg.Mnemonic, cfg.AccountIndex)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Wallet address:\n%s\n", signer.Address().Hex())
	return nil
}
