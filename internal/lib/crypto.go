package lib

import (
	"crypto/ecdsa"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrInvalidPrivateKey = errors.New("invalid private key")

func PrivKeyToAddr(privateKey *ecdsa.PrivateKey) (common.Address, error) {
	publicKey, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return common.Address{}, WrapError(ErrInvalidPrivateKey, errors.New("error casting public key to ECDSA"))
	}
	return crypto.PubkeyToAddress(*publicKey), nil
}

// ParsePrivateKey accepts hex with or without 0x prefix
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, WrapError(ErrInvalidPrivateKey, err)
	}
	return key, nil
}
