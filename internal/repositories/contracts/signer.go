package contracts

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	hdwallet "github.com/miguelmota/go-ethereum-hdwallet"
	"gitlab.com/TitanInd/escrow-bridge/internal/lib"
	"gitlab.com/TitanInd/escrow-bridge/internal/usererr"
)

const derivationPathTemplate = "m/44'/60'/0'/0/%d"

// Signer signs transactions on behalf of the acting account
type Signer interface {
	Address() common.Address
	SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// AccountSource resolves the acting account once the node is reachable
type AccountSource interface {
	Resolve(ctx context.Context, client EthereumClient) (Signer, error)
}

type KeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

func NewKeySigner(key *ecdsa.PrivateKey) (*KeySigner, error) {
	addr, err := lib.PrivKeyToAddr(key)
	if err != nil {
		return nil, err
	}
	return &KeySigner{key: key, address: addr}, nil
}

func NewKeySignerFromHex(hexKey string) (*KeySigner, error) {
	key, err := lib.ParsePrivateKey(hexKey)
	if err != nil {
		return nil, err
	}
	return NewKeySigner(key)
}

// NewKeySignerFromMnemonic derives the key at m/44'/60'/0'/0/<index>
func NewKeySignerFromMnemonic(mnemonic string, index uint32) (*KeySigner, error) {
	wallet, err := hdwallet.NewFromMnemonic(mnemonic)
	if err != nil {
		return nil, err
	}
	path, err := hdwallet.ParseDerivationPath(fmt.Sprintf(derivationPathTemplate, index))
	if err != nil {
		return nil, err
	}
	account, err := wallet.Derive(path, false)
	if err != nil {
		return nil, err
	}
	key, err := wallet.PrivateKey(account)
	if err != nil {
		return nil, err
	}
	return NewKeySigner(key)
}

func (s *KeySigner) Address() common.Address {
	return s.address
}

func (s *KeySigner) SignTx(_ context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
}

func (s *KeySigner) Resolve(context.Context, EthereumClient) (Signer, error) {
	return s, nil
}

// NodeAccounts uses the first account managed by the node
type NodeAccounts struct{}

func (NodeAccounts) Resolve(ctx context.Context, client EthereumClient) (Signer, error) {
	caller, ok := client.(RPCCaller)
	if !ok {
		return nil, usererr.New(usererr.NoAccounts, "node client does not support account management")
	}
	var accounts []common.Address
	if err := caller.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, usererr.New(usererr.NoAccounts, "ethereum node has no accounts")
	}
	return &NodeSigner{caller: caller, address: accounts[0]}, nil
}

// NodeSigner delegates signing to the node with eth_signTransaction
type NodeSigner struct {
	caller  RPCCaller
	address common.Address
}

type signTxArgs struct {
	From     common.Address  `json:"from"`
	To       *common.Address `json:"to,omitempty"`
	Gas      hexutil.Uint64  `json:"gas"`
	GasPrice *hexutil.Big    `json:"gasPrice"`
	Value    *hexutil.Big    `json:"value"`
	Nonce    hexutil.Uint64  `json:"nonce"`
	Data     hexutil.Bytes   `json:"data"`
}

// signTxResult accepts both {raw, tx} and the bare raw transaction some dev nodes return
type signTxResult struct {
	Raw hexutil.Bytes `json:"raw"`
}

func (r *signTxResult) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &r.Raw)
	}
	var res struct {
		Raw hexutil.Bytes `json:"raw"`
	}
	if err := json.Unmarshal(data, &res); err != nil {
		return err
	}
	r.Raw = res.Raw
	return nil
}

func (s *NodeSigner) Address() common.Address {
	return s.address
}

func (s *NodeSigner) SignTx(ctx context.Context, tx *types.Transaction, _ *big.Int) (*types.Transaction, error) {
	args := signTxArgs{
		From:     s.address,
		To:       tx.To(),
		Gas:      hexutil.Uint64(tx.Gas()),
		GasPrice: (*hexutil.Big)(tx.GasPrice()),
		Value:    (*hexutil.Big)(tx.Value()),
		Nonce:    hexutil.Uint64(tx.Nonce()),
		Data:     tx.Data(),
	}
	var res signTxResult
	if err := s.caller.CallContext(ctx, &res, "eth_signTransaction", args); err != nil {
		return nil, err
	}
	if len(res.Raw) == 0 {
		return nil, fmt.Errorf("eth_signTransaction returned no raw transaction")
	}
	signed := new(types.Transaction)
	if err := signed.UnmarshalBinary(res.Raw); err != nil {
		return nil, err
	}
	return signed, nil
}
