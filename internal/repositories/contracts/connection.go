package contracts

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"gitlab.com/TitanInd/escrow-bridge/internal/interfaces"
	"gitlab.com/TitanInd/escrow-bridge/internal/usererr"
	"golang.org/x/sync/errgroup"
)

// DefaultBlockGasLimit is used when the node reports a zero gas limit
const DefaultBlockGasLimit uint64 = 4712388

type DialFunc func(ctx context.Context) (EthereumClient, error)

// Connection is the result of a successful handshake, it never changes afterwards
type Connection struct {
	Client        EthereumClient
	NetworkID     *big.Int
	ChainID       *big.Int
	Signer        Signer
	BlockGasLimit uint64
}

func (c *Connection) Account() common.Address {
	return c.Signer.Address()
}

// ConnectionProvider performs the node handshake once and shares the outcome,
// successful or not, with every caller for the lifetime of the process
type ConnectionProvider struct {
	// config
	accounts          AccountSource
	expectedNetworkID uint64
	handshakeTimeout  time.Duration

	// state
	mu          sync.Mutex
	initialized bool
	done        chan struct{}
	conn        *Connection
	err         error

	// deps
	log interfaces.ILogger
}

func NewConnectionProvider(accounts AccountSource, expectedNetworkID uint64, handshakeTimeout time.Duration, log interfaces.ILogger) *ConnectionProvider {
	return &ConnectionProvider{
		accounts:          accounts,
		expectedNetworkID: expectedNetworkID,
		handshakeTimeout:  handshakeTimeout,
		done:              make(chan struct{}),
		log:               log,
	}
}

// Init starts the handshake in the background. It can be called only once.
func (p *ConnectionProvider) Init(dial DialFunc) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return usererr.New(usererr.AlreadyInitialized, "connection is already initialized")
	}
	p.initialized = true

	go func() {
		defer close(p.done)
		p.conn, p.err = p.handshake(dial)
		if p.err != nil {
			p.log.Errorf("ethereum handshake failed: %s", p.err)
			return
		}
		p.log.Infof("connected to network %s (chain %s) as %s, block gas limit %d",
			p.conn.NetworkID, p.conn.ChainID, p.conn.Account(), p.conn.BlockGasLimit)
	}()

	return nil
}

// Get waits for the handshake. ctx bounds only the wait of this caller.
func (p *ConnectionProvider) Get(ctx context.Context) (*Connection, error) {
	p.mu.Lock()
	initialized := p.initialized
	p.mu.Unlock()

	if !initialized {
		return nil, usererr.New(usererr.NotInitialized, "connection is not initialized")
	}

	select {
	case <-p.done:
		return p.conn, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *ConnectionProvider) handshake(dial DialFunc) (*Connection, error) {
	ctx := context.Background()
	if p.handshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.handshakeTimeout)
		defer cancel()
	}

	client, err := dial(ctx)
	if err != nil {
		return nil, usererr.Wrap(err, usererr.NoEthereumClient, "cannot connect to ethereum node")
	}

	var (
		networkID *big.Int
		chainID   *big.Int
		header    *types.Header
		signer    Signer
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		networkID, err = client.NetworkID(gctx)
		return err
	})
	g.Go(func() (err error) {
		chainID, err = client.ChainID(gctx)
		if err != nil && isMethodNotFound(err) {
			// nodes predating eth_chainId use the network id for replay protection
			chainID = nil
			return nil
		}
		return err
	})
	g.Go(func() (err error) {
		header, err = client.HeaderByNumber(gctx, nil)
		return err
	})
	g.Go(func() (err error) {
		signer, err = p.accounts.Resolve(gctx, client)
		return err
	})

	if err := g.Wait(); err != nil {
		if _, ok := usererr.CodeOf(err); ok {
			return nil, err
		}
		return nil, usererr.Wrap(err, usererr.NoEthereumClient, "ethereum node handshake failed")
	}

	if networkID == nil || networkID.Sign() == 0 {
		return nil, usererr.New(usererr.NoEthereumClient, "ethereum node reported no network id")
	}
	if p.expectedNetworkID != 0 && (!networkID.IsUint64() || networkID.Uint64() != p.expectedNetworkID) {
		return nil, usererr.New(usererr.WrongNetwork, "ethereum node is on network %s, expected %d", networkID, p.expectedNetworkID)
	}

	if chainID == nil {
		p.log.Warnf("ethereum node does not support eth_chainId, signing with network id %s", networkID)
		chainID = networkID
	}

	var gasLimit uint64
	if header != nil {
		gasLimit = header.GasLimit
	}
	if gasLimit == 0 {
		gasLimit = DefaultBlockGasLimit
	}

	return &Connection{
		Client:        client,
		NetworkID:     networkID,
		ChainID:       chainID,
		Signer:        signer,
		BlockGasLimit: gasLimit,
	}, nil
}
