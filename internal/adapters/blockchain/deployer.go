package blockchain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/trebuchet-org/catapult/internal/domain"
	"github.com/trebuchet-org/catapult/internal/domain/config"
	"github.com/trebuchet-org/catapult/internal/domain/models"
	"github.com/trebuchet-org/catapult/internal/usecase"
)

// Backend is what the deployer needs from a node connection.
// *ethclient.Client and the simulated backend client both satisfy it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
}

// Deployer implements the ChainClient interface using ethclient
type Deployer struct {
	network *config.Network
	key     *ecdsa.PrivateKey
	sender  common.Address
	log     *slog.Logger

	mu      sync.Mutex
	backend Backend
	chainID *big.Int
}

// NewDeployer creates a new deployer. The node is only dialled on first use so
// commands that never touch the chain work offline.
func NewDeployer(cfg *config.RuntimeConfig, log *slog.Logger) (*Deployer, error) {
	d := &Deployer{
		network: cfg.Network,
		log:     log.With("component", "deployer"),
	}
	if cfg.Network != nil && cfg.Network.SenderKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.Network.SenderKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid sender key for network %s: %w", cfg.Network.Name, err)
		}
		d.key = key
		d.sender = crypto.PubkeyToAddress(key.PublicKey)
	}
	return d, nil
}

// NewDeployerWithBackend creates a deployer on an existing connection
func NewDeployerWithBackend(network *config.Network, backend Backend, key *ecdsa.PrivateKey, log *slog.Logger) *Deployer {
	d := &Deployer{
		network: network,
		key:     key,
		backend: backend,
		log:     log.With("component", "deployer"),
	}
	if key != nil {
		d.sender = crypto.PubkeyToAddress(key.PublicKey)
	}
	return d
}

// connect dials the node and checks the chain ID
func (d *Deployer) connect(ctx context.Context) (Backend, *big.Int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.backend != nil && d.chainID != nil {
		return d.backend, d.chainID, nil
	}
	if d.network == nil {
		return nil, nil, fmt.Errorf("no network selected")
	}

	if d.backend == nil {
		client, err := ethclient.DialContext(ctx, d.network.RPCURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to RPC: %w", err)
		}
		d.backend = client
	}

	networkChainID, err := d.backend.ChainID(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get chain ID: %w", err)
	}

	// If chainID was 0, use the network's chain ID
	if d.network.ChainID != 0 && networkChainID.Uint64() != d.network.ChainID {
		return nil, nil, fmt.Errorf("chain ID mismatch: expected %d, got %d", d.network.ChainID, networkChainID.Uint64())
	}
	d.chainID = networkChainID
	d.log.Debug("connected", "network", d.network.Name, "chain_id", networkChainID.Uint64())

	return d.backend, d.chainID, nil
}

// ChainID returns the chain ID reported by the node
func (d *Deployer) ChainID(ctx context.Context) (uint64, error) {
	_, chainID, err := d.connect(ctx)
	if err != nil {
		return 0, err
	}
	return chainID.Uint64(), nil
}

// Sender returns the deploying account, zero when no key is configured
func (d *Deployer) Sender() common.Address {
	return d.sender
}

// SendDeployment signs and submits the creation transaction without waiting for it
func (d *Deployer) SendDeployment(ctx context.Context, blueprint *models.Blueprint, args []any) (*models.PendingDeployment, error) {
	if d.key == nil {
		return nil, &domain.DeploymentTxError{Err: fmt.Errorf("no sender key configured for network %s", d.networkName())}
	}
	backend, chainID, err := d.connect(ctx)
	if err != nil {
		return nil, &domain.DeploymentTxError{Err: err}
	}

	coerced, err := coerceArgs(blueprint.ABI.Constructor.Inputs, args)
	if err != nil {
		return nil, &domain.DeploymentTxError{Err: fmt.Errorf("constructor of %s: %w", blueprint.Name, err)}
	}

	auth, err := bind.NewKeyedTransactorWithChainID(d.key, chainID)
	if err != nil {
		return nil, &domain.DeploymentTxError{Err: fmt.Errorf("transactor: %w", err)}
	}
	auth.Context = ctx

	address, tx, _, err := bind.DeployContract(auth, *blueprint.ABI, blueprint.Bytecode, backend, coerced...)
	if err != nil {
		return nil, &domain.DeploymentTxError{Err: fmt.Errorf("failed to send transaction: %w", err)}
	}
	d.log.Debug("deployment sent", "contract", blueprint.Name, "tx", tx.Hash().Hex(), "address", address.Hex())

	return &models.PendingDeployment{TxHash: tx.Hash(), Address: address}, nil
}

// WaitDeployment blocks until the transaction is mined or the confirmation timeout elapses
func (d *Deployer) WaitDeployment(ctx context.Context, txHash common.Hash) (*models.DeployReceipt, error) {
	backend, _, err := d.connect(ctx)
	if err != nil {
		return nil, &domain.DeploymentTxError{TxHash: txHash.Hex(), Err: err}
	}

	waitCtx, cancel := context.WithTimeout(ctx, d.confirmTimeout())
	defer cancel()

	receipt, err := bind.WaitMinedHash(waitCtx, backend, txHash)
	if err != nil {
		return nil, &domain.DeploymentTxError{TxHash: txHash.Hex(), Err: fmt.Errorf("waiting for confirmation: %w", err)}
	}

	return toDeployReceipt(receipt)
}

// Call runs a read-only method and returns its decoded outputs
func (d *Deployer) Call(ctx context.Context, blueprint *models.Blueprint, address common.Address, method string, args ...any) ([]any, error) {
	m, ok := blueprint.ABI.Methods[method]
	if !ok {
		return nil, fmt.Errorf("method %s not found in %s ABI", method, blueprint.Name)
	}
	coerced, err := coerceArgs(m.Inputs, args)
	if err != nil {
		return nil, fmt.Errorf("%s(): %w", method, err)
	}

	backend, _, err := d.connect(ctx)
	if err != nil {
		return nil, err
	}

	contract := bind.NewBoundContract(address, *blueprint.ABI, backend, backend, backend)
	var out []any
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, method, coerced...); err != nil {
		return nil, fmt.Errorf("call %s.%s at %s: %w", blueprint.Name, method, address.Hex(), err)
	}
	return out, nil
}

// Receipt looks up a mined deployment transaction
func (d *Deployer) Receipt(ctx context.Context, txHash common.Hash) (*models.DeployReceipt, error) {
	backend, _, err := d.connect(ctx)
	if err != nil {
		return nil, err
	}

	receipt, err := backend.TransactionReceipt(ctx, txHash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("transaction %s: %w", txHash.Hex(), domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}
	return toDeployReceipt(receipt)
}

// TransactionState reports whether the node still holds an unmined transaction
func (d *Deployer) TransactionState(ctx context.Context, txHash common.Hash) (models.TxState, error) {
	backend, _, err := d.connect(ctx)
	if err != nil {
		return "", err
	}

	_, isPending, err := backend.TransactionByHash(ctx, txHash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return models.TxUnknown, nil
		}
		return "", fmt.Errorf("failed to look up transaction %s: %w", txHash.Hex(), err)
	}
	if isPending {
		return models.TxPending, nil
	}
	return models.TxMined, nil
}

func toDeployReceipt(receipt *types.Receipt) (*models.DeployReceipt, error) {
	txHash := receipt.TxHash.Hex()
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, &domain.DeploymentTxError{TxHash: txHash, Err: fmt.Errorf("transaction reverted in block %d", receipt.BlockNumber.Uint64())}
	}
	if receipt.ContractAddress == (common.Address{}) {
		return nil, &domain.DeploymentTxError{TxHash: txHash, Err: fmt.Errorf("transaction did not create a contract")}
	}
	return &models.DeployReceipt{
		Address:     receipt.ContractAddress,
		TxHash:      receipt.TxHash,
		BlockNumber: receipt.BlockNumber.Uint64(),
		GasUsed:     receipt.GasUsed,
	}, nil
}

func (d *Deployer) confirmTimeout() time.Duration {
	if d.network != nil && d.network.ConfirmTimeout > 0 {
		return d.network.ConfirmTimeout
	}
	return 2 * time.Minute
}

func (d *Deployer) networkName() string {
	if d.network == nil {
		return ""
	}
	return d.network.Name
}

// Close releases the node connection
func (d *Deployer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if client, ok := d.backend.(*ethclient.Client); ok {
		client.Close()
	}
}

var _ usecase.ChainClient = (*Deployer)(nil)
