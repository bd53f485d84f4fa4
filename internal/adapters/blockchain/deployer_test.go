package blockchain

import (
	"context"
	"crypto/ecdsa"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/catapult/internal/domain"
	"github.com/trebuchet-org/catapult/internal/domain/config"
	"github.com/trebuchet-org/catapult/internal/domain/models"
)

const pairCodeHash = "f301e7bb3b6c11c1d9ec3155aa16db5dfafdea975903e184ad76a07835715010"

// constantContract copies a runtime that returns pairCodeHash for any call.
// Constructor arguments appended to the init code are ignored.
var constantContract = common.FromHex(
	"0x6029" + "80" + "600b" + "6000" + "39" + "6000" + "f3" + // init: codecopy runtime, return it
		"7f" + pairCodeHash + "6000" + "52" + "6020" + "6000" + "f3") // runtime: mstore hash, return 32 bytes

// revertingContract reverts in its constructor
var revertingContract = common.FromHex("0x60006000fd")

const factoryABI = `[
  {"type":"constructor","inputs":[{"name":"_feeToSetter","type":"address"}],"stateMutability":"nonpayable"},
  {"type":"function","name":"pairCodeHash","inputs":[],"outputs":[{"name":"","type":"bytes32"}],"stateMutability":"view"}
]`

// autoMiner mines a block for every transaction it sends
type autoMiner struct {
	simulated.Client
	backend *simulated.Backend
}

func (m *autoMiner) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if err := m.Client.SendTransaction(ctx, tx); err != nil {
		return err
	}
	m.backend.Commit()
	return nil
}

func newSimulatedDeployer(t *testing.T, network *config.Network) (*Deployer, *ecdsa.PrivateKey) {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sender := crypto.PubkeyToAddress(key.PublicKey)

	backend := simulated.NewBackend(types.GenesisAlloc{
		sender: {Balance: new(big.Int).Mul(big.NewInt(100), big.NewInt(1e18))},
	})
	t.Cleanup(func() { _ = backend.Close() })

	if network == nil {
		network = &config.Network{Name: "simulated", ConfirmTimeout: 10 * time.Second, Local: true}
	}
	miner := &autoMiner{Client: backend.Client(), backend: backend}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewDeployerWithBackend(network, miner, key, logger), key
}

func factoryBlueprint(t *testing.T, code []byte) *models.Blueprint {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(factoryABI))
	require.NoError(t, err)
	return &models.Blueprint{Name: "FinswapFactory", ABI: &parsed, Bytecode: code}
}

// deploy sends a deployment and waits for it like the orchestrator does
func deploy(ctx context.Context, d *Deployer, bp *models.Blueprint, args []any) (*models.DeployReceipt, error) {
	pending, err := d.SendDeployment(ctx, bp, args)
	if err != nil {
		return nil, err
	}
	return d.WaitDeployment(ctx, pending.TxHash)
}

func TestDeployer_DeployAndCall(t *testing.T) {
	ctx := context.Background()
	deployer, key := newSimulatedDeployer(t, nil)
	bp := factoryBlueprint(t, constantContract)
	sender := crypto.PubkeyToAddress(key.PublicKey)

	assert.Equal(t, sender, deployer.Sender())

	chainID, err := deployer.ChainID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1337), chainID)

	receipt, err := deploy(ctx, deployer, bp, []any{sender.Hex()})
	require.NoError(t, err)
	assert.NotEqual(t, common.Address{}, receipt.Address)
	assert.NotEqual(t, common.Hash{}, receipt.TxHash)
	assert.Equal(t, crypto.CreateAddress(sender, 0), receipt.Address)
	assert.NotZero(t, receipt.GasUsed)

	out, err := deployer.Call(ctx, bp, receipt.Address, "pairCodeHash")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "0x"+pairCodeHash, models.FormatValue(out[0]))

	t.Run("receipt of a mined deployment", func(t *testing.T) {
		again, err := deployer.Receipt(ctx, receipt.TxHash)
		require.NoError(t, err)
		assert.Equal(t, receipt.Address, again.Address)
		assert.Equal(t, receipt.BlockNumber, again.BlockNumber)
	})

	t.Run("receipt of an unknown transaction", func(t *testing.T) {
		_, err := deployer.Receipt(ctx, common.HexToHash("0x1234"))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("code at deployed and empty addresses", func(t *testing.T) {
		ok, err := deployer.HasCode(ctx, receipt.Address)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = deployer.HasCode(ctx, common.HexToAddress("0x9999999999999999999999999999999999999999"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unknown method", func(t *testing.T) {
		_, err := deployer.Call(ctx, bp, receipt.Address, "owner")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}

func TestDeployer_DeployErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("reverting constructor", func(t *testing.T) {
		deployer, key := newSimulatedDeployer(t, nil)
		bp := factoryBlueprint(t, revertingContract)

		_, err := deploy(ctx, deployer, bp, []any{crypto.PubkeyToAddress(key.PublicKey)})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrDeploymentTx)
	})

	t.Run("wrong constructor arguments", func(t *testing.T) {
		deployer, _ := newSimulatedDeployer(t, nil)
		bp := factoryBlueprint(t, constantContract)

		_, err := deploy(ctx, deployer, bp, []any{"not-an-address"})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrDeploymentTx)
		assert.Contains(t, err.Error(), "_feeToSetter")
	})

	t.Run("no sender key", func(t *testing.T) {
		deployer, err := NewDeployer(&config.RuntimeConfig{Network: &config.Network{Name: "local"}}, slog.New(slog.NewTextHandler(io.Discard, nil)))
		require.NoError(t, err)
		assert.Equal(t, common.Address{}, deployer.Sender())

		_, err = deploy(ctx, deployer, factoryBlueprint(t, constantContract), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no sender key")
	})

	t.Run("chain id mismatch", func(t *testing.T) {
		deployer, _ := newSimulatedDeployer(t, &config.Network{Name: "mainnet", ChainID: 1})
		_, err := deployer.ChainID(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "chain ID mismatch")
	})
}

func TestNewDeployer_SenderKey(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// Well-known first anvil account
	cfg := &config.RuntimeConfig{Network: &config.Network{
		Name:      "local",
		SenderKey: "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80",
	}}
	deployer, err := NewDeployer(cfg, logger)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), deployer.Sender())

	cfg.Network.SenderKey = "0xnothex"
	_, err = NewDeployer(cfg, logger)
	assert.Error(t, err)
}

func TestDeployer_TransactionState(t *testing.T) {
	ctx := context.Background()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sender := crypto.PubkeyToAddress(key.PublicKey)

	// No auto mining: transactions stay in the pool until Commit
	backend := simulated.NewBackend(types.GenesisAlloc{
		sender: {Balance: new(big.Int).Mul(big.NewInt(100), big.NewInt(1e18))},
	})
	t.Cleanup(func() { _ = backend.Close() })

	network := &config.Network{Name: "simulated", ConfirmTimeout: 10 * time.Second, Local: true}
	deployer := NewDeployerWithBackend(network, backend.Client(), key, slog.New(slog.NewTextHandler(io.Discard, nil)))

	pending, err := deployer.SendDeployment(ctx, factoryBlueprint(t, constantContract), []any{sender})
	require.NoError(t, err)
	assert.Equal(t, crypto.CreateAddress(sender, 0), pending.Address)

	state, err := deployer.TransactionState(ctx, pending.TxHash)
	require.NoError(t, err)
	assert.Equal(t, models.TxPending, state)

	_, err = deployer.Receipt(ctx, pending.TxHash)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	backend.Commit()

	state, err = deployer.TransactionState(ctx, pending.TxHash)
	require.NoError(t, err)
	assert.Equal(t, models.TxMined, state)

	receipt, err := deployer.WaitDeployment(ctx, pending.TxHash)
	require.NoError(t, err)
	assert.Equal(t, pending.Address, receipt.Address)

	state, err = deployer.TransactionState(ctx, common.HexToHash("0x1234"))
	require.NoError(t, err)
	assert.Equal(t, models.TxUnknown, state)
}
