package adapters

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/wire"
	"github.com/trebuchet-org/catapult/internal/adapters/artifacts"
	"github.com/trebuchet-org/catapult/internal/adapters/blockchain"
	"github.com/trebuchet-org/catapult/internal/adapters/fs"
	"github.com/trebuchet-org/catapult/internal/adapters/interactive"
	"github.com/trebuchet-org/catapult/internal/adapters/kv"
	"github.com/trebuchet-org/catapult/internal/adapters/planfile"
	"github.com/trebuchet-org/catapult/internal/adapters/sqlite"
	"github.com/trebuchet-org/catapult/internal/domain/config"
	"github.com/trebuchet-org/catapult/internal/usecase"
)

// ProvideRecordStore opens the record store selected by the store backend
func ProvideRecordStore(cfg *config.RuntimeConfig, log *slog.Logger) (usecase.RecordStore, func(), error) {
	var (
		store usecase.RecordStore
		err   error
	)
	switch cfg.Store.Backend {
	case config.StoreBackendFile, "":
		store = fs.NewRecordStoreAdapter(cfg)
	case config.StoreBackendSQLite:
		path := cfg.StorePath("records.db")
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create store directory: %w", err)
		}
		store, err = sqlite.Open(path)
	case config.StoreBackendBadger:
		store, err = kv.Open(cfg.StorePath("badger"), log)
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s record store: %w", cfg.Store.Backend, err)
	}

	log.Debug("record store opened", "backend", cfg.Store.Backend)
	cleanup := func() {
		if err := store.Close(); err != nil {
			log.Warn("failed to close record store", "error", err)
		}
	}
	return store, cleanup, nil
}

// ProvideDeployer creates the chain client; the node is dialled on first use
func ProvideDeployer(cfg *config.RuntimeConfig, log *slog.Logger) (*blockchain.Deployer, func(), error) {
	deployer, err := blockchain.NewDeployer(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return deployer, deployer.Close, nil
}

// FSSet provides filesystem-based implementations
var FSSet = wire.NewSet(
	fs.NewRunLockAdapter,
	wire.Bind(new(usecase.RunLock), new(*fs.RunLockAdapter)),

	fs.NewManifestWriterAdapter,
	wire.Bind(new(usecase.ManifestWriter), new(*fs.ManifestWriterAdapter)),

	fs.NewLocalConfigStoreAdapter,
	wire.Bind(new(usecase.LocalConfigStore), new(*fs.LocalConfigStoreAdapter)),
)

// StoreSet provides the record store
var StoreSet = wire.NewSet(
	ProvideRecordStore,
)

// ArtifactsSet provides blueprint lookup and plan loading
var ArtifactsSet = wire.NewSet(
	artifacts.NewRepository,
	wire.Bind(new(usecase.BlueprintSource), new(*artifacts.Repository)),

	planfile.NewLoader,
	wire.Bind(new(usecase.PlanLoader), new(*planfile.Loader)),
)

// InteractiveSet provides interactive implementations
var InteractiveSet = wire.NewSet(
	interactive.NewConfirmerAdapter,
	wire.Bind(new(usecase.Confirmer), new(*interactive.ConfirmerAdapter)),
)

// BlockchainSet provides blockchain-based implementations
var BlockchainSet = wire.NewSet(
	ProvideDeployer,
	wire.Bind(new(usecase.ChainClient), new(*blockchain.Deployer)),
)

// AllAdapters includes all adapter sets
var AllAdapters = wire.NewSet(
	FSSet,
	StoreSet,
	ArtifactsSet,
	InteractiveSet,
	BlockchainSet,
)
