package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/trebuchet-org/catapult/internal/domain/config"
)

// ShowConfigResult contains the result of showing configuration
type ShowConfigResult struct {
	Config     *config.LocalConfig
	ConfigPath string
	Exists     bool
}

// ShowConfig reads the local config
type ShowConfig struct {
	store LocalConfigStore
}

// NewShowConfig creates a new ShowConfig use case
func NewShowConfig(store LocalConfigStore) *ShowConfig {
	return &ShowConfig{store: store}
}

// Run executes the show config use case
func (uc *ShowConfig) Run(ctx context.Context) (*ShowConfigResult, error) {
	exists := uc.store.Exists()

	cfg, err := uc.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	return &ShowConfigResult{
		Config:     cfg,
		ConfigPath: uc.store.GetPath(),
		Exists:     exists,
	}, nil
}

// SetConfigParams contains parameters for setting configuration
type SetConfigParams struct {
	Key   string
	Value string
}

// SetConfigResult contains the result of setting or removing a value
type SetConfigResult struct {
	Config     *config.LocalConfig
	ConfigPath string
	Key        config.ConfigKey
	Value      string // Previous value when removing
}

// SetConfig validates and stores a local config value
type SetConfig struct {
	runtime *config.RuntimeConfig
	store   LocalConfigStore
}

// NewSetConfig creates a new SetConfig use case
func NewSetConfig(runtime *config.RuntimeConfig, store LocalConfigStore) *SetConfig {
	return &SetConfig{runtime: runtime, store: store}
}

// Run executes the set config use case
func (uc *SetConfig) Run(ctx context.Context, params SetConfigParams) (*SetConfigResult, error) {
	key, err := config.ParseConfigKey(params.Key)
	if err != nil {
		return nil, err
	}
	value := strings.TrimSpace(params.Value)
	if err := uc.validate(key, value); err != nil {
		return nil, err
	}

	cfg, err := uc.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Set(key, value)

	if err := uc.store.Save(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config: %w", err)
	}

	return &SetConfigResult{
		Config:     cfg,
		ConfigPath: uc.store.GetPath(),
		Key:        key,
		Value:      value,
	}, nil
}

func (uc *SetConfig) validate(key config.ConfigKey, value string) error {
	switch key {
	case config.ConfigKeyNetwork:
		if uc.runtime.Project == nil {
			return nil
		}
		if _, ok := uc.runtime.Project.Networks[value]; !ok {
			known := lo.Keys(uc.runtime.Project.Networks)
			sort.Strings(known)
			return fmt.Errorf("network '%s' is not defined (known: %s)", value, strings.Join(known, ", "))
		}
	case config.ConfigKeyStore:
		switch config.StoreBackend(value) {
		case config.StoreBackendFile, config.StoreBackendSQLite, config.StoreBackendBadger:
		default:
			return fmt.Errorf("unknown store backend %q (expected file, sqlite or badger)", value)
		}
	}
	return nil
}

// RemoveConfigParams contains parameters for removing configuration
type RemoveConfigParams struct {
	Key string
}

// RemoveConfig clears a local config value
type RemoveConfig struct {
	store LocalConfigStore
}

// NewRemoveConfig creates a new RemoveConfig use case
func NewRemoveConfig(store LocalConfigStore) *RemoveConfig {
	return &RemoveConfig{store: store}
}

// Run executes the remove config use case
func (uc *RemoveConfig) Run(ctx context.Context, params RemoveConfigParams) (*SetConfigResult, error) {
	if !uc.store.Exists() {
		return nil, fmt.Errorf("no config file found at %s", uc.store.GetPath())
	}

	key, err := config.ParseConfigKey(params.Key)
	if err != nil {
		return nil, err
	}

	cfg, err := uc.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	previous := cfg.Get(key)
	cfg.Set(key, "")

	if err := uc.store.Save(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config: %w", err)
	}

	return &SetConfigResult{
		Config:     cfg,
		ConfigPath: uc.store.GetPath(),
		Key:        key,
		Value:      previous,
	}, nil
}
