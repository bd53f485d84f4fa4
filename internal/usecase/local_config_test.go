package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/catapult/internal/domain/config"
	"github.com/trebuchet-org/catapult/internal/usecase"
)

type memoryConfigStore struct {
	cfg   *config.LocalConfig
	saved bool
}

func (s *memoryConfigStore) Exists() bool { return s.cfg != nil }

func (s *memoryConfigStore) Load(ctx context.Context) (*config.LocalConfig, error) {
	if s.cfg == nil {
		return &config.LocalConfig{}, nil
	}
	cp := *s.cfg
	return &cp, nil
}

func (s *memoryConfigStore) Save(ctx context.Context, cfg *config.LocalConfig) error {
	cp := *cfg
	s.cfg = &cp
	s.saved = true
	return nil
}

func (s *memoryConfigStore) GetPath() string { return ".catapult/config.local.json" }

func projectRuntime() *config.RuntimeConfig {
	return &config.RuntimeConfig{
		Project: &config.ProjectConfig{
			Networks: map[string]config.NetworkConfig{
				"local":   {RPCURL: "http://127.0.0.1:8545"},
				"sepolia": {RPCURL: "https://rpc.sepolia.org"},
			},
		},
	}
}

func TestSetConfig(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		params  usecase.SetConfigParams
		wantErr string
		check   func(t *testing.T, cfg *config.LocalConfig)
	}{
		{
			name:   "network",
			params: usecase.SetConfigParams{Key: "network", Value: "sepolia"},
			check: func(t *testing.T, cfg *config.LocalConfig) {
				assert.Equal(t, "sepolia", cfg.Network)
			},
		},
		{
			name:   "store backend",
			params: usecase.SetConfigParams{Key: "STORE", Value: "badger"},
			check: func(t *testing.T, cfg *config.LocalConfig) {
				assert.Equal(t, "badger", cfg.Store)
			},
		},
		{
			name:    "unknown network",
			params:  usecase.SetConfigParams{Key: "network", Value: "mainnet"},
			wantErr: "known: local, sepolia",
		},
		{
			name:    "unknown backend",
			params:  usecase.SetConfigParams{Key: "store", Value: "postgres"},
			wantErr: "unknown store backend",
		},
		{
			name:    "unknown key",
			params:  usecase.SetConfigParams{Key: "namespace", Value: "prod"},
			wantErr: "unknown config key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memoryConfigStore{}
			uc := usecase.NewSetConfig(projectRuntime(), store)

			result, err := uc.Run(ctx, tt.params)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.False(t, store.saved)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, store.GetPath(), result.ConfigPath)
			tt.check(t, store.cfg)
		})
	}
}

func TestRemoveConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("clears the value", func(t *testing.T) {
		store := &memoryConfigStore{cfg: &config.LocalConfig{Network: "sepolia", Store: "sqlite"}}
		result, err := usecase.NewRemoveConfig(store).Run(ctx, usecase.RemoveConfigParams{Key: "network"})
		require.NoError(t, err)

		assert.Equal(t, "sepolia", result.Value)
		assert.Empty(t, store.cfg.Network)
		assert.Equal(t, "sqlite", store.cfg.Store)
	})

	t.Run("no config file", func(t *testing.T) {
		_, err := usecase.NewRemoveConfig(&memoryConfigStore{}).Run(ctx, usecase.RemoveConfigParams{Key: "network"})
		assert.Error(t, err)
	})
}

func TestShowConfig(t *testing.T) {
	result, err := usecase.NewShowConfig(&memoryConfigStore{}).Run(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Exists)
	assert.NotNil(t, result.Config)
}
