package config

import (
	"path/filepath"
	"time"
)

// RuntimeConfig represents the complete runtime configuration
// This is injected into use cases and contains all resolved settings
type RuntimeConfig struct {
	// Core settings
	ProjectRoot string
	DataDir     string

	// Context settings
	Network *Network // nil if not specified

	// Execution settings
	Debug          bool
	NonInteractive bool
	AssumeYes      bool // Skip the broadcast confirmation prompt
	Timeout        time.Duration

	// Resolved configurations
	Store     StoreConfig
	Artifacts ArtifactsConfig
	LogFile   string
	Project   *ProjectConfig
}

// Network represents a resolved network configuration
type Network struct {
	Name           string        `json:"name"`
	RPCURL         string        `json:"rpcUrl"`
	ChainID        uint64        `json:"chainId,omitempty"` // 0 means ask the node
	SenderKey      string        `json:"-"`
	ConfirmTimeout time.Duration `json:"confirmTimeout"`
	Local          bool          `json:"local"`
}

// StoreBackend selects the record store implementation
type StoreBackend string

const (
	StoreBackendFile   StoreBackend = "file"
	StoreBackendSQLite StoreBackend = "sqlite"
	StoreBackendBadger StoreBackend = "badger"
)

// StoreConfig configures where deployment records are persisted
type StoreConfig struct {
	Backend StoreBackend `toml:"backend"`
	Path    string       `toml:"path"` // Relative to the data dir unless absolute
}

// ArtifactsConfig lists the directories searched for compiled contracts
type ArtifactsConfig struct {
	Paths []string `toml:"paths"`
}

// StorePath resolves the configured store path against the data dir,
// falling back to name when no path is configured
func (c *RuntimeConfig) StorePath(name string) string {
	p := c.Store.Path
	if p == "" {
		p = name
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}
