package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/trebuchet-org/catapult/internal/domain/config"
)

// ProjectFile is the name of the project configuration file
const ProjectFile = "catapult.toml"

// loadProjectConfig loads .env files and parses catapult.toml
func loadProjectConfig(projectRoot string) (*config.ProjectConfig, error) {
	// Load .env files first for variable expansion
	envFiles := []string{
		filepath.Join(projectRoot, ".env"),
		filepath.Join(projectRoot, ".env.local"),
	}

	for _, envFile := range envFiles {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				// Log warning but don't fail
				fmt.Fprintf(os.Stderr, "Warning: Failed to load %s: %v\n", envFile, err)
			}
		}
	}

	cfg := config.DefaultProjectConfig()

	projectPath := filepath.Join(projectRoot, ProjectFile)
	if _, err := os.Stat(projectPath); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to stat %s: %w", ProjectFile, err)
	}

	var raw config.ProjectConfig
	if _, err := toml.DecodeFile(projectPath, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ProjectFile, err)
	}

	if raw.LogFile != "" {
		cfg.LogFile = os.ExpandEnv(raw.LogFile)
	}
	if len(raw.Artifacts.Paths) > 0 {
		cfg.Artifacts.Paths = raw.Artifacts.Paths
	}
	if raw.Store.Backend != "" {
		cfg.Store.Backend = raw.Store.Backend
	}
	cfg.Store.Path = raw.Store.Path

	// Networks declared in the file replace the built-in local default
	// only for the names they define
	for name, network := range raw.Networks {
		network.RPCURL = os.ExpandEnv(network.RPCURL)
		network.SenderKey = os.ExpandEnv(network.SenderKey)
		cfg.Networks[name] = network
	}

	return cfg, nil
}
