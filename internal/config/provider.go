package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/trebuchet-org/catapult/internal/domain/config"
)

// DataDirName is the per-project directory holding records and local config
const DataDirName = ".catapult"

// Provider creates RuntimeConfig for Wire dependency injection
func Provider(v *viper.Viper) (*config.RuntimeConfig, error) {
	// Get project root from viper
	projectRoot := v.GetString("project_root")
	if projectRoot == "" {
		var err error
		projectRoot, err = FindProjectRoot()
		if err != nil {
			return nil, fmt.Errorf("failed to find project root: %w", err)
		}
	}

	project, err := loadProjectConfig(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to load project config: %w", err)
	}

	cfg := &config.RuntimeConfig{
		ProjectRoot:    projectRoot,
		DataDir:        filepath.Join(projectRoot, DataDirName),
		Debug:          v.GetBool("debug"),
		NonInteractive: v.GetBool("non_interactive"),
		AssumeYes:      v.GetBool("yes"),
		Timeout:        v.GetDuration("timeout"),
		Store:          project.Store,
		Artifacts:      project.Artifacts,
		LogFile:        project.LogFile,
		Project:        project,
	}

	if backend := v.GetString("store"); backend != "" {
		cfg.Store.Backend = config.StoreBackend(backend)
	}
	switch cfg.Store.Backend {
	case config.StoreBackendFile, config.StoreBackendSQLite, config.StoreBackendBadger:
	default:
		return nil, fmt.Errorf("unknown store backend %q (expected file, sqlite or badger)", cfg.Store.Backend)
	}
	if cfg.LogFile != "" && !filepath.IsAbs(cfg.LogFile) {
		cfg.LogFile = filepath.Join(projectRoot, cfg.LogFile)
	}

	if networkName := v.GetString("network"); networkName != "" {
		network, err := resolveNetwork(project, networkName)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve network %s: %w", networkName, err)
		}
		if cfg.Timeout > 0 {
			network.ConfirmTimeout = cfg.Timeout
		}
		cfg.Network = network
	}

	return cfg, nil
}

// FindProjectRoot walks up from current directory to find catapult.toml.
// Falls back to the working directory so plans can run without a project file.
func FindProjectRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := cwd
	for {
		if _, err := os.Stat(filepath.Join(dir, ProjectFile)); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return cwd, nil
		}
		dir = parent
	}
}

// SetupViper creates and configures a viper instance
func SetupViper(projectRoot string, cmd *cobra.Command) *viper.Viper {
	v := viper.New()

	// Set up config file
	v.SetConfigName("config.local")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(projectRoot, DataDirName))

	// Set up environment variables
	v.SetEnvPrefix("CATAPULT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	// Set defaults
	v.SetDefault("network", "local")
	v.SetDefault("timeout", "0s")
	v.SetDefault("debug", false)
	v.SetDefault("non_interactive", false)
	v.SetDefault("project_root", projectRoot)

	// Try to read config file (ignore error if not found)
	_ = v.ReadInConfig()

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if err := v.BindPFlag(key, f); err != nil {
			panic(err)
		}
	})

	return v
}
