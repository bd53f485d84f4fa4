package config

// ProjectConfig represents the catapult.toml file at the project root
type ProjectConfig struct {
	LogFile   string                   `toml:"log_file"`
	Artifacts ArtifactsConfig          `toml:"artifacts"`
	Store     StoreConfig              `toml:"store"`
	Networks  map[string]NetworkConfig `toml:"networks"`
}

// NetworkConfig is the raw [networks.<name>] section
type NetworkConfig struct {
	RPCURL         string `toml:"rpc_url"`
	ChainID        uint64 `toml:"chain_id"`
	SenderKey      string `toml:"sender_key"`
	ConfirmTimeout string `toml:"confirm_timeout"`
}

// DefaultArtifactPaths covers Foundry and Truffle build layouts
var DefaultArtifactPaths = []string{"out", "build/contracts"}

// DefaultProjectConfig returns the configuration used when catapult.toml is empty
func DefaultProjectConfig() *ProjectConfig {
	return &ProjectConfig{
		Artifacts: ArtifactsConfig{Paths: append([]string(nil), DefaultArtifactPaths...)},
		Store:     StoreConfig{Backend: StoreBackendFile},
		Networks: map[string]NetworkConfig{
			"local": {
				RPCURL:    "http://127.0.0.1:8545",
				SenderKey: "${DEPLOYER_PRIVATE_KEY}",
			},
		},
	}
}
