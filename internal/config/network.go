package config

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/trebuchet-org/catapult/internal/domain/config"
)

// DefaultConfirmTimeout bounds how long a deployment waits to be mined
const DefaultConfirmTimeout = 2 * time.Minute

// resolveNetwork turns a [networks.<name>] section into a runtime network
func resolveNetwork(project *config.ProjectConfig, name string) (*config.Network, error) {
	raw, ok := project.Networks[name]
	if !ok {
		known := lo.Keys(project.Networks)
		sort.Strings(known)
		return nil, fmt.Errorf("network '%s' not found in %s (known: %s)", name, ProjectFile, strings.Join(known, ", "))
	}

	rpcURL := os.ExpandEnv(raw.RPCURL)
	if rpcURL == "" {
		return nil, fmt.Errorf("network '%s' has no rpc_url", name)
	}

	timeout := DefaultConfirmTimeout
	if raw.ConfirmTimeout != "" {
		parsed, err := time.ParseDuration(raw.ConfirmTimeout)
		if err != nil {
			return nil, fmt.Errorf("network '%s' has an invalid confirm_timeout: %w", name, err)
		}
		timeout = parsed
	}

	return &config.Network{
		Name:           name,
		RPCURL:         rpcURL,
		ChainID:        raw.ChainID,
		SenderKey:      strings.TrimSpace(os.ExpandEnv(raw.SenderKey)),
		ConfirmTimeout: timeout,
		Local:          isLocalRPC(rpcURL),
	}, nil
}

// isLocalRPC reports whether the RPC endpoint points at this machine
func isLocalRPC(rpcURL string) bool {
	u, err := url.Parse(rpcURL)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1", "0.0.0.0":
		return true
	}
	return false
}
