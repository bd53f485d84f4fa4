package config

import (
	"fmt"
	"strings"
)

// LocalConfig holds per-checkout defaults stored in .catapult/config.local.json.
// Keys match the runtime flags they default.
type LocalConfig struct {
	Network string `json:"network,omitempty"`
	Store   string `json:"store,omitempty"`
}

// ConfigKey names a settable local config value
type ConfigKey string

const (
	ConfigKeyNetwork ConfigKey = "network"
	ConfigKeyStore   ConfigKey = "store"
)

// ValidConfigKeys returns the keys accepted by config set and remove
func ValidConfigKeys() []ConfigKey {
	return []ConfigKey{ConfigKeyNetwork, ConfigKeyStore}
}

// ParseConfigKey normalizes a user supplied key
func ParseConfigKey(key string) (ConfigKey, error) {
	normalized := ConfigKey(strings.ToLower(strings.TrimSpace(key)))
	for _, k := range ValidConfigKeys() {
		if k == normalized {
			return k, nil
		}
	}
	valid := make([]string, 0, len(ValidConfigKeys()))
	for _, k := range ValidConfigKeys() {
		valid = append(valid, string(k))
	}
	return "", fmt.Errorf("unknown config key: %s (available keys: %s)", key, strings.Join(valid, ", "))
}

// Get returns the value stored for key
func (c *LocalConfig) Get(key ConfigKey) string {
	switch key {
	case ConfigKeyNetwork:
		return c.Network
	case ConfigKeyStore:
		return c.Store
	}
	return ""
}

// Set stores value under key; an empty value clears it
func (c *LocalConfig) Set(key ConfigKey, value string) {
	switch key {
	case ConfigKeyNetwork:
		c.Network = value
	case ConfigKeyStore:
		c.Store = value
	}
}
