package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigKey(t *testing.T) {
	key, err := ParseConfigKey(" Network ")
	require.NoError(t, err)
	assert.Equal(t, ConfigKeyNetwork, key)

	_, err = ParseConfigKey("namespace")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network, store")
}

func TestLocalConfig_SetGet(t *testing.T) {
	var c LocalConfig
	c.Set(ConfigKeyStore, "sqlite")
	c.Set(ConfigKeyNetwork, "sepolia")
	assert.Equal(t, "sqlite", c.Get(ConfigKeyStore))
	assert.Equal(t, "sepolia", c.Get(ConfigKeyNetwork))

	c.Set(ConfigKeyNetwork, "")
	assert.Empty(t, c.Get(ConfigKeyNetwork))
}
