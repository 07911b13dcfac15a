// config_test.go: serve configuration validation and loading
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package httpplugins

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNetworkType(t *testing.T) {
	n, err := ParseNetworkType("unix")
	require.NoError(t, err)
	assert.Equal(t, NetworkUnix, n)

	n, err = ParseNetworkType("tcp")
	require.NoError(t, err)
	assert.Equal(t, NetworkTCP, n)

	for _, selector := range []string{"udp", "TCP", "Unix", " unix ", "tcp4", ""} {
		_, err = ParseNetworkType(selector)
		require.Error(t, err, "selector %q", selector)
		assert.True(t, IsConfigurationError(err), "selector %q", selector)
	}

	_, err = ParseNetworkType("udp")
	assert.Contains(t, err.Error(), "Unsupported network type: udp")
}

func TestServeConfigValidate(t *testing.T) {
	t.Run("ValidUnix", func(t *testing.T) {
		assert.NoError(t, unixConfig("/tmp/plugin.sock").Validate())
	})

	t.Run("ValidTCP", func(t *testing.T) {
		for _, addr := range []string{"127.0.0.1:50051", "[::1]:0", ":8080", "0.0.0.0:9000"} {
			config := tcpConfig()
			config.Address = addr
			assert.NoError(t, config.Validate(), addr)
		}
	})

	t.Run("InvalidTCPAddress", func(t *testing.T) {
		for _, addr := range []string{"not-an-address", "127.0.0.1", "127.0.0.1:http", "127.0.0.1:70000", "localhost:9000", "plugin.internal:80"} {
			config := tcpConfig()
			config.Address = addr
			err := config.Validate()
			require.Error(t, err, addr)
			assert.True(t, IsConfigurationError(err), addr)
		}
	})

	t.Run("MissingAddress", func(t *testing.T) {
		err := unixConfig("").Validate()
		require.Error(t, err)
		assert.True(t, IsConfigurationError(err))
	})

	t.Run("UnknownNetwork", func(t *testing.T) {
		for _, selector := range []NetworkType{"pipe", "TCP", "Unix", " unix "} {
			config := unixConfig("/tmp/x.sock")
			config.Network = selector
			err := config.Validate()
			require.Error(t, err, selector)
			assert.True(t, IsConfigurationError(err), selector)
		}
	})

	t.Run("UnsetNetworkIsUnix", func(t *testing.T) {
		config := unixConfig("/tmp/x.sock")
		config.Network = ""
		assert.NoError(t, config.Validate())
	})
}

func TestServeConfigApplyDefaults(t *testing.T) {
	var config ServeConfig
	config.ApplyDefaults()
	assert.Equal(t, NetworkUnix, config.Network)
	assert.Equal(t, DefaultMaxMessageSize, config.MaxRecvMsgSize)
	assert.Equal(t, "info", config.Logging.Level)
	assert.True(t, config.HealthServiceEnabled())
}

func TestLoadServeConfigYAML(t *testing.T) {
	t.Setenv("PLUGIN_SOCKET_DIR", "/run/plugins")

	path := filepath.Join(t.TempDir(), "serve.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
address: ${SOCKET_DIR}/auth.sock
network: unix
health_service: false
logging:
  level: debug
  format: console
`), 0o600))

	config, err := LoadServeConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/run/plugins/auth.sock", config.Address)
	assert.Equal(t, NetworkUnix, config.Network)
	assert.False(t, config.HealthServiceEnabled())
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, "console", config.Logging.Format)
	assert.Equal(t, DefaultMaxMessageSize, config.MaxSendMsgSize)
}

func TestLoadServeConfigJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "serve.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"address": "127.0.0.1:7000", "network": "tcp", "max_recv_msg_size": 1024}`), 0o600))

	config, err := LoadServeConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", config.Address)
	assert.Equal(t, NetworkTCP, config.Network)
	assert.Equal(t, 1024, config.MaxRecvMsgSize)
}

func TestLoadServeConfigErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadServeConfig(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("  \n"), 0o600))
	_, err = LoadServeConfig(empty)
	assert.True(t, IsConfigurationError(err))

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("address: [unclosed"), 0o600))
	_, err = LoadServeConfig(broken)
	assert.True(t, IsConfigurationError(err))
}

func TestBindServeConfig(t *testing.T) {
	config := DefaultServeConfig()
	err := bindServeConfig(map[string]interface{}{
		"address":           "/tmp/p.sock",
		"network":           "unix",
		"max_send_msg_size": float64(2048),
		"health_service":    "false",
		"logging": map[string]interface{}{
			"level":    "warn",
			"compress": true,
		},
	}, &config)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/p.sock", config.Address)
	assert.Equal(t, 2048, config.MaxSendMsgSize)
	assert.False(t, config.HealthServiceEnabled())
	assert.Equal(t, "warn", config.Logging.Level)
	assert.True(t, config.Logging.Compress)

	err = bindServeConfig(map[string]interface{}{"max_recv_msg_size": "lots"}, &config)
	assert.True(t, IsConfigurationError(err))
}
