// env_config_test.go: environment expansion and overrides
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package httpplugins

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandEnvironmentVariables(t *testing.T) {
	t.Setenv("PLUGIN_HOST", "prefixed")
	t.Setenv("HOST", "plain")
	t.Setenv("PORT", "9000")

	options := DefaultEnvConfigOptions()
	options.Defaults["ZONE"] = "eu"

	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"no placeholders", "no placeholders"},
		{"${HOST}:${PORT}", "prefixed:9000"},
		{"${UNSET_VAR:-fallback}", "fallback"},
		{"${ZONE}", "eu"},
		{"${UNSET_VAR}", ""},
	}
	for _, tt := range tests {
		got, err := ExpandEnvironmentVariables(tt.input, options)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}
}

func TestExpandEnvironmentVariablesFailOnMissing(t *testing.T) {
	options := DefaultEnvConfigOptions()
	options.FailOnMissing = true

	_, err := ExpandEnvironmentVariables("${DEFINITELY_NOT_SET_ANYWHERE}", options)
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
}

func TestExpandEnvironmentVariablesValidation(t *testing.T) {
	t.Setenv("LONG_VALUE", strings.Repeat("x", maxEnvValueLength+1))
	t.Setenv("CTRL_VALUE", "a\x01b")

	_, err := ExpandEnvironmentVariables("${LONG_VALUE}", DefaultEnvConfigOptions())
	assert.Error(t, err)
	_, err = ExpandEnvironmentVariables("${CTRL_VALUE}", DefaultEnvConfigOptions())
	assert.Error(t, err)

	options := DefaultEnvConfigOptions()
	options.ValidateValues = false
	got, err := ExpandEnvironmentVariables("${CTRL_VALUE}", options)
	require.NoError(t, err)
	assert.Equal(t, "a\x01b", got)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("PLUGIN_ADDRESS", "127.0.0.1:6000")
	t.Setenv("PLUGIN_NETWORK", "tcp")
	t.Setenv("PLUGIN_LOG_LEVEL", "error")

	config := unixConfig("/tmp/ignored.sock")
	ApplyEnvOverrides(&config, DefaultEnvConfigOptions())
	assert.Equal(t, "127.0.0.1:6000", config.Address)
	assert.Equal(t, NetworkTCP, config.Network)
	assert.Equal(t, "error", config.Logging.Level)
}
