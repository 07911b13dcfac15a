// env_config.go: environment variable expansion and overrides for serve settings
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package httpplugins

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// EnvConfigOptions configures environment variable processing.
type EnvConfigOptions struct {
	// Prefix tried before the bare variable name (e.g. "PLUGIN_").
	Prefix string `json:"prefix" yaml:"prefix"`

	// FailOnMissing turns an unresolved ${VAR} into a configuration error.
	FailOnMissing bool `json:"fail_on_missing" yaml:"fail_on_missing"`

	// ValidateValues rejects values with null bytes, control characters or
	// excessive length.
	ValidateValues bool `json:"validate_values" yaml:"validate_values"`

	// Defaults used when a variable is unset and has no inline default.
	Defaults map[string]string `json:"defaults,omitempty" yaml:"defaults,omitempty"`
}

// DefaultEnvConfigOptions returns the options used by LoadServeConfig.
func DefaultEnvConfigOptions() EnvConfigOptions {
	return EnvConfigOptions{
		Prefix:         "PLUGIN_",
		FailOnMissing:  false,
		ValidateValues: true,
		Defaults:       make(map[string]string),
	}
}

var envVariablePattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// maxEnvValueLength bounds a single expanded value.
const maxEnvValueLength = 4096

// ExpandEnvironmentVariables expands ${VAR} and ${VAR:-default} in input.
//
// Resolution order for each variable:
//  1. Prefixed environment variable
//  2. Environment variable
//  3. Inline default
//  4. options.Defaults
//  5. Empty string, or an error when FailOnMissing is set
func ExpandEnvironmentVariables(input string, options EnvConfigOptions) (string, error) {
	if input == "" || !strings.Contains(input, "${") {
		return input, nil
	}

	var firstErr error
	result := envVariablePattern.ReplaceAllStringFunc(input, func(match string) string {
		submatches := envVariablePattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}
		inlineDefault := ""
		if len(submatches) >= 4 {
			inlineDefault = submatches[3]
		}
		expanded, err := expandSingleEnvironmentVariable(submatches[1], inlineDefault, options)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return match
		}
		return expanded
	})
	if firstErr != nil {
		return input, firstErr
	}
	return result, nil
}

func expandSingleEnvironmentVariable(varName, inlineDefault string, options EnvConfigOptions) (string, error) {
	prefixedName := options.Prefix + varName
	if value := os.Getenv(prefixedName); value != "" {
		return validateEnvValue(varName, value, options)
	}
	if value := os.Getenv(varName); value != "" {
		return validateEnvValue(varName, value, options)
	}
	if inlineDefault != "" {
		return validateEnvValue(varName, inlineDefault, options)
	}
	if value, ok := options.Defaults[varName]; ok {
		return validateEnvValue(varName, value, options)
	}
	if options.FailOnMissing {
		return "", NewConfigValueError(varName, "",
			fmt.Errorf("required environment variable not found: %s (also tried %s)", varName, prefixedName))
	}
	return "", nil
}

func validateEnvValue(name, value string, options EnvConfigOptions) (string, error) {
	if !options.ValidateValues {
		return value, nil
	}
	if strings.Contains(value, "\x00") {
		return "", NewConfigValueError(name, "", fmt.Errorf("value contains null byte"))
	}
	if len(value) > maxEnvValueLength {
		return "", NewConfigValueError(name, "", fmt.Errorf("value too long: %d bytes (max %d)", len(value), maxEnvValueLength))
	}
	for i, r := range value {
		if r < 32 && r != '\t' {
			return "", NewConfigValueError(name, "", fmt.Errorf("control character at position %d", i))
		}
	}
	return value, nil
}

// ExpandServeConfig expands ${VAR} placeholders in the string settings of
// config.
func ExpandServeConfig(config *ServeConfig, options EnvConfigOptions) error {
	for _, field := range []*string{&config.Address, &config.Logging.File, &config.Logging.Level} {
		expanded, err := ExpandEnvironmentVariables(*field, options)
		if err != nil {
			return err
		}
		*field = expanded
	}
	network, err := ExpandEnvironmentVariables(string(config.Network), options)
	if err != nil {
		return err
	}
	config.Network = NetworkType(network)
	return nil
}

// ApplyEnvOverrides lets <prefix>ADDRESS, <prefix>NETWORK and
// <prefix>LOG_LEVEL replace the corresponding settings.
func ApplyEnvOverrides(config *ServeConfig, options EnvConfigOptions) {
	if v := os.Getenv(options.Prefix + "ADDRESS"); v != "" {
		config.Address = v
	}
	if v := os.Getenv(options.Prefix + "NETWORK"); v != "" {
		config.Network = NetworkType(v)
	}
	if v := os.Getenv(options.Prefix + "LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}
