// config.go: serve configuration, validation and file loading
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package httpplugins

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/agilira/argus"
	"gopkg.in/yaml.v3"
)

// NetworkType selects the listener family.
type NetworkType string

const (
	NetworkUnix NetworkType = "unix"
	NetworkTCP  NetworkType = "tcp"
)

// DefaultMaxMessageSize bounds a single request or response body on the wire.
const DefaultMaxMessageSize = 4 * 1024 * 1024

// ParseNetworkType maps a selector onto a NetworkType. Only the exact
// strings "unix" and "tcp" are accepted.
func ParseNetworkType(s string) (NetworkType, error) {
	switch NetworkType(s) {
	case NetworkUnix:
		return NetworkUnix, nil
	case NetworkTCP:
		return NetworkTCP, nil
	default:
		return "", NewUnsupportedNetworkError(s)
	}
}

// LogConfig controls the logger built by the command entry point.
type LogConfig struct {
	Level       string `json:"level" yaml:"level"`
	Format      string `json:"format" yaml:"format"`
	File        string `json:"file,omitempty" yaml:"file,omitempty"`
	MaxSizeMB   int    `json:"max_size_mb,omitempty" yaml:"max_size_mb,omitempty"`
	MaxBackups  int    `json:"max_backups,omitempty" yaml:"max_backups,omitempty"`
	MaxAgeDays  int    `json:"max_age_days,omitempty" yaml:"max_age_days,omitempty"`
	Compress    bool   `json:"compress,omitempty" yaml:"compress,omitempty"`
	Development bool   `json:"development,omitempty" yaml:"development,omitempty"`
}

// ServeConfig describes where and how a plugin is served.
type ServeConfig struct {
	// Address is a filesystem path for unix, host:port for tcp.
	Address string `json:"address" yaml:"address"`

	Network NetworkType `json:"network" yaml:"network"`

	MaxRecvMsgSize int `json:"max_recv_msg_size,omitempty" yaml:"max_recv_msg_size,omitempty"`
	MaxSendMsgSize int `json:"max_send_msg_size,omitempty" yaml:"max_send_msg_size,omitempty"`

	// HealthService registers the standard grpc.health.v1 service next to
	// the plugin service.
	HealthService *bool `json:"health_service,omitempty" yaml:"health_service,omitempty"`

	Logging LogConfig `json:"logging" yaml:"logging"`
}

// DefaultServeConfig returns the settings used when nothing is configured.
func DefaultServeConfig() ServeConfig {
	return ServeConfig{
		Network:        NetworkUnix,
		MaxRecvMsgSize: DefaultMaxMessageSize,
		MaxSendMsgSize: DefaultMaxMessageSize,
		Logging: LogConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// ApplyDefaults fills zero fields from DefaultServeConfig.
func (c *ServeConfig) ApplyDefaults() {
	def := DefaultServeConfig()
	if c.Network == "" {
		c.Network = def.Network
	}
	if c.MaxRecvMsgSize <= 0 {
		c.MaxRecvMsgSize = def.MaxRecvMsgSize
	}
	if c.MaxSendMsgSize <= 0 {
		c.MaxSendMsgSize = def.MaxSendMsgSize
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = def.Logging.MaxSizeMB
	}
	if c.Logging.MaxBackups <= 0 {
		c.Logging.MaxBackups = def.Logging.MaxBackups
	}
	if c.Logging.MaxAgeDays <= 0 {
		c.Logging.MaxAgeDays = def.Logging.MaxAgeDays
	}
}

// HealthServiceEnabled reports whether the grpc health service is wanted.
// It defaults to on.
func (c ServeConfig) HealthServiceEnabled() bool {
	return c.HealthService == nil || *c.HealthService
}

// Validate checks the configuration without touching the network or the
// filesystem. An unset Network means unix, as after ApplyDefaults.
func (c ServeConfig) Validate() error {
	selector := c.Network
	if selector == "" {
		selector = NetworkUnix
	}
	network, err := ParseNetworkType(string(selector))
	if err != nil {
		return err
	}
	if strings.TrimSpace(c.Address) == "" {
		return NewMissingAddressError(network)
	}
	if network == NetworkTCP {
		if err := validateTCPAddress(c.Address); err != nil {
			return err
		}
	}
	if c.MaxRecvMsgSize < 0 {
		return NewConfigValueError("max_recv_msg_size", strconv.Itoa(c.MaxRecvMsgSize), nil)
	}
	if c.MaxSendMsgSize < 0 {
		return NewConfigValueError("max_send_msg_size", strconv.Itoa(c.MaxSendMsgSize), nil)
	}
	return nil
}

// validateTCPAddress accepts ip:port with a numeric port. The host may be
// empty (all interfaces) or an IP literal; names are not resolved.
func validateTCPAddress(address string) error {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return NewInvalidBindAddressError(address, err)
	}
	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return NewInvalidBindAddressError(address, err)
	}
	if host != "" && net.ParseIP(host) == nil {
		return NewInvalidBindAddressError(address, fmt.Errorf("host %q is not an IP address", host))
	}
	return nil
}

// LoadServeConfig reads a serve configuration file. The format is detected
// from the extension; YAML and JSON are decoded with yaml.v3, other formats
// supported by argus are parsed to a map and bound field by field.
// String settings go through environment expansion.
func LoadServeConfig(path string) (ServeConfig, error) {
	config := DefaultServeConfig()

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return config, NewConfigFileError(path, "cannot read file", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return config, NewConfigFileError(path, "config file is empty", nil)
	}

	format := argus.DetectFormat(path)
	switch format {
	case argus.FormatYAML, argus.FormatJSON:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return config, NewConfigParseError(path, err)
		}
	case argus.FormatUnknown:
		return config, NewConfigFileError(path, "unsupported config format", nil)
	default:
		values, err := argus.ParseConfig(data, format)
		if err != nil {
			return config, NewConfigParseError(path, err)
		}
		if err := bindServeConfig(values, &config); err != nil {
			return config, NewConfigParseError(path, err)
		}
	}

	if err := ExpandServeConfig(&config, DefaultEnvConfigOptions()); err != nil {
		return config, err
	}
	config.ApplyDefaults()
	return config, nil
}

// bindServeConfig copies known keys from a generic map.
func bindServeConfig(values map[string]interface{}, config *ServeConfig) error {
	if v, ok := values["address"]; ok {
		config.Address = fmt.Sprint(v)
	}
	if v, ok := values["network"]; ok {
		config.Network = NetworkType(fmt.Sprint(v))
	}
	for key, dst := range map[string]*int{
		"max_recv_msg_size": &config.MaxRecvMsgSize,
		"max_send_msg_size": &config.MaxSendMsgSize,
	} {
		if v, ok := values[key]; ok {
			n, err := toInt(v)
			if err != nil {
				return NewConfigValueError(key, fmt.Sprint(v), err)
			}
			*dst = n
		}
	}
	if v, ok := values["health_service"]; ok {
		enabled, err := strconv.ParseBool(fmt.Sprint(v))
		if err != nil {
			return NewConfigValueError("health_service", fmt.Sprint(v), err)
		}
		config.HealthService = &enabled
	}
	if logging, ok := values["logging"].(map[string]interface{}); ok {
		return bindLogConfig(logging, &config.Logging)
	}
	return nil
}

func bindLogConfig(values map[string]interface{}, config *LogConfig) error {
	for key, dst := range map[string]*string{
		"level":  &config.Level,
		"format": &config.Format,
		"file":   &config.File,
	} {
		if v, ok := values[key]; ok {
			*dst = fmt.Sprint(v)
		}
	}
	for key, dst := range map[string]*int{
		"max_size_mb":  &config.MaxSizeMB,
		"max_backups":  &config.MaxBackups,
		"max_age_days": &config.MaxAgeDays,
	} {
		if v, ok := values[key]; ok {
			n, err := toInt(v)
			if err != nil {
				return NewConfigValueError("logging."+key, fmt.Sprint(v), err)
			}
			*dst = n
		}
	}
	for key, dst := range map[string]*bool{
		"compress":    &config.Compress,
		"development": &config.Development,
	} {
		if v, ok := values[key]; ok {
			b, err := strconv.ParseBool(fmt.Sprint(v))
			if err != nil {
				return NewConfigValueError("logging."+key, fmt.Sprint(v), err)
			}
			*dst = b
		}
	}
	return nil
}

func toInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return strconv.Atoi(strings.TrimSpace(fmt.Sprint(v)))
	}
}
