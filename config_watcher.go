// config_watcher.go: argus powered reloading of plugin-owned files
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package httpplugins

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/agilira/argus"
	"gopkg.in/yaml.v3"
)

// ConfigWatcherOptions tunes file polling.
type ConfigWatcherOptions struct {
	PollInterval time.Duration
	CacheTTL     time.Duration
}

// DefaultConfigWatcherOptions returns the polling settings used when none
// are given.
func DefaultConfigWatcherOptions() ConfigWatcherOptions {
	return ConfigWatcherOptions{
		PollInterval: 2 * time.Second,
		CacheTTL:     time.Second,
	}
}

// ConfigWatcher loads a structured file and calls back with its parsed
// content each time it changes. Plugins use it for settings that live
// outside the PluginConfig delivered by the host, such as token lists.
type ConfigWatcher struct {
	path     string
	logger   Logger
	watcher  *argus.Watcher
	onChange func(map[string]interface{})

	mu      sync.Mutex
	running bool
}

// NewConfigWatcher creates a watcher for path. onChange is called from the
// watcher's goroutine; a panic in it is logged and does not stop watching.
func NewConfigWatcher(path string, options ConfigWatcherOptions, logger Logger, onChange func(map[string]interface{})) (*ConfigWatcher, error) {
	if path == "" {
		return nil, NewConfigFileError(path, "path is empty", nil)
	}
	logger = NewLogger(logger)
	if options.PollInterval <= 0 {
		options.PollInterval = DefaultConfigWatcherOptions().PollInterval
	}
	if options.CacheTTL <= 0 || options.CacheTTL > options.PollInterval {
		options.CacheTTL = options.PollInterval / 2
	}

	watcher := argus.New(argus.Config{
		PollInterval:         options.PollInterval,
		CacheTTL:             options.CacheTTL,
		MaxWatchedFiles:      1,
		OptimizationStrategy: argus.OptimizationSingleEvent,
		ErrorHandler: func(err error, file string) {
			logger.Error("Config file watching error", "error", err, "file", file)
		},
	})

	return &ConfigWatcher{
		path:     filepath.Clean(path),
		logger:   logger,
		watcher:  watcher,
		onChange: onChange,
	}, nil
}

// Load parses the file once without watching it.
func (cw *ConfigWatcher) Load() (map[string]interface{}, error) {
	return LoadConfigMap(cw.path)
}

// Start delivers the current content to onChange and begins watching.
func (cw *ConfigWatcher) Start() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if cw.running {
		return nil
	}

	values, err := cw.Load()
	if err != nil {
		return err
	}
	cw.deliver(values)

	if err := cw.watcher.Watch(cw.path, cw.handleChange); err != nil {
		return NewConfigWatcherError(cw.path, err)
	}
	if err := cw.watcher.Start(); err != nil {
		return NewConfigWatcherError(cw.path, err)
	}
	cw.running = true
	cw.logger.Info("Watching config file", "path", cw.path)
	return nil
}

// Stop ends watching. It is safe to call more than once.
func (cw *ConfigWatcher) Stop() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if !cw.running {
		return nil
	}
	cw.running = false
	if err := cw.watcher.Stop(); err != nil {
		return NewConfigWatcherError(cw.path, err)
	}
	return nil
}

func (cw *ConfigWatcher) handleChange(event argus.ChangeEvent) {
	cw.logger.Info("Config file change detected",
		"path", event.Path,
		"size", event.Size,
		"is_create", event.IsCreate,
		"is_delete", event.IsDelete,
		"is_modify", event.IsModify)

	if event.IsDelete {
		cw.logger.Warn("Config file was deleted, keeping previous values", "path", event.Path)
		return
	}

	values, err := LoadConfigMap(cw.path)
	if err != nil {
		cw.logger.Error("Failed to reload config file", "path", cw.path, "error", err)
		return
	}
	cw.deliver(values)
}

func (cw *ConfigWatcher) deliver(values map[string]interface{}) {
	defer withStackRecover(cw.logger)()
	if cw.onChange != nil {
		cw.onChange(values)
	}
}

// LoadConfigMap reads path into a generic map. YAML and JSON go through
// yaml.v3; TOML, HCL, INI and properties files through argus.
func LoadConfigMap(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, NewConfigFileError(path, "cannot read file", err)
	}

	format := argus.DetectFormat(path)
	switch format {
	case argus.FormatYAML, argus.FormatJSON:
		values := make(map[string]interface{})
		if err := yaml.Unmarshal(data, &values); err != nil {
			return nil, NewConfigParseError(path, err)
		}
		return values, nil
	case argus.FormatUnknown:
		return nil, NewConfigFileError(path, "unsupported config format", nil)
	default:
		values, err := argus.ParseConfig(data, format)
		if err != nil {
			return nil, NewConfigParseError(path, err)
		}
		return values, nil
	}
}
