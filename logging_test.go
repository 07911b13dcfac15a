// logging_test.go: logger implementations
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package httpplugins

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	assert.IsType(t, &NoOpLogger{}, NewLogger(nil))

	tl := NewTestLogger()
	assert.Same(t, tl, NewLogger(tl))

	assert.IsType(t, &ZapLogger{}, NewLogger(zap.NewNop()))

	assert.Panics(t, func() { NewLogger("not a logger") })
}

func TestZapLoggerFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := NewZapLogger(zap.New(core)).With("plugin", "auth")

	logger.Debug("debug entry", "n", 1)
	logger.Info("info entry")
	logger.Warn("warn entry", "path", "/x")
	logger.Error("error entry")

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, "debug entry", entries[0].Message)
	assert.Equal(t, "auth", entries[0].ContextMap()["plugin"])
	assert.Equal(t, int64(1), entries[0].ContextMap()["n"])
	assert.Equal(t, "/x", entries[2].ContextMap()["path"])
	assert.Equal(t, zap.ErrorLevel, entries[3].Level)
}

func TestBuildLoggerWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plugin.log")
	logger, closeLogger, err := BuildLogger(LogConfig{
		Level:      "info",
		Format:     "json",
		File:       path,
		MaxSizeMB:  1,
		MaxBackups: 1,
	})
	require.NoError(t, err)

	logger.Debug("filtered out")
	logger.Info("Listening on Unix socket", "path", "/tmp/p.sock")
	require.NoError(t, closeLogger())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "Listening on Unix socket", entry["msg"])
	assert.Equal(t, "/tmp/p.sock", entry["path"])
	assert.Contains(t, entry, "timestamp")
}

func TestBuildLoggerRejectsBadSettings(t *testing.T) {
	_, _, err := BuildLogger(LogConfig{Level: "loud"})
	assert.True(t, IsConfigurationError(err))

	_, _, err = BuildLogger(LogConfig{Level: "info", Format: "xml"})
	assert.True(t, IsConfigurationError(err))
}

func TestTestLogger(t *testing.T) {
	tl := NewTestLogger()
	tl.With("k", "v").Warn("careful")
	tl.Info("hello")

	assert.True(t, tl.HasMessage("WARN", "careful"))
	assert.True(t, tl.HasMessage("INFO", "hello"))
	assert.False(t, tl.HasMessage("ERROR", "hello"))

	tl.Clear()
	assert.False(t, tl.HasMessage("INFO", "hello"))
}

func TestLoggerContext(t *testing.T) {
	assert.IsType(t, &NoOpLogger{}, LoggerFromContext(context.Background()))

	tl := NewTestLogger()
	ctx := ContextWithLogger(context.Background(), tl)
	assert.Same(t, tl, LoggerFromContext(ctx))
}
