// testing_helpers_test.go: shared helpers for server and client tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package httpplugins

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// createShortSocketPath returns an unused socket path under /tmp. macOS
// limits socket paths to 104 characters, which t.TempDir often exceeds.
func createShortSocketPath(t *testing.T) string {
	t.Helper()

	tmpFile, err := os.CreateTemp("/tmp", "test_*.sock")
	require.NoError(t, err)
	socketPath := tmpFile.Name()
	require.NoError(t, tmpFile.Close())
	require.NoError(t, os.Remove(socketPath))

	t.Cleanup(func() {
		_ = os.Remove(socketPath)
	})
	return socketPath
}

// runningServer is a Server serving in the background.
type runningServer struct {
	server *Server
	cancel context.CancelFunc
	done   chan error
	config ServeConfig
}

// startTestServer serves plugin and waits until the listener is bound.
func startTestServer(t *testing.T, plugin Plugin, config ServeConfig, opts ...ServerOption) *runningServer {
	t.Helper()

	server := NewServer(plugin, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.Serve(ctx, config)
	}()

	select {
	case <-server.Ready():
	case err := <-done:
		cancel()
		t.Fatalf("server exited before becoming ready: %v", err)
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("server did not become ready")
	}

	rs := &runningServer{server: server, cancel: cancel, done: done, config: config}
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
		}
	})
	return rs
}

// stop cancels the serve context and returns Serve's result.
func (rs *runningServer) stop(t *testing.T) error {
	t.Helper()
	rs.cancel()
	select {
	case err := <-rs.done:
		rs.done <- err
		return err
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
		return nil
	}
}

// dial connects a client to rs.
func (rs *runningServer) dial(t *testing.T) *Client {
	t.Helper()

	network, err := ParseNetworkType(string(rs.config.Network))
	require.NoError(t, err)
	address := rs.config.Address
	if network == NetworkTCP {
		address = rs.server.Addr().String()
	}
	client, err := Dial(network, address)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// loggedArg returns the value logged under key with the first entry whose
// message is message.
func loggedArg(logger *TestLogger, message, key string) (any, bool) {
	logger.mu.RLock()
	defer logger.mu.RUnlock()
	for _, entry := range logger.Messages {
		if entry.Message != message {
			continue
		}
		for i := 0; i+1 < len(entry.Args); i += 2 {
			if entry.Args[i] == key {
				return entry.Args[i+1], true
			}
		}
	}
	return nil, false
}

func unixConfig(path string) ServeConfig {
	config := DefaultServeConfig()
	config.Network = NetworkUnix
	config.Address = path
	return config
}

func tcpConfig() ServeConfig {
	config := DefaultServeConfig()
	config.Network = NetworkTCP
	config.Address = "127.0.0.1:0"
	return config
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}
