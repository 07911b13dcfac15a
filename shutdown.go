// shutdown.go: signal driven shutdown context for plugin processes
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package httpplugins

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// ShutdownSignals are the signals that start a graceful shutdown.
var ShutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// ShutdownContext returns a context cancelled on the first SIGINT or SIGTERM.
// The signal is logged. The handler is released after the first signal or
// when stop is called, so a second signal terminates the process the
// default way.
func ShutdownContext(parent context.Context, logger Logger) (ctx context.Context, stop context.CancelFunc) {
	if logger == nil {
		logger = DefaultLogger()
	}
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, ShutdownSignals...)

	SafeGo(logger, func() {
		select {
		case sig := <-sigCh:
			logger.Info("Received signal, shutting down gracefully", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	})

	return ctx, cancel
}
