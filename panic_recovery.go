// panic_recovery.go: panic recovery for plugin calls and background goroutines
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package httpplugins

import (
	"context"
	"runtime"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// stackBufferSize bounds the captured stack trace.
const stackBufferSize = 64 << 10

func captureStack() []byte {
	buf := make([]byte, stackBufferSize)
	n := runtime.Stack(buf, false)
	return buf[:n]
}

// withStackRecover returns a function to be deferred that logs a panic with
// its stack trace instead of crashing the process.
//
//	go func() {
//	    defer withStackRecover(logger)()
//	    // potentially panicking code
//	}()
func withStackRecover(logger Logger) func() {
	return func() {
		if r := recover(); r != nil {
			logger.Error("Panic recovered in goroutine",
				"panic", r,
				"stack", string(captureStack()))
		}
	}
}

// SafeGo runs fn in a new goroutine, logging instead of crashing on panic.
func SafeGo(logger Logger, fn func()) {
	go func() {
		defer withStackRecover(logger)()
		fn()
	}()
}

// recoveryInterceptor turns a panic inside a plugin call into an Internal
// status for that call only.
func recoveryInterceptor(logger Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Panic recovered in plugin call",
					"method", info.FullMethod,
					"panic", r,
					"stack", string(captureStack()))
				resp = nil
				err = status.Error(codes.Internal, "plugin panicked while handling the call")
			}
		}()
		return handler(ctx, req)
	}
}
