// panic_recovery_test.go: panic recovery utilities
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package httpplugins

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestSafeGoRecoversPanic(t *testing.T) {
	logger := NewTestLogger()
	done := make(chan struct{})

	SafeGo(logger, func() {
		defer close(done)
		panic("boom")
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine did not run")
	}
	assert.Eventually(t, func() bool {
		return logger.HasMessage("ERROR", "Panic recovered in goroutine")
	}, time.Second, 10*time.Millisecond)
}

func TestRecoveryInterceptor(t *testing.T) {
	logger := NewTestLogger()
	interceptor := recoveryInterceptor(logger)
	info := &grpc.UnaryServerInfo{FullMethod: HandleRequestMethod}

	resp, err := interceptor(context.Background(), &HTTPRequest{}, info, func(context.Context, any) (any, error) {
		panic("plugin bug")
	})
	assert.Nil(t, resp)
	require.Error(t, err)
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.True(t, logger.HasMessage("ERROR", "Panic recovered in plugin call"))

	resp, err = interceptor(context.Background(), &HTTPRequest{}, info, func(context.Context, any) (any, error) {
		return PassThrough(), nil
	})
	require.NoError(t, err)
	assert.Equal(t, PassThrough(), resp)
}
