// request_tracker.go: in-flight call tracking for graceful draining
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package httpplugins

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	timecache "github.com/agilira/go-timecache"
)

// RequestTracker counts in-flight calls per method.
type RequestTracker struct {
	activeRequests map[string]*atomic.Int64
	mu             sync.RWMutex

	total     atomic.Int64
	completed atomic.Int64

	// unix nanos of the most recent call start
	lastStart atomic.Int64
}

// NewRequestTracker creates a new request tracker.
func NewRequestTracker() *RequestTracker {
	return &RequestTracker{
		activeRequests: make(map[string]*atomic.Int64),
	}
}

func (rt *RequestTracker) counter(method string) *atomic.Int64 {
	rt.mu.RLock()
	counter, exists := rt.activeRequests[method]
	rt.mu.RUnlock()
	if exists {
		return counter
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	if counter, exists = rt.activeRequests[method]; !exists {
		counter = &atomic.Int64{}
		rt.activeRequests[method] = counter
	}
	return counter
}

// StartRequest records the start of a call to method.
func (rt *RequestTracker) StartRequest(method string) {
	rt.counter(method).Add(1)
	rt.total.Add(1)
	rt.lastStart.Store(timecache.CachedTimeNano())
}

// EndRequest records the end of a call to method.
func (rt *RequestTracker) EndRequest(method string) {
	rt.mu.RLock()
	counter, exists := rt.activeRequests[method]
	rt.mu.RUnlock()
	if !exists {
		return
	}
	counter.Add(-1)
	rt.total.Add(-1)
	rt.completed.Add(1)
}

// GetActiveRequestCount returns the number of in-flight calls to method.
func (rt *RequestTracker) GetActiveRequestCount(method string) int64 {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	if counter, exists := rt.activeRequests[method]; exists {
		return counter.Load()
	}
	return 0
}

// GetTotalActive returns the number of in-flight calls across all methods.
func (rt *RequestTracker) GetTotalActive() int64 {
	return rt.total.Load()
}

// GetCompleted returns the number of calls that have finished.
func (rt *RequestTracker) GetCompleted() int64 {
	return rt.completed.Load()
}

// LastRequestTime returns when the most recent call started, or the zero
// time if none has.
func (rt *RequestTracker) LastRequestTime() time.Time {
	n := rt.lastStart.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// GetAllActiveRequests returns the in-flight count of every method that has
// been called at least once.
func (rt *RequestTracker) GetAllActiveRequests() map[string]int64 {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	out := make(map[string]int64, len(rt.activeRequests))
	for method, counter := range rt.activeRequests {
		out[method] = counter.Load()
	}
	return out
}

// WaitForDrain blocks until no call is in flight or ctx is done. It returns
// ctx.Err() in the latter case.
func (rt *RequestTracker) WaitForDrain(ctx context.Context) error {
	if rt.GetTotalActive() == 0 {
		return nil
	}
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if rt.GetTotalActive() == 0 {
				return nil
			}
		}
	}
}
