package mocks

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// MockKVStore implements domain.KVStore in memory and counts every call. An optional
// latency is added to each call to approximate a networked store.
type MockKVStore struct {
	data    map[string][]byte
	mu      sync.RWMutex
	latency time.Duration

	// Metrics for benchmarking
	Gets    int64
	Sets    int64
	Deletes int64
	Bytes   int64
}

// NewMockKVStore creates an empty store.
func NewMockKVStore(latency time.Duration) *MockKVStore {
	return &MockKVStore{data: make(map[string][]byte), latency: latency}
}

func (m *MockKVStore) wait() {
	if m.latency > 0 {
		time.Sleep(m.latency)
	}
}

// Get implements domain.KVStore
func (m *MockKVStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	atomic.AddInt64(&m.Gets, 1)
	m.wait()
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return slices.Clone(v), ok, nil
}

// Set implements domain.KVStore
func (m *MockKVStore) Set(_ context.Context, key string, value []byte) error {
	atomic.AddInt64(&m.Sets, 1)
	atomic.AddInt64(&m.Bytes, int64(len(value)))
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = slices.Clone(value)
	return nil
}

// Delete implements domain.KVStore
func (m *MockKVStore) Delete(_ context.Context, key string) error {
	atomic.AddInt64(&m.Deletes, 1)
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// GetMetrics returns gets, sets, deletes and bytes written.
func (m *MockKVStore) GetMetrics() (gets, sets, deletes, bytes int64) {
	return atomic.LoadInt64(&m.Gets), atomic.LoadInt64(&m.Sets), atomic.LoadInt64(&m.Deletes), atomic.LoadInt64(&m.Bytes)
}

// Reset clears data and metrics.
func (m *MockKVStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string][]byte)
	atomic.StoreInt64(&m.Gets, 0)
	atomic.StoreInt64(&m.Sets, 0)
	atomic.StoreInt64(&m.Deletes, 0)
	atomic.StoreInt64(&m.Bytes, 0)
}
