package prefs

import (
	"context"
	"sync"
)

// MemoryBackend is an in-memory Backend for tests. It can be told to fail
// writes so callers' swallow-and-continue persistence paths are testable.
type MemoryBackend struct {
	mu      sync.RWMutex
	data    map[string]map[string]string
	failMu  sync.Mutex
	failPut error
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string]map[string]string)}
}

// FailPuts makes every subsequent Put return err. Pass nil to heal.
func (b *MemoryBackend) FailPuts(err error) {
	b.failMu.Lock()
	defer b.failMu.Unlock()
	b.failPut = err
}

// Get retrieves the value stored under (namespace, key).
func (b *MemoryBackend) Get(_ context.Context, namespace, key string) (string, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ns, ok := b.data[namespace]
	if !ok {
		return "", false, nil
	}
	v, ok := ns[key]
	return v, ok, nil
}

// Put stores value under (namespace, key).
func (b *MemoryBackend) Put(_ context.Context, namespace, key, value string) error {
	b.failMu.Lock()
	failPut := b.failPut
	b.failMu.Unlock()
	if failPut != nil {
		return failPut
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	ns, ok := b.data[namespace]
	if !ok {
		ns = make(map[string]string)
		b.data[namespace] = ns
	}
	ns[key] = value
	return nil
}

// Delete removes (namespace, key).
func (b *MemoryBackend) Delete(_ context.Context, namespace, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ns, ok := b.data[namespace]; ok {
		delete(ns, key)
	}
	return nil
}

// Close is a no-op.
func (b *MemoryBackend) Close() error { return nil }
