// Package store persists identity, contact, and transcript state in a
// namespaced key-value store. The SQLite driver survives restarts; the
// in-memory driver covers tests and environments where the profile
// directory is unwritable.
package store

import "sync"

// KV is the minimal key-value capability the store is built on.
// Implementations never surface errors to callers: a failed write means the
// session loses cross-restart continuity, nothing more.
type KV interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Remove(key string)
	Close() error
}

// MemoryKV is a mutex-guarded in-memory KV driver.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryKV creates an empty in-memory KV store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

func (m *MemoryKV) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *MemoryKV) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

func (m *MemoryKV) Remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
}

func (m *MemoryKV) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]string)
	return nil
}
