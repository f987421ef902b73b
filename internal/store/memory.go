package store

import (
	"sync"

	"github.com/brianly1003/lobo/internal/domain/ports"
)

// Memory is an in-process store. Nothing survives the process.
type Memory struct {
	mu      sync.RWMutex
	values  map[string]string
	flushes int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

// Read returns the value for key.
func (m *Memory) Read(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Write sets the value for key.
func (m *Memory) Write(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Flush counts flushes so tests can assert persistence happened.
func (m *Memory) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushes++
	return nil
}

// Flushes returns how many times Flush was called.
func (m *Memory) Flushes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.flushes
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}

var _ ports.Store = (*Memory)(nil)
