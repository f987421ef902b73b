//go:build !deadlock

// Package sync provides the mutex types used by lobo's shared state.
// Building with -tags deadlock swaps them for go-deadlock implementations.
package sync

import "sync"

// Mutex is the standard sync.Mutex in release builds.
type Mutex = sync.Mutex

// RWMutex is the standard sync.RWMutex in release builds.
type RWMutex = sync.RWMutex

// WaitGroup is the standard sync.WaitGroup.
type WaitGroup = sync.WaitGroup

// Once is the standard sync.Once.
type Once = sync.Once

// DetectionEnabled reports whether lock-order checking is compiled in.
func DetectionEnabled() bool {
	return false
}
