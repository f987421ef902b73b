//go:build deadlock

// Package sync provides the mutex types used by lobo's shared state.
// Building with -tags deadlock swaps them for go-deadlock implementations.
package sync

import (
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
)

// Mutex reports lock waits longer than the deadlock timeout.
type Mutex = deadlock.Mutex

// RWMutex reports lock waits longer than the deadlock timeout.
type RWMutex = deadlock.RWMutex

// WaitGroup is the standard sync.WaitGroup.
type WaitGroup = sync.WaitGroup

// Once is the standard sync.Once.
type Once = sync.Once

// DetectionEnabled reports whether lock-order checking is compiled in.
func DetectionEnabled() bool {
	return !deadlock.Opts.Disable
}

func init() {
	// A compile running under the registry lock would be a bug, so keep
	// the timeout well above any realistic lessc run.
	deadlock.Opts.DeadlockTimeout = 30 * time.Second

	if os.Getenv("LOBO_NO_DEADLOCK_DETECT") != "" {
		deadlock.Opts.Disable = true
		return
	}

	deadlock.Opts.PrintAllCurrentGoroutines = true
	deadlock.Opts.OnPotentialDeadlock = func() {
		log.Error().Msg("potential deadlock detected")
		os.Exit(2)
	}
}
