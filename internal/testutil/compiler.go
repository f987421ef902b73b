package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/brianly1003/lobo/internal/domain/ports"
)

// Compilation is one recorded Compile call.
type Compilation struct {
	Source string
	Output string
}

// RecordingCompiler records Compile calls and returns a configurable error.
type RecordingCompiler struct {
	mu    sync.Mutex
	calls []Compilation
	err   error
	delay time.Duration
}

// NewRecordingCompiler creates a compiler fake that always succeeds.
func NewRecordingCompiler() *RecordingCompiler {
	return &RecordingCompiler{}
}

// SetError makes subsequent compiles fail with err.
func (c *RecordingCompiler) SetError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// SetDelay makes each compile take d, honouring ctx cancellation.
func (c *RecordingCompiler) SetDelay(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delay = d
}

// Compile implements ports.Compiler.
func (c *RecordingCompiler) Compile(ctx context.Context, source, output string) error {
	c.mu.Lock()
	c.calls = append(c.calls, Compilation{Source: source, Output: output})
	err, delay := c.err, c.delay
	c.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}

// Calls returns the recorded compilations.
func (c *RecordingCompiler) Calls() []Compilation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Compilation(nil), c.calls...)
}

// Count returns the number of Compile calls.
func (c *RecordingCompiler) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

var _ ports.Compiler = (*RecordingCompiler)(nil)
