package watcher

import (
	"sync"
	"time"

	"github.com/brianly1003/lobo/internal/pathutil"
)

// Debouncer coalesces rapid write events for the same path into one
// callback after the path has been quiet for the window.
type Debouncer struct {
	window   time.Duration
	callback func(path string)

	mu      sync.Mutex
	pending map[string]pendingFire
	seq     uint64
	stopped bool
}

// pendingFire is the live timer for a path. seq tells a timer that was
// replaced while already firing from the one that replaced it.
type pendingFire struct {
	timer *time.Timer
	seq   uint64
}

// NewDebouncer creates a new debouncer with the given window and callback.
func NewDebouncer(window time.Duration, callback func(path string)) *Debouncer {
	return &Debouncer{
		window:   window,
		callback: callback,
		pending:  make(map[string]pendingFire),
	}
}

// Add queues an event for debouncing, restarting the path's timer.
func (d *Debouncer) Add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if p, ok := d.pending[path]; ok {
		p.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.pending[path] = pendingFire{
		timer: time.AfterFunc(d.window, func() { d.fire(path, seq) }),
		seq:   seq,
	}
}

// fire executes the callback for a path if seq is still its latest timer.
func (d *Debouncer) fire(path string, seq uint64) {
	d.mu.Lock()
	if p, ok := d.pending[path]; !ok || p.seq != seq {
		d.mu.Unlock()
		return
	}
	delete(d.pending, path)
	stopped := d.stopped
	d.mu.Unlock()

	if !stopped && d.callback != nil {
		d.callback(path)
	}
}

// Cancel drops pending events for paths under root.
func (d *Debouncer) Cancel(root string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for path, p := range d.pending {
		if pathutil.Within(root, path) {
			p.timer.Stop()
			delete(d.pending, path)
		}
	}
}

// Pending returns the number of paths waiting to fire.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Stop stops all pending timers.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	for _, p := range d.pending {
		p.timer.Stop()
	}
	d.pending = make(map[string]pendingFire)
}
