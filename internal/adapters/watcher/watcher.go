// Package watcher implements the filesystem notification backends that
// feed write-close events to the watching session.
package watcher

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/brianly1003/lobo/internal/domain/ports"
	"github.com/brianly1003/lobo/internal/pathutil"
	"github.com/google/uuid"
)

// DefaultDebounce is the quiet period the fsnotify backend waits after the
// last write before it reports a path as closed.
const DefaultDebounce = 50 * time.Millisecond

// Options configures a backend.
type Options struct {
	// Backend is "notify" or "fsnotify".
	Backend string

	// IgnorePatterns are glob patterns matched against path components.
	IgnorePatterns []string

	// Debounce applies to the fsnotify backend only.
	Debounce time.Duration
}

// New creates the backend selected by opts.Backend.
func New(opts Options) (ports.Notifier, error) {
	switch opts.Backend {
	case "fsnotify":
		return NewFSNotify(opts)
	case "notify", "":
		return NewNotify(opts), nil
	default:
		return nil, fmt.Errorf("unknown watcher backend %q", opts.Backend)
	}
}

// covers reports whether a subscription on root sees events for path.
func covers(root string, recursive bool, path string) bool {
	dir := filepath.Dir(path)
	if recursive {
		return pathutil.Within(root, dir)
	}
	return dir == root
}

func newHandle() ports.Handle {
	return ports.Handle(uuid.New().String())
}
