package ports

import (
	"context"
	"strings"
	"time"
)

// Handle is an opaque token for an active watch subscription.
// The zero value means "no subscription".
type Handle string

// IsZero reports whether h is the empty handle.
func (h Handle) IsZero() bool {
	return h == ""
}

// Op is a bit mask of filesystem event kinds.
type Op uint32

const (
	// OpCloseWrite fires when a file that was open for writing is closed.
	OpCloseWrite Op = 1 << iota
	OpCreate
	OpRemove
	OpRename
)

// Has reports whether o contains every bit of other.
func (o Op) Has(other Op) bool {
	return o&other == other
}

func (o Op) String() string {
	var parts []string
	if o.Has(OpCloseWrite) {
		parts = append(parts, "CLOSE_WRITE")
	}
	if o.Has(OpCreate) {
		parts = append(parts, "CREATE")
	}
	if o.Has(OpRemove) {
		parts = append(parts, "REMOVE")
	}
	if o.Has(OpRename) {
		parts = append(parts, "RENAME")
	}
	if len(parts) == 0 {
		return "NONE"
	}
	return strings.Join(parts, "|")
}

// Notification is a single filesystem change delivered for a subscription.
type Notification struct {
	Path   string
	Op     Op
	Handle Handle
}

// Notifier defines the contract for the filesystem notification backend.
type Notifier interface {
	// Subscribe registers path for the events in mask and returns its handle.
	Subscribe(path string, mask Op, recursive bool) (Handle, error)

	// Unsubscribe cancels a subscription. Notifications already buffered
	// for the handle may still be returned by Poll.
	Unsubscribe(h Handle) error

	// Poll waits up to timeout for notifications and returns everything
	// that is available. An empty result means the timeout elapsed.
	Poll(ctx context.Context, timeout time.Duration) ([]Notification, error)

	// Drain discards buffered notifications and returns how many were dropped.
	Drain() int

	// Close releases all subscriptions and backend resources.
	Close() error
}
