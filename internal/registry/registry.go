// Package registry keeps the ordered set of watched directories and their
// subscriptions with the notification backend.
package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/brianly1003/lobo/internal/domain"
	"github.com/brianly1003/lobo/internal/domain/ports"
	"github.com/brianly1003/lobo/internal/pathutil"
	lsync "github.com/brianly1003/lobo/internal/sync"
	"github.com/rs/zerolog/log"
)

// WatchedDirectory is a registered directory and its subscription handle.
// Handle is empty while the directory is not subscribed.
type WatchedDirectory struct {
	Path   string       `json:"path"`
	Handle ports.Handle `json:"handle,omitempty"`
}

// Options configures how directories are subscribed and persisted.
type Options struct {
	// Key is the store key holding the JSON list of paths.
	Key string

	// Mask is the event mask requested for every subscription.
	Mask ports.Op

	// Recursive subscribes to subdirectories as well.
	Recursive bool
}

// Registry maps directory paths to subscription handles. Paths keep
// insertion order and each path appears at most once.
type Registry struct {
	notifier  ports.Notifier
	store     ports.Store
	key       string
	mask      ports.Op
	recursive bool

	mu       lsync.RWMutex
	order    []string
	handles  map[string]ports.Handle
	owners   map[ports.Handle]string
	watching bool
}

// New creates an empty registry. Call Load to restore the persisted list.
func New(notifier ports.Notifier, store ports.Store, opts Options) *Registry {
	if opts.Mask == 0 {
		opts.Mask = ports.OpCloseWrite
	}
	return &Registry{
		notifier:  notifier,
		store:     store,
		key:       opts.Key,
		mask:      opts.Mask,
		recursive: opts.Recursive,
		handles:   make(map[string]ports.Handle),
		owners:    make(map[ports.Handle]string),
	}
}

// NormalizePath returns the absolute, cleaned form used as registry key.
func NormalizePath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", domain.ErrInvalidPath
	}
	abs, err := pathutil.Absolute(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidPath, err)
	}
	return abs, nil
}

// Load replaces the registry contents with the persisted list. Absent or
// malformed data leaves the registry empty and is returned as a
// *domain.PersistenceReadError for the caller to report.
func (r *Registry) Load() error {
	paths, err := readPaths(r.store, r.key)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.order = nil
	r.handles = make(map[string]ports.Handle)
	r.owners = make(map[ports.Handle]string)

	if err != nil {
		return err
	}

	for _, p := range paths {
		norm, nerr := NormalizePath(p)
		if nerr != nil {
			log.Warn().Str("path", p).Msg("skipping invalid persisted path")
			continue
		}
		if _, dup := r.handles[norm]; dup {
			continue
		}
		r.order = append(r.order, norm)
		r.handles[norm] = ""
	}

	log.Debug().Int("directories", len(r.order)).Msg("watch list loaded")
	return nil
}

// Add registers path. While watching, a path that already has a
// subscription fails with domain.ErrAlreadyWatched; otherwise adding is
// idempotent. When watching is active the directory is subscribed right
// away. The persisted list is updated before Add returns.
func (r *Registry) Add(path string) (string, error) {
	norm, err := NormalizePath(path)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	h, exists := r.handles[norm]
	if exists && r.watching && !h.IsZero() {
		return norm, domain.ErrAlreadyWatched
	}

	if !exists {
		r.order = append(r.order, norm)
		r.handles[norm] = ""
	}

	var subErr error
	if r.watching {
		subErr = r.subscribeLocked(norm)
	}

	if err := r.persistLocked(); err != nil {
		return norm, errors.Join(subErr, err)
	}

	return norm, subErr
}

// Remove unregisters path, cancelling its subscription first.
func (r *Registry) Remove(path string) (string, error) {
	norm, err := NormalizePath(path)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	h, exists := r.handles[norm]
	if !exists {
		return norm, domain.ErrNotFound
	}

	var unsubErr error
	if !h.IsZero() {
		if err := r.notifier.Unsubscribe(h); err != nil {
			unsubErr = fmt.Errorf("unsubscribe %s: %w", norm, err)
			log.Warn().Err(err).Str("path", norm).Msg("failed to cancel subscription")
		}
		delete(r.owners, h)
	}

	delete(r.handles, norm)
	for i, p := range r.order {
		if p == norm {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	if err := r.persistLocked(); err != nil {
		return norm, errors.Join(unsubErr, err)
	}
	return norm, unsubErr
}

// StartWatching subscribes every registered path that has no handle.
// Failures are collected per path and never stop the remaining paths.
// Calling it while already watching does nothing.
func (r *Registry) StartWatching() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.watching {
		return nil
	}
	r.watching = true

	var errs []error
	for _, p := range r.order {
		if !r.handles[p].IsZero() {
			continue
		}
		if err := r.subscribeLocked(p); err != nil {
			errs = append(errs, err)
		}
	}

	log.Info().
		Int("directories", len(r.order)).
		Int("failed", len(errs)).
		Msg("watching started")

	return errors.Join(errs...)
}

// StopWatching cancels every subscription and clears all handles. The
// path list is left untouched.
func (r *Registry) StopWatching() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.watching {
		return nil
	}
	r.watching = false

	var errs []error
	for _, p := range r.order {
		h := r.handles[p]
		if h.IsZero() {
			continue
		}
		if err := r.notifier.Unsubscribe(h); err != nil {
			errs = append(errs, fmt.Errorf("unsubscribe %s: %w", p, err))
		}
		r.handles[p] = ""
	}
	r.owners = make(map[ports.Handle]string)

	log.Info().Int("directories", len(r.order)).Msg("watching stopped")
	return errors.Join(errs...)
}

// List returns the registered paths in insertion order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Entries returns a snapshot of every registered directory with its handle.
func (r *Registry) Entries() []WatchedDirectory {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]WatchedDirectory, 0, len(r.order))
	for _, p := range r.order {
		entries = append(entries, WatchedDirectory{Path: p, Handle: r.handles[p]})
	}
	return entries
}

// Contains reports whether path is registered.
func (r *Registry) Contains(path string) bool {
	norm, err := NormalizePath(path)
	if err != nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handles[norm]
	return ok
}

// Owns reports whether h is the live subscription of a registered path.
// Notifications carrying any other handle are stale.
func (r *Registry) Owns(h ports.Handle) bool {
	if h.IsZero() {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.owners[h]
	return ok
}

// IsWatching reports whether watching is active.
func (r *Registry) IsWatching() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.watching
}

// Len returns the number of registered paths.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Close cancels subscriptions for shutdown; the persisted list is kept so
// watching resumes on the next launch.
func (r *Registry) Close() error {
	return r.StopWatching()
}

// subscribeLocked requests a subscription for path. Caller holds r.mu.
func (r *Registry) subscribeLocked(path string) error {
	h, err := r.notifier.Subscribe(path, r.mask, r.recursive)
	if err != nil {
		var subErr *domain.SubscriptionError
		if !errors.As(err, &subErr) {
			err = domain.NewSubscriptionError(path, err)
		}
		log.Warn().Err(err).Str("path", path).Msg("subscription failed")
		return err
	}
	r.handles[path] = h
	r.owners[h] = path
	return nil
}

// persistLocked writes the ordered list to the store. Caller holds r.mu.
func (r *Registry) persistLocked() error {
	if err := writePaths(r.store, r.key, r.order); err != nil {
		log.Error().Err(err).Msg("failed to persist watch list")
		return err
	}
	return nil
}
