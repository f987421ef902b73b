package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/brianly1003/lobo/internal/domain"
	"github.com/brianly1003/lobo/internal/domain/ports"
	"github.com/brianly1003/lobo/internal/pathutil"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// fsSubscription is one Subscribe call on the fsnotify backend.
type fsSubscription struct {
	root      string
	mask      ports.Op
	recursive bool
	dirs      map[string]struct{}
}

// FSNotify implements ports.Notifier with fsnotify. fsnotify has no portable
// close-write event, so a path that stops receiving writes for the debounce
// window is reported as OpCloseWrite.
type FSNotify struct {
	ignore    matcher
	queue     *queue
	debouncer *Debouncer

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	subs    map[ports.Handle]*fsSubscription
	dirRefs map[string]int
	closed  bool
	cancel  context.CancelFunc
}

// NewFSNotify creates the fsnotify backend and starts its event loop.
func NewFSNotify(opts Options) (*FSNotify, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	window := opts.Debounce
	if window <= 0 {
		window = DefaultDebounce
	}

	ctx, cancel := context.WithCancel(context.Background())
	n := &FSNotify{
		ignore:  matcher{patterns: opts.IgnorePatterns},
		queue:   newQueue(),
		watcher: w,
		subs:    make(map[ports.Handle]*fsSubscription),
		dirRefs: make(map[string]int),
		cancel:  cancel,
	}
	n.debouncer = NewDebouncer(window, n.handleQuiet)

	go n.eventLoop(ctx, w)

	log.Debug().Dur("debounce", window).Msg("fsnotify backend started")
	return n, nil
}

// Subscribe watches path (and its subdirectories when recursive).
func (n *FSNotify) Subscribe(path string, mask ports.Op, recursive bool) (ports.Handle, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", domain.NewSubscriptionError(path, err)
	}
	if !info.IsDir() {
		return "", domain.NewSubscriptionError(path, domain.ErrNotDirectory)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return "", domain.NewSubscriptionError(path, domain.ErrNotifierClosed)
	}

	sub := &fsSubscription{
		root:      path,
		mask:      mask,
		recursive: recursive,
		dirs:      make(map[string]struct{}),
	}

	if recursive {
		err = n.addWatchRecursive(sub, path)
	} else {
		err = n.addDir(sub, path)
	}
	if err != nil {
		n.releaseDirs(sub)
		return "", domain.NewSubscriptionError(path, err)
	}

	h := newHandle()
	n.subs[h] = sub

	log.Debug().
		Str("path", path).
		Str("handle", string(h)).
		Int("dirs", len(sub.dirs)).
		Msg("fsnotify subscription added")

	return h, nil
}

// Unsubscribe removes the watches that no other subscription needs.
func (n *FSNotify) Unsubscribe(h ports.Handle) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	sub, ok := n.subs[h]
	if !ok {
		return domain.ErrUnknownHandle
	}
	delete(n.subs, h)
	n.releaseDirs(sub)
	n.debouncer.Cancel(sub.root)

	log.Debug().Str("path", sub.root).Str("handle", string(h)).Msg("fsnotify subscription removed")
	return nil
}

// Poll returns notifications that arrive within timeout.
func (n *FSNotify) Poll(ctx context.Context, timeout time.Duration) ([]ports.Notification, error) {
	return n.queue.poll(ctx, timeout)
}

// Drain discards buffered notifications.
func (n *FSNotify) Drain() int {
	return n.queue.drain()
}

// Close stops the event loop and releases the fsnotify watcher.
func (n *FSNotify) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil
	}
	n.closed = true
	n.cancel()
	n.debouncer.Stop()
	n.subs = make(map[ports.Handle]*fsSubscription)
	n.dirRefs = make(map[string]int)

	log.Debug().Msg("fsnotify backend stopped")
	return n.watcher.Close()
}

// addWatchRecursive adds watches to a directory and all subdirectories.
// Caller holds n.mu.
func (n *FSNotify) addWatchRecursive(sub *fsSubscription, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil // Skip dirs we can't access
		}

		if !info.IsDir() {
			return nil
		}

		if path != sub.root && n.ignore.matchUnder(sub.root, path) {
			return filepath.SkipDir
		}

		if err := n.addDir(sub, path); err != nil {
			if path == root {
				return err
			}
			log.Warn().Err(err).Str("path", path).Msg("failed to add watch")
		}
		return nil
	})
}

// addDir adds a single directory watch, sharing it between subscriptions.
// Caller holds n.mu.
func (n *FSNotify) addDir(sub *fsSubscription, dir string) error {
	if _, ok := sub.dirs[dir]; ok {
		return nil
	}
	if n.dirRefs[dir] == 0 {
		if err := n.watcher.Add(dir); err != nil {
			return err
		}
	}
	n.dirRefs[dir]++
	sub.dirs[dir] = struct{}{}
	return nil
}

// releaseDirs drops the subscription's references. Caller holds n.mu.
func (n *FSNotify) releaseDirs(sub *fsSubscription) {
	for dir := range sub.dirs {
		n.dirRefs[dir]--
		if n.dirRefs[dir] <= 0 {
			delete(n.dirRefs, dir)
			if err := n.watcher.Remove(dir); err != nil {
				log.Debug().Err(err).Str("path", dir).Msg("failed to remove watch")
			}
		}
	}
	sub.dirs = make(map[string]struct{})
}

// eventLoop handles fsnotify events.
func (n *FSNotify) eventLoop(ctx context.Context, w *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.Events:
			if !ok {
				return
			}
			n.handleEvent(event)

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("watcher error")
		}
	}
}

// handleEvent processes a single fsnotify event.
func (n *FSNotify) handleEvent(event fsnotify.Event) {
	switch {
	case event.Has(fsnotify.Create):
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			n.watchNewDir(event.Name)
			return
		}
		n.emit(event.Name, ports.OpCreate)
		// Files created by a rename or copy may never see a Write.
		n.debouncer.Add(event.Name)
	case event.Has(fsnotify.Write):
		n.debouncer.Add(event.Name)
	case event.Has(fsnotify.Remove):
		n.emit(event.Name, ports.OpRemove)
	case event.Has(fsnotify.Rename):
		n.emit(event.Name, ports.OpRename)
	}
}

// handleQuiet is the debouncer callback: the path saw no writes for the window.
func (n *FSNotify) handleQuiet(path string) {
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return
	}
	n.emit(path, ports.OpCloseWrite)
}

// watchNewDir extends recursive subscriptions to a newly created directory.
func (n *FSNotify) watchNewDir(dir string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, sub := range n.subs {
		if sub.recursive && pathutil.Within(sub.root, dir) {
			if err := n.addWatchRecursive(sub, dir); err != nil {
				log.Warn().Err(err).Str("path", dir).Msg("failed to watch new directory")
			}
		}
	}
}

// emit queues a notification for the most specific subscription covering
// path, unless path is ignored below that subscription's root.
func (n *FSNotify) emit(path string, op ports.Op) {
	h, root, ok := n.owner(path, op)
	if !ok || n.ignore.matchUnder(root, path) {
		return
	}
	n.queue.push(ports.Notification{
		Path:   path,
		Op:     op,
		Handle: h,
	})
}

func (n *FSNotify) owner(path string, op ports.Op) (ports.Handle, string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	var (
		best     ports.Handle
		bestRoot string
		bestLen  = -1
	)
	for h, sub := range n.subs {
		if sub.mask&op == 0 {
			continue
		}
		if covers(sub.root, sub.recursive, path) && len(sub.root) > bestLen {
			best, bestRoot, bestLen = h, sub.root, len(sub.root)
		}
	}
	return best, bestRoot, bestLen >= 0
}

var _ ports.Notifier = (*FSNotify)(nil)
