package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/brianly1003/lobo/internal/domain"
	"github.com/brianly1003/lobo/internal/domain/ports"
	"github.com/rjeczalik/notify"
	"github.com/rs/zerolog/log"
)

const subscriptionBuffer = 256

// notifySubscription is one Subscribe call on the notify backend. Every
// subscription owns its channel so it can be stopped on its own.
type notifySubscription struct {
	root      string
	mask      ports.Op
	recursive bool
	ch        chan notify.EventInfo
	done      chan struct{}
}

// Notify implements ports.Notifier with github.com/rjeczalik/notify, which
// reports real close-write events on Linux.
type Notify struct {
	ignore matcher
	queue  *queue

	mu     sync.Mutex
	subs   map[ports.Handle]*notifySubscription
	closed bool
	wg     sync.WaitGroup
}

// NewNotify creates the notify backend.
func NewNotify(opts Options) *Notify {
	return &Notify{
		ignore: matcher{patterns: opts.IgnorePatterns},
		queue:  newQueue(),
		subs:   make(map[ports.Handle]*notifySubscription),
	}
}

// Subscribe watches path, recursively via the "dir/..." form.
func (n *Notify) Subscribe(path string, mask ports.Op, recursive bool) (ports.Handle, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return "", domain.NewSubscriptionError(path, domain.ErrNotifierClosed)
	}

	target := path
	if recursive {
		target = filepath.Join(path, "...")
	}

	sub := &notifySubscription{
		root:      path,
		mask:      mask,
		recursive: recursive,
		ch:        make(chan notify.EventInfo, subscriptionBuffer),
		done:      make(chan struct{}),
	}
	if err := notify.Watch(target, sub.ch, eventsFor(mask)...); err != nil {
		return "", domain.NewSubscriptionError(path, err)
	}

	h := newHandle()
	n.subs[h] = sub

	n.wg.Add(1)
	go n.forward(h, sub)

	log.Debug().
		Str("path", path).
		Str("handle", string(h)).
		Bool("recursive", recursive).
		Msg("notify subscription added")

	return h, nil
}

// Unsubscribe stops the subscription's watches.
func (n *Notify) Unsubscribe(h ports.Handle) error {
	n.mu.Lock()
	sub, ok := n.subs[h]
	if ok {
		delete(n.subs, h)
	}
	n.mu.Unlock()

	if !ok {
		return domain.ErrUnknownHandle
	}

	notify.Stop(sub.ch)
	close(sub.done)

	log.Debug().Str("path", sub.root).Str("handle", string(h)).Msg("notify subscription removed")
	return nil
}

// Poll returns notifications that arrive within timeout.
func (n *Notify) Poll(ctx context.Context, timeout time.Duration) ([]ports.Notification, error) {
	return n.queue.poll(ctx, timeout)
}

// Drain discards buffered notifications.
func (n *Notify) Drain() int {
	return n.queue.drain()
}

// Close stops every subscription and waits for the forwarders to exit.
func (n *Notify) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	subs := n.subs
	n.subs = make(map[ports.Handle]*notifySubscription)
	n.mu.Unlock()

	for _, sub := range subs {
		notify.Stop(sub.ch)
		close(sub.done)
	}
	n.wg.Wait()
	return nil
}

// forward moves events from the subscription channel to the shared queue,
// tagging them with the subscription handle. Overlapping recursive watches
// each receive the same event; only the most specific subscription keeps it.
func (n *Notify) forward(h ports.Handle, sub *notifySubscription) {
	defer n.wg.Done()
	for {
		select {
		case <-sub.done:
			return
		case ei := <-sub.ch:
			op := opFor(ei.Event())
			if op == 0 || n.ignore.matchUnder(sub.root, ei.Path()) {
				continue
			}
			if owner, ok := n.owner(ei.Path(), op); !ok || owner != h {
				continue
			}
			n.queue.push(ports.Notification{
				Path:   ei.Path(),
				Op:     op,
				Handle: h,
			})
		}
	}
}

// owner returns the live subscription with the longest root covering path.
func (n *Notify) owner(path string, op ports.Op) (ports.Handle, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	var (
		best    ports.Handle
		bestLen = -1
	)
	for h, sub := range n.subs {
		if sub.mask&op == 0 {
			continue
		}
		if covers(sub.root, sub.recursive, path) && len(sub.root) > bestLen {
			best, bestLen = h, len(sub.root)
		}
	}
	return best, bestLen >= 0
}

// eventsFor translates a mask into notify events.
func eventsFor(mask ports.Op) []notify.Event {
	var evs []notify.Event
	if mask.Has(ports.OpCloseWrite) {
		evs = append(evs, closeWriteEvent)
	}
	if mask.Has(ports.OpCreate) {
		evs = append(evs, notify.Create)
	}
	if mask.Has(ports.OpRemove) {
		evs = append(evs, notify.Remove)
	}
	if mask.Has(ports.OpRename) {
		evs = append(evs, notify.Rename)
	}
	return evs
}

// opFor translates a notify event into an Op.
func opFor(e notify.Event) ports.Op {
	switch e {
	case closeWriteEvent:
		return ports.OpCloseWrite
	case notify.Create:
		return ports.OpCreate
	case notify.Remove:
		return ports.OpRemove
	case notify.Rename:
		return ports.OpRename
	default:
		return 0
	}
}

var _ ports.Notifier = (*Notify)(nil)
