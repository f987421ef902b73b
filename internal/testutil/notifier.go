package testutil

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/brianly1003/lobo/internal/domain"
	"github.com/brianly1003/lobo/internal/domain/ports"
)

// Subscription describes one active FakeNotifier subscription.
type Subscription struct {
	Path      string
	Mask      ports.Op
	Recursive bool
}

// FakeNotifier is an in-memory ports.Notifier. Tests inject notifications
// with Emit and inspect subscriptions with Active.
type FakeNotifier struct {
	mu      sync.Mutex
	seq     int
	subs    map[ports.Handle]Subscription
	queue   []ports.Notification
	fail    map[string]error
	signal  chan struct{}
	closed  bool
	removed []ports.Handle
	pollErr error
	polls   int

	// CheckExists makes Subscribe fail for paths missing on disk.
	CheckExists bool
}

// NewFakeNotifier creates an empty fake notifier.
func NewFakeNotifier() *FakeNotifier {
	return &FakeNotifier{
		subs:   make(map[ports.Handle]Subscription),
		fail:   make(map[string]error),
		signal: make(chan struct{}, 1),
	}
}

// FailPath makes every Subscribe for path return err. A nil err clears it.
func (f *FakeNotifier) FailPath(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, path)
		return
	}
	f.fail[path] = err
}

// Subscribe implements ports.Notifier.
func (f *FakeNotifier) Subscribe(path string, mask ports.Op, recursive bool) (ports.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return "", domain.ErrNotifierClosed
	}
	if err, ok := f.fail[path]; ok {
		return "", domain.NewSubscriptionError(path, err)
	}
	if f.CheckExists {
		if _, err := os.Stat(path); err != nil {
			return "", domain.NewSubscriptionError(path, err)
		}
	}

	f.seq++
	h := ports.Handle(fmt.Sprintf("fake-%d", f.seq))
	f.subs[h] = Subscription{Path: path, Mask: mask, Recursive: recursive}
	return h, nil
}

// Unsubscribe implements ports.Notifier.
func (f *FakeNotifier) Unsubscribe(h ports.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.subs[h]; !ok {
		return domain.ErrUnknownHandle
	}
	delete(f.subs, h)
	f.removed = append(f.removed, h)
	return nil
}

// Emit queues a notification as the backend would.
func (f *FakeNotifier) Emit(n ports.Notification) {
	f.mu.Lock()
	f.queue = append(f.queue, n)
	f.mu.Unlock()

	select {
	case f.signal <- struct{}{}:
	default:
	}
}

// EmitFor queues a notification for the subscription whose path is dir.
// It returns false when dir has no active subscription.
func (f *FakeNotifier) EmitFor(dir, file string, op ports.Op) bool {
	h, ok := f.HandleFor(dir)
	if !ok {
		return false
	}
	f.Emit(ports.Notification{Path: file, Op: op, Handle: h})
	return true
}

// SetPollError makes every Poll fail immediately with err. A nil err clears it.
func (f *FakeNotifier) SetPollError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pollErr = err
}

// Polls returns how many times Poll has been called.
func (f *FakeNotifier) Polls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}

// Poll implements ports.Notifier.
func (f *FakeNotifier) Poll(ctx context.Context, timeout time.Duration) ([]ports.Notification, error) {
	f.mu.Lock()
	f.polls++
	err := f.pollErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if batch := f.take(); len(batch) > 0 {
		return batch, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, nil
	case <-f.signal:
		return f.take(), nil
	}
}

func (f *FakeNotifier) take() []ports.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	batch := f.queue
	f.queue = nil
	return batch
}

// Drain implements ports.Notifier.
func (f *FakeNotifier) Drain() int {
	return len(f.take())
}

// Close implements ports.Notifier.
func (f *FakeNotifier) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.subs = make(map[ports.Handle]Subscription)
	return nil
}

// Pending returns how many notifications are queued.
func (f *FakeNotifier) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// Active returns the active subscriptions keyed by handle.
func (f *FakeNotifier) Active() map[ports.Handle]Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[ports.Handle]Subscription, len(f.subs))
	for h, s := range f.subs {
		out[h] = s
	}
	return out
}

// HandleFor returns the active handle subscribed to path.
func (f *FakeNotifier) HandleFor(path string) (ports.Handle, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for h, s := range f.subs {
		if s.Path == path {
			return h, true
		}
	}
	return "", false
}

// Removed returns handles passed to Unsubscribe, in call order.
func (f *FakeNotifier) Removed() []ports.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ports.Handle(nil), f.removed...)
}

var _ ports.Notifier = (*FakeNotifier)(nil)
