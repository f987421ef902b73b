package hub

import (
	"github.com/brianly1003/lobo/internal/domain/events"
	"github.com/brianly1003/lobo/internal/domain/ports"
)

// FilteredSubscriber wraps a subscriber and forwards only selected event
// types. With an empty selection every event is forwarded. The selection is
// fixed at construction.
type FilteredSubscriber struct {
	inner ports.Subscriber
	types map[events.EventType]bool
}

// NewFilteredSubscriber wraps inner, forwarding only the given types.
func NewFilteredSubscriber(inner ports.Subscriber, types ...events.EventType) *FilteredSubscriber {
	f := &FilteredSubscriber{
		inner: inner,
		types: make(map[events.EventType]bool),
	}
	for _, t := range types {
		f.types[t] = true
	}
	return f
}

// ID returns the subscriber's unique identifier.
func (f *FilteredSubscriber) ID() string {
	return f.inner.ID()
}

// Send forwards event when its type passes the filter.
func (f *FilteredSubscriber) Send(event events.Event) error {
	if !f.shouldForward(event) {
		return nil
	}
	return f.inner.Send(event)
}

// Close closes the subscriber.
func (f *FilteredSubscriber) Close() error {
	return f.inner.Close()
}

// Done returns a channel that's closed when the subscriber is done.
func (f *FilteredSubscriber) Done() <-chan struct{} {
	return f.inner.Done()
}

func (f *FilteredSubscriber) shouldForward(event events.Event) bool {
	if len(f.types) == 0 {
		return true
	}
	return f.types[event.Type()]
}
