package hub

import (
	"github.com/brianly1003/lobo/internal/domain"
	"github.com/brianly1003/lobo/internal/domain/events"
	lsync "github.com/brianly1003/lobo/internal/sync"
)

// ChannelSubscriber is a subscriber that sends events to a channel.
type ChannelSubscriber struct {
	id     string
	send   chan events.Event
	done   chan struct{}
	mu     lsync.Mutex
	closed bool
}

// NewChannelSubscriber creates a new channel-based subscriber.
func NewChannelSubscriber(id string, bufferSize int) *ChannelSubscriber {
	return &ChannelSubscriber{
		id:   id,
		send: make(chan events.Event, bufferSize),
		done: make(chan struct{}),
	}
}

// ID returns the subscriber's unique identifier.
func (s *ChannelSubscriber) ID() string {
	return s.id
}

// Send queues an event. A full buffer means the reader is too slow and
// the subscriber gets dropped by the hub.
func (s *ChannelSubscriber) Send(event events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrSubscriberClosed
	}

	select {
	case s.send <- event:
		return nil
	default:
		return domain.ErrSubscriberClosed
	}
}

// Close closes the subscriber.
func (s *ChannelSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	close(s.send)
	return nil
}

// Done returns a channel that's closed when the subscriber is done.
func (s *ChannelSubscriber) Done() <-chan struct{} {
	return s.done
}

// Events returns the channel to receive events from.
func (s *ChannelSubscriber) Events() <-chan events.Event {
	return s.send
}

// FuncSubscriber hands every event to a callback on the hub goroutine.
type FuncSubscriber struct {
	id     string
	done   chan struct{}
	mu     lsync.Mutex
	closed bool
	fn     func(event events.Event)
}

// NewFuncSubscriber creates a callback subscriber.
func NewFuncSubscriber(id string, fn func(event events.Event)) *FuncSubscriber {
	return &FuncSubscriber{
		id:   id,
		done: make(chan struct{}),
		fn:   fn,
	}
}

// ID returns the subscriber's unique identifier.
func (s *FuncSubscriber) ID() string {
	return s.id
}

// Send invokes the callback.
func (s *FuncSubscriber) Send(event events.Event) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return domain.ErrSubscriberClosed
	}
	if s.fn != nil {
		s.fn(event)
	}
	return nil
}

// Close closes the subscriber.
func (s *FuncSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	return nil
}

// Done returns a channel that's closed when the subscriber is done.
func (s *FuncSubscriber) Done() <-chan struct{} {
	return s.done
}
