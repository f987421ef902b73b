package websocket

import (
	"github.com/brianly1003/lobo/internal/domain"
	"github.com/brianly1003/lobo/internal/domain/events"
)

// ClientSubscriber wraps a WebSocket client as an EventHub subscriber.
type ClientSubscriber struct {
	client *Client
}

// NewClientSubscriber creates a subscriber from a WebSocket client.
func NewClientSubscriber(client *Client) *ClientSubscriber {
	return &ClientSubscriber{client: client}
}

// ID returns the subscriber's unique identifier.
func (s *ClientSubscriber) ID() string {
	return s.client.ID()
}

// Send encodes the event and queues it on the client.
func (s *ClientSubscriber) Send(event events.Event) error {
	if s.client.IsClosed() {
		return domain.ErrSubscriberClosed
	}

	data, err := event.ToJSON()
	if err != nil {
		return err
	}

	if !s.client.Send(data) && s.client.IsClosed() {
		return domain.ErrSubscriberClosed
	}
	return nil
}

// Close closes the subscriber.
func (s *ClientSubscriber) Close() error {
	s.client.Close()
	return nil
}

// Done returns a channel that's closed when the subscriber is done.
func (s *ClientSubscriber) Done() <-chan struct{} {
	return s.client.Done()
}
