// Package hub fans lobo events out to every registered subscriber.
package hub

import (
	"github.com/brianly1003/lobo/internal/domain/events"
	"github.com/brianly1003/lobo/internal/domain/ports"
	lsync "github.com/brianly1003/lobo/internal/sync"
	"github.com/rs/zerolog/log"
)

// DefaultBufferSize is the broadcast queue length. Publish never blocks;
// events beyond this backlog are dropped.
const DefaultBufferSize = 256

// Hub is the central event dispatcher that fans out events to all subscribers.
type Hub struct {
	subscribers map[string]ports.Subscriber

	broadcast  chan events.Event
	register   chan ports.Subscriber
	unregister chan string

	// mu protects subscribers and running
	mu lsync.RWMutex

	done    chan struct{}
	stopped chan struct{}
	running bool
}

// New creates a new Hub.
func New() *Hub {
	return &Hub{
		subscribers: make(map[string]ports.Subscriber),
		broadcast:   make(chan events.Event, DefaultBufferSize),
		register:    make(chan ports.Subscriber),
		unregister:  make(chan string),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
	}
}

// Start begins the hub's main loop. A stopped hub cannot be restarted.
func (h *Hub) Start() error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return nil
	}
	select {
	case <-h.done:
		h.mu.Unlock()
		return nil
	default:
	}
	h.running = true
	h.mu.Unlock()

	log.Debug().Msg("event hub started")

	go h.run()
	return nil
}

// Stop delivers queued events, ends the main loop and closes every
// subscriber.
func (h *Hub) Stop() error {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return nil
	}
	h.running = false
	h.mu.Unlock()

	close(h.done)
	<-h.stopped

	h.mu.Lock()
	for _, sub := range h.subscribers {
		_ = sub.Close()
	}
	h.subscribers = make(map[string]ports.Subscriber)
	h.mu.Unlock()

	log.Debug().Msg("event hub stopped")
	return nil
}

func (h *Hub) run() {
	defer close(h.stopped)

	for {
		select {
		case <-h.done:
			h.flush()
			return

		case sub := <-h.register:
			h.mu.Lock()
			h.subscribers[sub.ID()] = sub
			h.mu.Unlock()
			log.Debug().Str("subscriber_id", sub.ID()).Msg("subscriber registered")

		case id := <-h.unregister:
			h.remove(id)

		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

// flush delivers whatever is still queued so a final status reaches
// subscribers before they are closed.
func (h *Hub) flush() {
	for {
		select {
		case event := <-h.broadcast:
			h.deliver(event)
		default:
			return
		}
	}
}

func (h *Hub) deliver(event events.Event) {
	var failed []string

	h.mu.RLock()
	for id, sub := range h.subscribers {
		if err := sub.Send(event); err != nil {
			log.Warn().
				Str("subscriber_id", id).
				Str("event_type", string(event.Type())).
				Err(err).
				Msg("failed to send event to subscriber")
			failed = append(failed, id)
		}
	}
	h.mu.RUnlock()

	for _, id := range failed {
		h.remove(id)
	}
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	sub, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
	}
	h.mu.Unlock()

	if ok {
		_ = sub.Close()
		log.Debug().Str("subscriber_id", id).Msg("subscriber unregistered")
	}
}

// Publish queues an event for all subscribers without blocking.
func (h *Hub) Publish(event events.Event) {
	select {
	case h.broadcast <- event:
		log.Trace().
			Str("event_type", string(event.Type())).
			Msg("event published")
	default:
		log.Warn().
			Str("event_type", string(event.Type())).
			Msg("event dropped: broadcast channel full")
	}
}

// Subscribe adds a new subscriber.
func (h *Hub) Subscribe(sub ports.Subscriber) {
	select {
	case h.register <- sub:
	case <-h.done:
	}
}

// Unsubscribe removes a subscriber by ID.
func (h *Hub) Unsubscribe(id string) {
	select {
	case h.unregister <- id:
	case <-h.done:
	}
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// IsRunning returns true if the hub is running.
func (h *Hub) IsRunning() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}

var _ ports.EventHub = (*Hub)(nil)
