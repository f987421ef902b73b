package status

import (
	"fmt"
	"io"
	"strings"

	"github.com/brianly1003/lobo/internal/domain/events"
	"github.com/brianly1003/lobo/internal/domain/ports"
	"github.com/brianly1003/lobo/internal/hub"
)

// ConsoleSubscriberID identifies the terminal printer on the hub.
const ConsoleSubscriberID = "console"

// ConsoleBuffer is how many status lines may wait for the terminal before
// the hub drops the console.
const ConsoleBuffer = 256

// Console prints status events to w, one line each, prefixed with the event
// time. Lines are written from the console's own goroutine, off the hub's.
type Console struct {
	w    io.Writer
	sub  *hub.ChannelSubscriber
	done chan struct{}
}

// NewConsole creates a console and starts its printer.
func NewConsole(w io.Writer) *Console {
	c := &Console{
		w:    w,
		sub:  hub.NewChannelSubscriber(ConsoleSubscriberID, ConsoleBuffer),
		done: make(chan struct{}),
	}
	go c.run()
	return c
}

// Subscriber returns the hub subscriber feeding the console. Only status
// events pass it.
func (c *Console) Subscriber() ports.Subscriber {
	return hub.NewFilteredSubscriber(c.sub, events.EventTypeStatus)
}

// Close stops accepting events and waits until every queued line is
// printed. It is safe to call after the hub has closed the subscriber.
func (c *Console) Close() error {
	_ = c.sub.Close()
	<-c.done
	return nil
}

func (c *Console) run() {
	defer close(c.done)
	for e := range c.sub.Events() {
		c.print(e)
	}
}

func (c *Console) print(e events.Event) {
	base, ok := e.(*events.BaseEvent)
	if !ok {
		return
	}
	payload, ok := base.Payload.(events.StatusPayload)
	if !ok {
		return
	}
	text := strings.TrimSpace(payload.Text)
	if text == "" {
		return
	}
	fmt.Fprintf(c.w, "%s  %s\n", e.Timestamp().Local().Format("15:04:05"), text)
}
