// Package websocket streams hub events to WebSocket clients and hands their
// incoming commands to a handler.
//
// Each Client runs two goroutines:
//   - readPump: WebSocket -> CommandHandler
//   - writePump: Send() -> WebSocket, plus periodic pings
//
// Send and Close are safe to call from any goroutine.
package websocket

import (
	"time"

	lsync "github.com/brianly1003/lobo/internal/sync"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	// writeWait is time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds incoming commands.
	maxMessageSize = 64 * 1024

	// sendBufferSize is the outgoing queue per client.
	sendBufferSize = 256
)

// CommandHandler processes one raw message received from a client.
type CommandHandler func(client *Client, message []byte)

// Client represents a WebSocket client connection.
type Client struct {
	id             string
	conn           *websocket.Conn
	send           chan []byte
	done           chan struct{}
	commandHandler CommandHandler
	onClose        func(id string)

	mu     lsync.Mutex
	closed bool
}

// NewClient creates a new WebSocket client.
func NewClient(conn *websocket.Conn, commandHandler CommandHandler, onClose func(id string)) *Client {
	return &Client{
		id:             uuid.New().String(),
		conn:           conn,
		send:           make(chan []byte, sendBufferSize),
		done:           make(chan struct{}),
		commandHandler: commandHandler,
		onClose:        onClose,
	}
}

// ID returns the client's unique identifier.
func (c *Client) ID() string {
	return c.id
}

// Start starts the client's read and write pumps.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// Send queues a message. It returns false when the client is closed or its
// queue is full.
func (c *Client) Send(message []byte) bool {
	if c.IsClosed() {
		return false
	}

	select {
	case c.send <- message:
		return true
	default:
		log.Warn().Str("client_id", c.id).Msg("client send channel full, dropping message")
		return false
	}
}

// IsClosed reports whether Close was called.
func (c *Client) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close closes the client connection.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	close(c.done)
}

// Done returns a channel that's closed when the client is closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) readPump() {
	defer func() {
		c.Close()
		_ = c.conn.Close()
		if c.onClose != nil {
			c.onClose(c.id)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("client_id", c.id).Msg("websocket read error")
			}
			return
		}

		if c.commandHandler != nil {
			c.commandHandler(c, message)
		}
	}
}

// writePump sends each queued message as its own frame.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return

		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().Err(err).Str("client_id", c.id).Msg("write error")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Str("client_id", c.id).Msg("ping error")
				return
			}
		}
	}
}
