package main

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var errSendQueueFull = errors.New("send queue full")

// Conn manages a single WebSocket client session. Writes go through a
// buffered queue drained by WritePump so the game loop never blocks on a
// slow socket.
type Conn struct {
	id     string
	ip     string
	ws     *websocket.Conn
	send   chan []byte
	mu     sync.Mutex // protects closed and send
	closed bool
}

// NewConn creates a new connection wrapper
func NewConn(ws *websocket.Conn, ip string) *Conn {
	return &Conn{
		id:   uuid.NewString(),
		ip:   ip,
		ws:   ws,
		send: make(chan []byte, SendQueueSize),
	}
}

// ID returns the connection id
func (c *Conn) ID() string {
	return c.id
}

// Send queues an encoded frame. Sending on a closed connection is a no-op.
func (c *Conn) Send(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	select {
	case c.send <- b:
		return nil
	default:
		return errSendQueueFull
	}
}

// Close stops accepting frames. WritePump flushes what is queued, sends a
// close frame and closes the socket.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.send)
	return nil
}

// WritePump drains the send queue and keeps the socket alive with pings.
func (c *Conn) WritePump() {
	ticker := time.NewTicker(PingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(WriteWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("ws write error for %s: %v", c.id, err)
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadLoop handles incoming frames until the client disconnects.
// onEvent is called for every well-formed envelope; malformed frames are
// dropped. onDisconnect is called once when the loop ends.
func (c *Conn) ReadLoop(onEvent func(env Envelope), onDisconnect func()) {
	defer func() {
		onDisconnect()
		c.Close()
	}()

	c.ws.SetReadLimit(MaxMessageBytes)
	_ = c.ws.SetReadDeadline(time.Now().Add(PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(PongWait))
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws read error for %s: %v", c.id, err)
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(PongWait))

		env, err := DecodeEnvelope(raw)
		if err != nil {
			log.Printf("bad message from %s: %v", c.id, err)
			continue
		}
		onEvent(env)
	}
}
