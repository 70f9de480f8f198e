package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 8192

	// Outbound buffer per connection. A full buffer drops the connection
	// rather than blocking the broadcasting table.
	sendBuffer = 256
)

// ErrConnectionClosed reports a send on a connection that is going away.
var ErrConnectionClosed = websocket.ErrCloseSent

// envelope is the wire frame in both directions: a type tag plus a
// type-specific payload. Lobby ready frames carry their flag at the top
// level instead of in the payload.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Ready   *bool           `json:"ready,omitempty"`
}

// connection wraps one WebSocket with buffered writes and keepalive. The
// read loop dispatches inbound frames to onMessage; onClose fires exactly
// once when either pump exits.
type connection struct {
	ws          *websocket.Conn
	send        chan any
	userID      string
	displayName string
	logger      *log.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	closeOnce   sync.Once

	onMessage func(*connection, envelope)
	onClose   func(*connection)
}

func newConnection(ws *websocket.Conn, userID, displayName string, logger *log.Logger) *connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &connection{
		ws:          ws,
		send:        make(chan any, sendBuffer),
		userID:      userID,
		displayName: displayName,
		logger:      logger.WithPrefix("conn"),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// start launches the pumps. onMessage and onClose must be set first.
func (c *connection) start() {
	go c.writePump()
	go c.readPump()
}

func (c *connection) close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.ws.Close()
		if c.onClose != nil {
			c.onClose(c)
		}
	})
	return err
}

// trySend queues a message without blocking. A full buffer drops the
// connection; the client reconnects and receives a fresh state snapshot.
// Callers may hold the hub or table mutex, so teardown is only signalled
// here: the pumps run close (and with it onClose) on their own goroutines.
func (c *connection) trySend(msg any) error {
	defer func() {
		if r := recover(); r != nil {
			// Send raced with close; the connection is already gone.
			c.logger.Debug("send on closed connection", "user", c.userID)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("send buffer full, dropping connection", "user", c.userID)
		c.cancel()
		return ErrConnectionClosed
	}
}

func (c *connection) readPump() {
	defer func() { _ = c.close() }()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg envelope
		if err := c.ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket read failed", "user", c.userID, "error", err)
			}
			return
		}
		if c.onMessage != nil {
			c.onMessage(c, msg)
		}
	}
}

func (c *connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteJSON(msg); err != nil {
				c.logger.Debug("websocket write failed", "user", c.userID, "error", err)
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}
