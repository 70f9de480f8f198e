// Package console is the terminal client used while developing the
// server: it joins one table over the WebSocket stream and plays hands
// from a text prompt.
package console

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/telepoker/telepoker/internal/game"
)

// Messages delivered to the UI, one per server frame type.
type (
	// StateMsg is a fresh table snapshot from the viewer's seat.
	StateMsg game.Snapshot
	// WelcomeMsg confirms which table the socket landed on.
	WelcomeMsg struct{ TableID string }
	// ErrorMsg is a server-side rejection.
	ErrorMsg struct{ Message string }
	// HandCompleteMsg announces a finished hand.
	HandCompleteMsg game.HandCompleteMessage
	// ShowdownMsg follows a contested showdown.
	ShowdownMsg game.ShowdownCompleteMessage
	// VisibilityMsg reports a show/muck decision.
	VisibilityMsg game.CardsVisibilityMessage
	// DisconnectedMsg means the socket is gone and the UI should stop.
	DisconnectedMsg struct{ Err error }
)

// Client is the table WebSocket connection. Incoming frames are decoded
// into tea messages and consumed with WaitFrame; outgoing actions go
// through a buffered send channel so the UI never blocks on the network.
type Client struct {
	conn      *websocket.Conn
	frames    chan tea.Msg
	send      chan any
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// Dial connects to the server's table stream. serverURL is the HTTP base
// (http://host:port); the scheme is rewritten for WebSocket.
func Dial(serverURL, tableID, userID, displayName string, logger *log.Logger) (*Client, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = "/ws/tables/" + tableID
	q := u.Query()
	q.Set("user_id", userID)
	q.Set("display_name", displayName)
	u.RawQuery = q.Encode()

	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", u.String(), err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		conn:   conn,
		frames: make(chan tea.Msg, 64),
		send:   make(chan any, 64),
		logger: logger.WithPrefix("ws"),
		ctx:    ctx,
		cancel: cancel,
	}
	go c.readPump()
	go c.writePump()
	return c, nil
}

// WaitFrame blocks until the next server frame arrives. Run it as a tea
// command and re-arm it after every message.
func (c *Client) WaitFrame() tea.Msg {
	msg, ok := <-c.frames
	if !ok {
		return DisconnectedMsg{}
	}
	return msg
}

// Act queues a player action.
func (c *Client) Act(action game.Action) error {
	return c.enqueue(map[string]any{"type": "action", "payload": action})
}

func (c *Client) enqueue(frame any) error {
	select {
	case c.send <- frame:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		return fmt.Errorf("send buffer full")
	}
}

// Close tears the connection down. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		_ = c.conn.Close()
	})
}

func (c *Client) readPump() {
	defer close(c.frames)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Error("read failed", "error", err)
			}
			return
		}
		msg, ok := decodeFrame(data)
		if !ok {
			continue
		}
		select {
		case c.frames <- msg:
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(frame); err != nil {
				c.logger.Error("write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(map[string]string{"type": "ping"}); err != nil {
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// decodeFrame turns a raw server frame into the matching tea message.
func decodeFrame(data []byte) (tea.Msg, bool) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, false
	}
	switch head.Type {
	case "state":
		var f struct {
			Payload game.Snapshot `json:"payload"`
		}
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, false
		}
		return StateMsg(f.Payload), true
	case "welcome":
		var f struct {
			Payload struct {
				TableID string `json:"tableId"`
			} `json:"payload"`
		}
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, false
		}
		return WelcomeMsg{TableID: f.Payload.TableID}, true
	case "error":
		var f struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, false
		}
		return ErrorMsg{Message: f.Message}, true
	case game.MessageTypeHandComplete:
		var m game.HandCompleteMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, false
		}
		return HandCompleteMsg(m), true
	case game.MessageTypeShowdownComplete:
		var m game.ShowdownCompleteMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, false
		}
		return ShowdownMsg(m), true
	case game.MessageTypeCardsVisibility:
		var m game.CardsVisibilityMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, false
		}
		return VisibilityMsg(m), true
	default:
		// pong and anything newer than this client.
		return nil, false
	}
}
