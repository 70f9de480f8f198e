package server

import (
	"encoding/json"
	"errors"
	"fmt"
	rand "math/rand/v2"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/telepoker/telepoker/internal/game"
	"github.com/telepoker/telepoker/internal/lobby"
)

// closeBadRequest is the close code for sockets opened without the
// required query parameters.
const closeBadRequest = 4000

// handleTableSocket seats the player (creating a cash table on demand)
// and streams state until the socket drops. Reconnects land here too: the
// seat survives and the client just gets a fresh welcome and snapshot.
func (s *Server) handleTableSocket(c *gin.Context) {
	tableID := c.Param("tableID")
	userID := c.Query("user_id")
	displayName := c.DefaultQuery("display_name", "Guest")

	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	if userID == "" {
		deadline := time.Now().Add(writeWait)
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(closeBadRequest, "user_id required"), deadline)
		_ = ws.Close()
		return
	}

	table := s.tables.GetOrCreate(tableID)
	if err := table.SeatPlayer(userID, displayName, 0); err != nil {
		_ = ws.WriteJSON(errorMessage{Type: "error", Message: err.Error()})
		_ = ws.Close()
		return
	}

	conn := newConnection(ws, userID, displayName, s.logger)
	conn.onMessage = func(conn *connection, msg envelope) {
		s.handleTableFrame(table, conn, msg)
	}
	conn.onClose = func(conn *connection) {
		s.hub.leaveTable(tableID, conn)
		// Tournament players keep their seat and blind off while away;
		// cash players stand up.
		if table.Rules() != game.RulesTournament {
			table.RemovePlayer(conn.userID)
		}
	}
	s.hub.joinTable(tableID, conn)
	conn.start()

	_ = conn.trySend(welcomeMessage{Type: "welcome", Payload: welcomePayload{TableID: tableID}})
	_ = conn.trySend(stateMessage{Type: "state", Payload: table.Snapshot(userID)})
}

func (s *Server) handleTableFrame(table *game.Table, conn *connection, msg envelope) {
	switch msg.Type {
	case msgPing:
		_ = conn.trySend(typeOnlyMessage{Type: "pong"})
	case msgAction:
		var action game.Action
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &action); err != nil {
				return
			}
		}
		if s.metrics != nil {
			s.metrics.ActionsReceived.WithLabelValues(action.Command).Inc()
		}
		table.HandleAction(conn.userID, action)
	default:
		// Unknown frames are ignored.
	}
}

// handleLobbySocket streams lobby membership changes. The connection may
// identify itself with user_id; anonymous watchers get a throwaway ID so
// ready toggles can still be attributed on the wire.
func (s *Server) handleLobbySocket(c *gin.Context) {
	code := c.Param("code")

	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	view, err := s.lobbies.Get(code)
	if err != nil {
		_ = ws.WriteJSON(errorMessage{Type: "error", Message: "Lobby not found"})
		_ = ws.Close()
		return
	}

	userID := c.Query("user_id")
	if userID == "" {
		userID = fmt.Sprintf("%d", rand.IntN(900000)+100000)
	}

	conn := newConnection(ws, userID, "", s.logger)
	conn.onMessage = func(conn *connection, msg envelope) {
		s.handleLobbyFrame(view.LobbyCode, conn, msg)
	}
	conn.onClose = func(conn *connection) {
		s.hub.leaveLobby(view.LobbyCode, conn)
	}
	s.hub.joinLobby(view.LobbyCode, conn)
	conn.start()

	_ = conn.trySend(lobbyStateMessage{Type: "lobbyState", Lobby: view})
}

func (s *Server) handleLobbyFrame(code string, conn *connection, msg envelope) {
	switch msg.Type {
	case msgPing:
		_ = conn.trySend(typeOnlyMessage{Type: "pong"})
	case msgReady:
		ready := true
		if msg.Ready != nil {
			ready = *msg.Ready
		}
		// Persist when the connection belongs to a seated player;
		// anonymous watchers only produce the broadcast.
		if _, err := s.lobbies.SetReady(code, conn.userID, ready); err != nil && !errors.Is(err, lobby.ErrNotInLobby) {
			s.logger.Debug("ready update rejected", "lobby", code, "user", conn.userID, "error", err)
		}
		s.hub.BroadcastLobby(code, playerReadyMessage{Type: "playerReady", UserID: conn.userID, Ready: ready})
	default:
	}
}
