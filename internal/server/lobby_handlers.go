package server

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/telepoker/telepoker/internal/lobby"
)

type createLobbyRequest struct {
	LobbyName  string `json:"lobbyName"`
	BuyIn      int    `json:"buyIn"`
	MaxPlayers int    `json:"maxPlayers"`
	InitData   string `json:"initData"`
}

type lobbyActionRequest struct {
	InitData string `json:"initData"`
}

// lobbyIdentity resolves the caller for lobby endpoints. Lobbies hold no
// balances, so an unverified Telegram payload is accepted and browsers
// without Telegram get a throwaway guest identity.
func lobbyIdentity(initData string) Identity {
	if id, ok := ExtractIdentity(initData); ok {
		return id
	}
	return Identity{
		UserID:    fmt.Sprintf("%d", rand.IntN(900000)+100000),
		Username:  fmt.Sprintf("guest_%d", rand.IntN(9000)+1000),
		FirstName: "Guest",
	}
}

func (s *Server) handleCreateLobby(c *gin.Context) {
	var req createLobbyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	ident := lobbyIdentity(req.InitData)
	view, err := s.lobbies.Create(ident.UserID, ident.Username, ident.FirstName, lobby.CreateParams{
		Name:       req.LobbyName,
		BuyIn:      req.BuyIn,
		MaxPlayers: req.MaxPlayers,
	})
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"lobbyCode":  view.LobbyCode,
		"inviteLink": s.inviteLink(view.LobbyCode),
		"lobby":      view,
	})
}

func (s *Server) handleGetLobby(c *gin.Context) {
	view, err := s.lobbies.Get(c.Param("code"))
	if err != nil {
		s.lobbyError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"lobby":      view,
		"inviteLink": s.inviteLink(view.LobbyCode),
	})
}

func (s *Server) handleJoinLobby(c *gin.Context) {
	var req lobbyActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	code := c.Param("code")
	ident := lobbyIdentity(req.InitData)
	alreadyIn := s.inLobby(code, ident.UserID)

	view, err := s.lobbies.Join(code, ident.UserID, ident.Username, ident.FirstName)
	if errors.Is(err, lobby.ErrAlreadyStarted) {
		fail(c, http.StatusBadRequest, "Game has already started")
		return
	}
	if err != nil {
		s.lobbyError(c, err)
		return
	}

	message := "Joined successfully"
	if alreadyIn {
		message = "Already in lobby"
	}
	if player, ok := findPlayer(view, ident.UserID); ok {
		s.hub.BroadcastLobby(view.LobbyCode, playerJoinedMessage{
			Type:        "playerJoined",
			Player:      player,
			PlayerCount: view.PlayerCount,
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message, "lobby": view})
}

func (s *Server) handleLeaveLobby(c *gin.Context) {
	var req lobbyActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	ident, ok := ExtractIdentity(req.InitData)
	if !ok {
		fail(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	code := c.Param("code")
	closed, err := s.lobbies.Leave(code, ident.UserID)
	if err != nil {
		s.lobbyError(c, err)
		return
	}

	if closed {
		s.hub.BroadcastLobby(code, lobbyClosedMessage{Type: "lobbyClosed", LobbyCode: code})
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Lobby deleted"})
		return
	}
	s.hub.BroadcastLobby(code, playerLeftMessage{Type: "playerLeft", TelegramID: ident.UserID})
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Left lobby"})
}

func (s *Server) handleStartLobby(c *gin.Context) {
	var req lobbyActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	ident, ok := ExtractIdentity(req.InitData)
	if !ok {
		fail(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	view, err := s.lobbies.Start(c.Param("code"), ident.UserID)
	if err != nil {
		s.lobbyError(c, err)
		return
	}

	// The game session is a private cash table sized by the lobby.
	tableCfg := s.cfg.Game.TableConfig()
	tableCfg.StartBalance = view.BuyIn
	tableCfg.MaxPlayers = view.MaxPlayers
	s.tables.Create(view.GameSessionID, tableCfg, nil)

	s.hub.BroadcastLobby(view.LobbyCode, gameStartedMessage{
		Type:          "gameStarted",
		GameSessionID: view.GameSessionID,
		Lobby:         view,
	})
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"message":       "Game started",
		"gameSessionId": view.GameSessionID,
		"lobby":         view,
	})
}

func (s *Server) handleMyLobbies(c *gin.Context) {
	ident, ok := ExtractIdentity(c.Query("initData"))
	if !ok {
		c.JSON(http.StatusOK, gin.H{"success": true, "lobbies": []lobby.View{}})
		return
	}
	views := s.lobbies.ByPlayer(ident.UserID)
	if views == nil {
		views = []lobby.View{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "lobbies": views})
}

/// lobbyError maps registry errors onto the REST taxonomy: unknown codes
// 404, expiry 410, everything else a plain 400.
func (s *Server) lobbyError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, lobby.ErrNotFound):
		fail(c, http.StatusNotFound, "Lobby not found")
	case errors.Is(err, lobby.ErrExpired):
		fail(c, http.StatusGone, "Lobby has expired")
	case errors.Is(err, lobby.ErrNotHost):
		fail(c, http.StatusForbidden, "Only host can start the game")
	case errors.Is(err, lobby.ErrAlreadyStarted):
		fail(c, http.StatusBadRequest, "Game already started")
	case errors.Is(err, lobby.ErrFull):
		fail(c, http.StatusBadRequest, "Lobby is full")
	case errors.Is(err, lobby.ErrNotInLobby):
		fail(c, http.StatusBadRequest, "Not in lobby")
	case errors.Is(err, lobby.ErrTooFewPlayers):
		fail(c, http.StatusBadRequest, "Need at least 2 players")
	default:
		fail(c, http.StatusBadRequest, err.Error())
	}
}

func (s *Server) inLobby(code, userID string) bool {
	view, err := s.lobbies.Get(code)
	if err != nil {
		return false
	}
	_, ok := findPlayer(view, userID)
	return ok
}

func findPlayer(view lobby.View, userID string) (lobby.PlayerView, bool) {
	for _, p := range view.Players {
		if p.TelegramID == userID {
			return p, true
		}
	}
	return lobby.PlayerView{}, false
}
