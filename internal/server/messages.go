package server

import (
	"github.com/telepoker/telepoker/internal/game"
	"github.com/telepoker/telepoker/internal/lobby"
)

// Inbound frame types.
const (
	msgPing   = "ping"
	msgAction = "action"
	msgReady  = "ready"
)

// stateMessage carries a per-viewer table snapshot.
type stateMessage struct {
	Type    string        `json:"type"`
	Payload game.Snapshot `json:"payload"`
}

// welcomeMessage confirms a table subscription.
type welcomeMessage struct {
	Type    string         `json:"type"`
	Payload welcomePayload `json:"payload"`
}

type welcomePayload struct {
	TableID string `json:"tableId"`
}

// typeOnlyMessage is the frame for pong and similar bare signals.
type typeOnlyMessage struct {
	Type string `json:"type"`
}

// errorMessage reports a request the server refused.
type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Lobby room events. These mirror the REST mutations so every open lobby
// screen updates without polling.

type lobbyStateMessage struct {
	Type  string     `json:"type"`
	Lobby lobby.View `json:"lobby"`
}

type playerJoinedMessage struct {
	Type        string           `json:"type"`
	Player      lobby.PlayerView `json:"player"`
	PlayerCount int              `json:"playerCount"`
}

type playerLeftMessage struct {
	Type       string `json:"type"`
	TelegramID string `json:"telegramId"`
}

type playerReadyMessage struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
	Ready  bool   `json:"ready"`
}

type gameStartedMessage struct {
	Type          string     `json:"type"`
	GameSessionID string     `json:"gameSessionId"`
	Lobby         lobby.View `json:"lobby"`
}

type lobbyClosedMessage struct {
	Type      string `json:"type"`
	LobbyCode string `json:"lobbyCode"`
}
