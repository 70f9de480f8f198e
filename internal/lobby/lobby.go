// Package lobby tracks private invite-code games from creation through
// game start. Lobbies are in-memory only: they exist to gather players,
// hand off to a table and disappear.
package lobby

import (
	"sort"
	"time"
)

// Status is the lifecycle state of a lobby. Values match the wire format.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// lifetime is how long a lobby stays joinable before the sweeper reaps it.
const lifetime = 24 * time.Hour

// member is one seated player. All fields are guarded by the registry
// mutex.
type member struct {
	userID    string
	username  string
	firstName string
	seat      int
	joinedAt  time.Time
	ready     bool
}

// lobby is the registry's internal record of one private game.
type lobby struct {
	id         string
	code       string
	hostID     string
	name       string
	maxPlayers int
	buyIn      int
	gameMode   string
	status     Status

	createdAt  time.Time
	expiresAt  time.Time
	startedAt  time.Time
	finishedAt time.Time

	players       map[string]*member
	gameSessionID string
}

func (l *lobby) expired(now time.Time) bool {
	return now.After(l.expiresAt)
}

func (l *lobby) full() bool {
	return len(l.players) >= l.maxPlayers
}

// nextSeat returns the lowest free seat number, or 0 when every seat is
// taken. Seats freed by leavers are reused.
func (l *lobby) nextSeat() int {
	occupied := make(map[int]bool, len(l.players))
	for _, m := range l.players {
		occupied[m.seat] = true
	}
	for seat := 1; seat <= l.maxPlayers; seat++ {
		if !occupied[seat] {
			return seat
		}
	}
	return 0
}

// PlayerView is the wire representation of a seated player.
type PlayerView struct {
	TelegramID string `json:"telegramId"`
	Username   string `json:"username,omitempty"`
	FirstName  string `json:"firstName"`
	SeatNumber int    `json:"seatNumber"`
	JoinedAtMs int64  `json:"joinedAt"`
	IsReady    bool   `json:"isReady"`
}

// View is the wire representation of a lobby. Players are ordered by seat.
type View struct {
	ID             string       `json:"id"`
	LobbyCode      string       `json:"lobbyCode"`
	HostID         string       `json:"hostTelegramId"`
	LobbyName      string       `json:"lobbyName"`
	MaxPlayers     int          `json:"maxPlayers"`
	BuyIn          int          `json:"buyIn"`
	GameMode       string       `json:"gameMode"`
	Status         Status       `json:"status"`
	CreatedAtMs    int64        `json:"createdAt"`
	ExpiresAtMs    int64        `json:"expiresAt"`
	StartedAtMs    int64        `json:"startedAt,omitempty"`
	FinishedAtMs   int64        `json:"finishedAt,omitempty"`
	PlayerCount    int          `json:"playerCount"`
	AvailableSeats int          `json:"availableSeats"`
	GameSessionID  string       `json:"gameSessionId,omitempty"`
	Players        []PlayerView `json:"players"`
}

func (l *lobby) view() View {
	v := View{
		ID:             l.id,
		LobbyCode:      l.code,
		HostID:         l.hostID,
		LobbyName:      l.name,
		MaxPlayers:     l.maxPlayers,
		BuyIn:          l.buyIn,
		GameMode:       l.gameMode,
		Status:         l.status,
		CreatedAtMs:    l.createdAt.UnixMilli(),
		ExpiresAtMs:    l.expiresAt.UnixMilli(),
		PlayerCount:    len(l.players),
		AvailableSeats: l.maxPlayers - len(l.players),
		GameSessionID:  l.gameSessionID,
		Players:        make([]PlayerView, 0, len(l.players)),
	}
	if !l.startedAt.IsZero() {
		v.StartedAtMs = l.startedAt.UnixMilli()
	}
	if !l.finishedAt.IsZero() {
		v.FinishedAtMs = l.finishedAt.UnixMilli()
	}
	for _, m := range l.players {
		v.Players = append(v.Players, PlayerView{
			TelegramID: m.userID,
			Username:   m.username,
			FirstName:  m.firstName,
			SeatNumber: m.seat,
			JoinedAtMs: m.joinedAt.UnixMilli(),
			IsReady:    m.ready,
		})
	}
	sort.Slice(v.Players, func(i, j int) bool {
		return v.Players[i].SeatNumber < v.Players[j].SeatNumber
	})
	return v
}
