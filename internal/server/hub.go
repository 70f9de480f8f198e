package server

import (
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/telepoker/telepoker/internal/game"
)

// Hub tracks which connections watch which table or lobby room and fans
// table state out to them. It is the game engine's Broadcaster, so its
// methods must never block: sends go through each connection's buffered
// channel and a slow client is dropped, not waited on.
type Hub struct {
	mu      sync.RWMutex
	tables  map[string]map[*connection]struct{}
	lobbies map[string]map[*connection]struct{}
	logger  *log.Logger
	metrics *Metrics
}

// NewHub creates an empty hub. metrics may be nil.
func NewHub(logger *log.Logger, metrics *Metrics) *Hub {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Hub{
		tables:  make(map[string]map[*connection]struct{}),
		lobbies: make(map[string]map[*connection]struct{}),
		logger:  logger.WithPrefix("hub"),
		metrics: metrics,
	}
}

func (h *Hub) joinTable(tableID string, c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.tables[tableID]
	if !ok {
		room = make(map[*connection]struct{})
		h.tables[tableID] = room
	}
	room[c] = struct{}{}
	if h.metrics != nil {
		h.metrics.ClientsConnected.Inc()
	}
}

func (h *Hub) leaveTable(tableID string, c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.tables[tableID]
	if !ok {
		return
	}
	if _, member := room[c]; !member {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.tables, tableID)
	}
	if h.metrics != nil {
		h.metrics.ClientsConnected.Dec()
	}
}

func (h *Hub) joinLobby(code string, c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.lobbies[code]
	if !ok {
		room = make(map[*connection]struct{})
		h.lobbies[code] = room
	}
	room[c] = struct{}{}
	if h.metrics != nil {
		h.metrics.ClientsConnected.Inc()
	}
}

func (h *Hub) leaveLobby(code string, c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.lobbies[code]
	if !ok {
		return
	}
	if _, member := room[c]; !member {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.lobbies, code)
	}
	if h.metrics != nil {
		h.metrics.ClientsConnected.Dec()
	}
}

// BroadcastState sends each watcher their own view of the table. It is
// called with the table mutex held, so everything here stays non-blocking.
func (h *Hub) BroadcastState(tableID string, build func(viewerID string) game.Snapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.tables[tableID] {
		_ = c.trySend(stateMessage{Type: "state", Payload: build(c.userID)})
	}
}

// BroadcastMessage sends the same frame to every watcher of the table.
func (h *Hub) BroadcastMessage(tableID string, message any) {
	if h.metrics != nil {
		if _, ok := message.(game.HandCompleteMessage); ok {
			h.metrics.HandsCompleted.Inc()
		}
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.tables[tableID] {
		_ = c.trySend(message)
	}
}

// BroadcastLobby sends the same frame to every connection in a lobby room.
func (h *Hub) BroadcastLobby(code string, message any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.lobbies[code] {
		_ = c.trySend(message)
	}
}

// TableWatchers returns how many connections watch the given table.
func (h *Hub) TableWatchers(tableID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.tables[tableID])
}
