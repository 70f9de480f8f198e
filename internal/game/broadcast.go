package game

import "github.com/telepoker/telepoker/internal/deck"

// Broadcaster delivers table output to connected clients. Implementations
// must not block: both methods are invoked while the table mutex is held,
// so sends have to be fire-and-forget (buffered channels, drop on full).
//
// The build function passed to BroadcastState is only valid for the
// duration of the call.
type Broadcaster interface {
	// BroadcastState pushes a per-viewer state snapshot to every client
	// connected to the table.
	BroadcastState(tableID string, build func(viewerID string) Snapshot)

	// BroadcastMessage pushes the same message to every client connected
	// to the table.
	BroadcastMessage(tableID string, message any)
}

// Message type values for table broadcasts.
const (
	MessageTypeHandComplete     = "handComplete"
	MessageTypeShowdownComplete = "showdownComplete"
	MessageTypeCardsVisibility  = "playerCardsVisibility"
)

// Win type values carried by HandCompleteMessage.
const (
	WinTypeFold     = "fold"
	WinTypeShowdown = "showdown"
)

// HandCompleteMessage announces the end of a hand and who won it.
type HandCompleteMessage struct {
	Type         string   `json:"type"`
	Winners      []string `json:"winners"`
	PotAmount    int      `json:"potAmount"`
	PotPerWinner int      `json:"potPerWinner"`
	WinType      string   `json:"winType"`
}

// ShowdownLoser describes a losing showdown hand. Cards stay hidden until
// the player opts to show them.
type ShowdownLoser struct {
	PlayerID  string      `json:"playerId"`
	Nickname  string      `json:"nickname"`
	Cards     []deck.Card `json:"cards"`
	ShowCards bool        `json:"showCards"`
}

// ShowdownCompleteMessage follows a contested showdown and lists the losers
// so clients can offer a show/muck choice.
type ShowdownCompleteMessage struct {
	Type     string          `json:"type"`
	WinnerID string          `json:"winnerId"`
	Winners  []string        `json:"winners"`
	Losers   []ShowdownLoser `json:"losers"`
}

// CardsVisibilityMessage broadcasts a player's decision to show or muck
// their hole cards after a showdown. Cards is nil on muck.
type CardsVisibilityMessage struct {
	Type     string      `json:"type"`
	PlayerID string      `json:"playerId"`
	Nickname string      `json:"nickname"`
	Show     bool        `json:"show"`
	Cards    []deck.Card `json:"cards"`
}

// HandResult summarizes a finished hand for table owners such as the
// tournament controller. Winners are ordered main pot first, each pot's
// winners clockwise from the button; Busted lists players whose stacks
// reached zero this hand.
type HandResult struct {
	TableID   string
	Winners   []string
	PotAmount int
	WinType   string
	Busted    []string
}

// HandCompleteFunc receives hand results. It is invoked on its own
// goroutine so it may call back into the table.
type HandCompleteFunc func(HandResult)

func (t *Table) broadcastStateLocked() {
	if t.broadcaster == nil {
		return
	}
	t.broadcaster.BroadcastState(t.id, t.snapshotLocked)
}

func (t *Table) broadcastMessageLocked(message any) {
	if t.broadcaster == nil {
		return
	}
	t.broadcaster.BroadcastMessage(t.id, message)
}
