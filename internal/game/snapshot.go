package game

import "github.com/telepoker/telepoker/internal/deck"

// PlayerView is the wire form of a seated player. Hole cards are included
// only for the viewing player or once the hand reaches showdown; everyone
// else sees just the card count.
type PlayerView struct {
	UserID         string      `json:"userId"`
	DisplayName    string      `json:"displayName"`
	Seat           int         `json:"seat"`
	Stack          int         `json:"stack"`
	HasFolded      bool        `json:"hasFolded"`
	Cards          []deck.Card `json:"cards"`
	CardCount      int         `json:"cardCount"`
	HasActed       bool        `json:"hasActed"`
	IsSmallBlind   bool        `json:"isSmallBlind"`
	IsBigBlind     bool        `json:"isBigBlind"`
	BlindAmount    int         `json:"blindAmount"`
	IsBusted       bool        `json:"isBusted"`
	BustDeadlineMs int64       `json:"bustDeadlineMs,omitempty"`
}

// Snapshot is a complete view of table state for one viewer. Pot is the
// display pot: central pot plus the bets still in front of players.
type Snapshot struct {
	TableID           string         `json:"tableId"`
	Players           []PlayerView   `json:"players"`
	CommunityCards    []deck.Card    `json:"communityCards"`
	Pot               int            `json:"pot"`
	Stage             Stage          `json:"stage"`
	ButtonUserID      string         `json:"buttonUserId"`
	ActiveUserID      string         `json:"activeUserId"`
	Events            []Event        `json:"events"`
	CurrentBet        int            `json:"currentBet"`
	PlayerBets        map[string]int `json:"playerBets"`
	TurnDeadlineMs    int64          `json:"turnDeadlineMs"`
	ActionTimeoutMs   int64          `json:"actionTimeoutMs"`
	SmallBlind        int            `json:"smallBlind"`
	BigBlind          int            `json:"bigBlind"`
	Ante              int            `json:"ante,omitempty"`
	SidePotSummary    []SidePotView  `json:"sidePotSummary"`
	MinRaiseIncrement int            `json:"minRaiseIncrement"`
	MinRaiseTotal     int            `json:"minRaiseTotal"`
}

// Snapshot builds the state view for one viewer.
func (t *Table) Snapshot(viewerID string) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked(viewerID)
}

// snapshotLocked deep-copies all mutable state so the returned snapshot
// can be marshalled after the table mutex is released.
func (t *Table) snapshotLocked(viewerID string) Snapshot {
	ordered := t.orderedPlayersLocked()
	players := make([]PlayerView, 0, len(ordered))
	for _, p := range ordered {
		players = append(players, t.playerViewLocked(p, viewerID))
	}

	community := make([]deck.Card, len(t.communityCards))
	copy(community, t.communityCards)

	displayPot := t.pot
	bets := make(map[string]int, len(t.playerBets))
	for uid, amount := range t.playerBets {
		bets[uid] = amount
		displayPot += amount
	}

	eventCount := min(snapshotEvents, len(t.eventLog))
	events := make([]Event, eventCount)
	copy(events, t.eventLog[len(t.eventLog)-eventCount:])

	sidePots := make([]SidePotView, 0, len(t.sidePotSummary))
	for _, pot := range t.sidePotSummary {
		view := SidePotView{Amount: pot.Amount, Eligible: make([]string, len(pot.Eligible))}
		copy(view.Eligible, pot.Eligible)
		sidePots = append(sidePots, view)
	}

	return Snapshot{
		TableID:           t.id,
		Players:           players,
		CommunityCards:    community,
		Pot:               displayPot,
		Stage:             t.stage,
		ButtonUserID:      t.buttonUserID,
		ActiveUserID:      t.activeUserID,
		Events:            events,
		CurrentBet:        t.currentBet,
		PlayerBets:        bets,
		TurnDeadlineMs:    t.turnDeadlineMs,
		ActionTimeoutMs:   t.cfg.ActionTimeout.Milliseconds(),
		SmallBlind:        t.cfg.SmallBlind,
		BigBlind:          t.cfg.BigBlind,
		Ante:              t.cfg.Ante,
		SidePotSummary:    sidePots,
		MinRaiseIncrement: t.minRaiseIncrementLocked(),
		MinRaiseTotal:     t.minRaiseTotalLocked(),
	}
}

func (t *Table) playerViewLocked(p *Player, viewerID string) PlayerView {
	canSee := viewerID == p.UserID || t.stage == StageShowdown
	// Hidden hands serialize as null; cardCount still reports how many
	// cards the player holds.
	var cards []deck.Card
	if canSee && len(p.Cards) > 0 {
		cards = make([]deck.Card, len(p.Cards))
		copy(cards, p.Cards)
	}
	return PlayerView{
		UserID:         p.UserID,
		DisplayName:    p.DisplayName,
		Seat:           p.Seat,
		Stack:          p.Stack,
		HasFolded:      p.HasFolded,
		Cards:          cards,
		CardCount:      len(p.Cards),
		HasActed:       p.HasActed,
		IsSmallBlind:   p.IsSmallBlind,
		IsBigBlind:     p.IsBigBlind,
		BlindAmount:    p.BlindAmount,
		IsBusted:       p.IsBusted,
		BustDeadlineMs: p.BustDeadlineMs,
	}
}
