package tournament

import "sort"

// TableSummary is the per-table slice of a tournament snapshot.
type TableSummary struct {
	TableID     string `json:"tableId"`
	PlayerCount int    `json:"playerCount"`
	MaxSeats    int    `json:"maxSeats"`
}

// LeaderboardEntry ranks a remaining player by stack size.
type LeaderboardEntry struct {
	Rank   int    `json:"rank"`
	Player Player `json:"player"`
}

// Snapshot is the wire representation of a tournament. Chip counts are as
// of the last completed hand on each table.
type Snapshot struct {
	TournamentID     string         `json:"tournamentId"`
	Name             string         `json:"name"`
	Mode             Mode           `json:"mode"`
	Status           Status         `json:"status"`
	BuyIn            int            `json:"buyIn"`
	StartingChips    int            `json:"startingChips"`
	MinPlayers       int            `json:"minPlayers"`
	MaxPlayers       int            `json:"maxPlayers"`
	BlindStructure   string         `json:"blindStructure"`
	CurrentLevel     int            `json:"currentLevel"`
	CurrentBlinds    Level          `json:"currentBlinds"`
	TimeToNextLevel  int            `json:"timeToNextLevel"`
	PrizePool        int            `json:"prizePool"`
	RakePercent      int            `json:"rakePercent"`
	BountyPercent    int            `json:"bountyPercent"`
	SnGFormat        SnGFormat      `json:"sngFormat,omitempty"`
	PlayersPerTable  int            `json:"playersPerTable"`
	RegisteredCount  int            `json:"registeredCount"`
	PlayersRemaining int            `json:"playersRemaining"`
	AverageStack     int            `json:"averageStack"`
	TotalChips       int            `json:"totalChips"`
	LateRegLevels    int            `json:"lateRegLevels"`
	CreatedAtMs      int64          `json:"createdAt"`
	StartedAtMs      int64          `json:"startedAt,omitempty"`
	FinishedAtMs     int64          `json:"finishedAt,omitempty"`
	Tables           []TableSummary `json:"tables"`
	Players          []Player       `json:"players"`
	Payouts          map[int]int    `json:"payouts"`
	Positions        map[int]string `json:"positions,omitempty"`
}

// Snapshot returns the current tournament state for the lobby and detail
// views. Players are listed still-in first by stack, then the eliminated
// in finishing order.
func (t *Tournament) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	remaining := t.remainingLocked()
	totalChips := 0
	players := make([]Player, 0, len(t.players))
	for _, p := range t.players {
		players = append(players, *p)
		if !p.Eliminated() {
			totalChips += p.Chips
		}
	}
	sort.Slice(players, func(i, j int) bool {
		a, b := players[i], players[j]
		if a.Eliminated() != b.Eliminated() {
			return !a.Eliminated()
		}
		if a.Eliminated() {
			return a.Position < b.Position
		}
		if a.Chips != b.Chips {
			return a.Chips > b.Chips
		}
		return a.UserID < b.UserID
	})

	tables := make([]TableSummary, 0, len(t.tableIDs))
	for _, tbl := range t.activeTablesLocked() {
		tables = append(tables, TableSummary{
			TableID:     tbl.ID(),
			PlayerCount: tbl.PlayerCount(),
			MaxSeats:    t.settings.PlayersPerTable,
		})
	}

	averageStack := 0
	if remaining > 0 {
		averageStack = totalChips / remaining
	}

	payouts := make(map[int]int, len(t.payouts))
	for pos, amount := range t.payouts {
		payouts[pos] = amount
	}
	positions := make(map[int]string, len(t.positions))
	for pos, uid := range t.positions {
		positions[pos] = uid
	}

	snap := Snapshot{
		TournamentID:     t.id,
		Name:             t.settings.Name,
		Mode:             t.settings.Mode,
		Status:           t.status,
		BuyIn:            t.settings.BuyIn,
		StartingChips:    t.settings.StartingChips,
		MinPlayers:       t.settings.MinPlayers,
		MaxPlayers:       t.settings.MaxPlayers,
		BlindStructure:   t.settings.Structure,
		CurrentLevel:     t.currentLevel,
		CurrentBlinds:    levelAt(t.levels, t.currentLevel),
		TimeToNextLevel:  t.timeToNextLevelLocked(),
		PrizePool:        t.prizePool,
		RakePercent:      t.settings.RakePercent,
		BountyPercent:    t.settings.BountyPercent,
		SnGFormat:        t.settings.SnGFormat,
		PlayersPerTable:  t.settings.PlayersPerTable,
		RegisteredCount:  len(t.players),
		PlayersRemaining: remaining,
		AverageStack:     averageStack,
		TotalChips:       totalChips,
		LateRegLevels:    t.settings.LateRegLevels,
		CreatedAtMs:      t.createdAt.UnixMilli(),
		Tables:           tables,
		Players:          players,
		Payouts:          payouts,
		Positions:        positions,
	}
	if !t.startedAt.IsZero() {
		snap.StartedAtMs = t.startedAt.UnixMilli()
	}
	if !t.finishedAt.IsZero() {
		snap.FinishedAtMs = t.finishedAt.UnixMilli()
	}
	return snap
}

// Leaderboard returns the top remaining players by stack.
func (t *Tournament) Leaderboard(limit int) []LeaderboardEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	var alive []Player
	for _, p := range t.players {
		if !p.Eliminated() {
			alive = append(alive, *p)
		}
	}
	sort.Slice(alive, func(i, j int) bool {
		if alive[i].Chips != alive[j].Chips {
			return alive[i].Chips > alive[j].Chips
		}
		return alive[i].UserID < alive[j].UserID
	})
	if limit > 0 && len(alive) > limit {
		alive = alive[:limit]
	}
	entries := make([]LeaderboardEntry, len(alive))
	for i, p := range alive {
		entries[i] = LeaderboardEntry{Rank: i + 1, Player: p}
	}
	return entries
}
