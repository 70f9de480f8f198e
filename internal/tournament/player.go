package tournament

// Player is one tournament entry. Chips mirror the player's live table
// stack and are refreshed after every completed hand; they are not the
// authoritative count while a hand is running. All fields are guarded by
// the owning tournament's mutex.
type Player struct {
	UserID      string `json:"userId"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"displayName"`

	Chips          int    `json:"chips"`
	Bounty         int    `json:"bounty"`
	StartingBounty int    `json:"startingBounty"`
	TotalBountyWon int    `json:"totalBountyWon"`
	TableID        string `json:"tableId,omitempty"`

	Position       int    `json:"position,omitempty"`
	EliminatedAtMs int64  `json:"eliminatedAt,omitempty"`
	EliminatedBy   string `json:"eliminatedBy,omitempty"`
	RegisteredAtMs int64  `json:"registeredAt"`
}

// Eliminated reports whether the player has busted out of the tournament.
func (p *Player) Eliminated() bool {
	return p.EliminatedAtMs != 0
}
