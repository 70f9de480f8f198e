package game

import "github.com/telepoker/telepoker/internal/deck"

// Player is a seated participant in a table's hand cycle. All fields are
// guarded by the owning table's mutex.
type Player struct {
	UserID      string
	DisplayName string
	Seat        int
	Stack       int

	Cards     []deck.Card
	HasFolded bool
	HasActed  bool

	IsSmallBlind bool
	IsBigBlind   bool
	BlindAmount  int

	IsAllIn        bool
	IsBusted       bool
	BustDeadlineMs int64
}

// CanAct reports whether the player may still take betting actions this
// street: chips behind, not folded and not already all-in.
func (p *Player) CanAct() bool {
	return !p.HasFolded && !p.IsAllIn && p.Stack > 0
}

// InHand reports whether the player still contests the pot: dealt into
// the hand and not folded.
func (p *Player) InHand() bool {
	return !p.HasFolded && len(p.Cards) > 0
}
