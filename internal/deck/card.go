package deck

import (
	"encoding/json"
	"fmt"
)

// Suit represents a card suit
type Suit int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

// String returns the string representation of a suit
func (s Suit) String() string {
	switch s {
	case Spades:
		return "♠"
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	default:
		return "?"
	}
}

// WireName returns the suit name used on the wire ("spades", "hearts", ...)
func (s Suit) WireName() string {
	switch s {
	case Spades:
		return "spades"
	case Hearts:
		return "hearts"
	case Diamonds:
		return "diamonds"
	case Clubs:
		return "clubs"
	default:
		return "unknown"
	}
}

// IsRed returns true if the suit is red (Hearts or Diamonds)
func (s Suit) IsRed() bool {
	return s == Hearts || s == Diamonds
}

// Rank represents a card rank
type Rank int

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

// String returns the string representation of a rank
func (r Rank) String() string {
	switch r {
	case Ten:
		return "T"
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	case Ace:
		return "A"
	default:
		if r >= Two && r <= Nine {
			return fmt.Sprintf("%d", int(r))
		}
		return "?"
	}
}

// WireName returns the rank as the webapp expects it ("2".."10", "J", "Q", "K", "A")
func (r Rank) WireName() string {
	if r == Ten {
		return "10"
	}
	return r.String()
}

// Card represents a playing card
type Card struct {
	Suit Suit
	Rank Rank
}

// NewCard creates a new card
func NewCard(suit Suit, rank Rank) Card {
	return Card{Suit: suit, Rank: rank}
}

// String returns the string representation of a card (e.g., "A♠")
func (c Card) String() string {
	return fmt.Sprintf("%s%s", c.Rank, c.Suit)
}

// IsRed returns true if the card is red
func (c Card) IsRed() bool {
	return c.Suit.IsRed()
}

// Value returns the numeric value of the card for comparison
// Aces are high (14), but can be used as low (1) in specific contexts
func (c Card) Value() int {
	return int(c.Rank)
}

// IsAce returns true if the card is an Ace
func (c Card) IsAce() bool {
	return c.Rank == Ace
}

// wireCard is the JSON shape shared with the webapp client.
type wireCard struct {
	Rank string `json:"rank"`
	Suit string `json:"suit"`
}

// MarshalJSON renders the card as {"rank":"A","suit":"spades"}
func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireCard{Rank: c.Rank.WireName(), Suit: c.Suit.WireName()})
}

// UnmarshalJSON parses the webapp card shape
func (c *Card) UnmarshalJSON(data []byte) error {
	var w wireCard
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	parsed, err := ParseWire(w.Rank, w.Suit)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseWire converts wire rank/suit names back into a Card
func ParseWire(rank, suit string) (Card, error) {
	var r Rank
	switch rank {
	case "2", "3", "4", "5", "6", "7", "8", "9":
		r = Rank(rank[0] - '0')
	case "10", "T":
		r = Ten
	case "J":
		r = Jack
	case "Q":
		r = Queen
	case "K":
		r = King
	case "A":
		r = Ace
	default:
		return Card{}, fmt.Errorf("unknown rank %q", rank)
	}

	var s Suit
	switch suit {
	case "spades":
		s = Spades
	case "hearts":
		s = Hearts
	case "diamonds":
		s = Diamonds
	case "clubs":
		s = Clubs
	default:
		return Card{}, fmt.Errorf("unknown suit %q", suit)
	}
	return Card{Suit: s, Rank: r}, nil
}

