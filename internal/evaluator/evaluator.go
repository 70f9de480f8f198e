package evaluator

// 7-card hand evaluator built on rank histograms and suit bitmasks.
// Values pack the category and up to five tiebreak ranks into a single
// uint32 so hands compare as plain integers (higher is better).

import (
	"math/bits"

	"github.com/telepoker/telepoker/internal/deck"
)

// Category is the class of a poker hand, ascending strength
type Category int

const (
	HighCard Category = iota
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

// String returns the display name of the category
func (c Category) String() string {
	switch c {
	case HighCard:
		return "High Card"
	case OnePair:
		return "One Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	case RoyalFlush:
		return "Royal Flush"
	default:
		return "Unknown"
	}
}

// Value is a comparable hand strength: category in the high bits, then five
// 4-bit tiebreak ranks in descending significance. For two values a and b,
// a > b iff hand a beats hand b; equal values split the pot.
type Value uint32

// Category extracts the hand class
func (v Value) Category() Category {
	return Category(v >> 20)
}

// Name returns the display name of the hand class
func (v Value) Name() string {
	return v.Category().String()
}

// Tiebreaks unpacks the significant tiebreak ranks (2..14), most significant
// first. Unused slots are omitted.
func (v Value) Tiebreaks() []int {
	out := make([]int, 0, 5)
	for shift := 16; shift >= 0; shift -= 4 {
		r := int(v>>uint(shift)) & 0xF
		if r != 0 {
			out = append(out, r)
		}
	}
	return out
}

// Compare returns 1 if v beats other, -1 if other beats v, 0 on a chop
func (v Value) Compare(other Value) int {
	switch {
	case v > other:
		return 1
	case v < other:
		return -1
	default:
		return 0
	}
}

func pack(c Category, ranks ...int) Value {
	v := Value(c) << 20
	shift := 16
	for _, r := range ranks {
		if shift < 0 {
			break
		}
		v |= Value(r&0xF) << uint(shift)
		shift -= 4
	}
	return v
}

// Evaluate returns the strength of the best five-card hand available in
// cards. Accepts 5, 6 or 7 cards (hole + community at any street).
func Evaluate(cards []deck.Card) Value {
	var suitMasks [4]uint16 // bit (rank-2) set per suit
	var counts [15]int      // counts[rank], rank 2..14

	for _, c := range cards {
		suitMasks[c.Suit] |= 1 << uint(c.Rank-2)
		counts[c.Rank]++
	}
	rankMask := suitMasks[0] | suitMasks[1] | suitMasks[2] | suitMasks[3]

	// Flush suit, if any (at most one with 7 cards)
	flushMask := uint16(0)
	for _, m := range suitMasks {
		if bits.OnesCount16(m) >= 5 {
			flushMask = m
			break
		}
	}

	if flushMask != 0 {
		if high := straightHigh(flushMask); high > 0 {
			if high == 14 {
				return pack(RoyalFlush, 14)
			}
			return pack(StraightFlush, high)
		}
	}

	// Rank multiplicities, useful for everything below the straight flush
	var quads, trips, pairs []int // each sorted descending by construction
	for r := 14; r >= 2; r-- {
		switch counts[r] {
		case 4:
			quads = append(quads, r)
		case 3:
			trips = append(trips, r)
		case 2:
			pairs = append(pairs, r)
		}
	}

	if len(quads) > 0 {
		quad := quads[0]
		kicker := 0
		for r := 14; r >= 2; r-- {
			if r != quad && counts[r] > 0 {
				kicker = r
				break
			}
		}
		return pack(FourOfAKind, quad, kicker)
	}

	if len(trips) > 0 && (len(pairs) > 0 || len(trips) > 1) {
		tripRank := trips[0]
		pairRank := 0
		if len(trips) > 1 {
			pairRank = trips[1]
		}
		if len(pairs) > 0 && pairs[0] > pairRank {
			pairRank = pairs[0]
		}
		return pack(FullHouse, tripRank, pairRank)
	}

	if flushMask != 0 {
		return pack(Flush, topRanks(flushMask, 5)...)
	}

	if high := straightHigh(rankMask); high > 0 {
		return pack(Straight, high)
	}

	if len(trips) > 0 {
		kickers := kickersExcluding(counts, 2, trips[0])
		return pack(ThreeOfAKind, trips[0], kickers[0], kickers[1])
	}

	if len(pairs) >= 2 {
		high, low := pairs[0], pairs[1]
		kicker := 0
		for r := 14; r >= 2; r-- {
			if r != high && r != low && counts[r] > 0 {
				kicker = r
				break
			}
		}
		return pack(TwoPair, high, low, kicker)
	}

	if len(pairs) == 1 {
		kickers := kickersExcluding(counts, 3, pairs[0])
		return pack(OnePair, pairs[0], kickers[0], kickers[1], kickers[2])
	}

	return pack(HighCard, topRanks(rankMask, 5)...)
}

// straightHigh returns the high rank of the best straight in the rank mask,
// or 0 when there is none. The wheel (A-2-3-4-5) counts as a 5-high straight.
func straightHigh(mask uint16) int {
	for high := 14; high >= 6; high-- {
		run := uint16(0x1F) << uint(high-6) // five consecutive bits ending at high
		if mask&run == run {
			return high
		}
	}
	// A,2,3,4,5: ace bit is 12, deuce..five are bits 0..3
	const wheel = 1<<12 | 0xF
	if mask&wheel == wheel {
		return 5
	}
	return 0
}

// topRanks returns the n highest set ranks in the mask, descending
func topRanks(mask uint16, n int) []int {
	out := make([]int, 0, n)
	for r := 14; r >= 2 && len(out) < n; r-- {
		if mask&(1<<uint(r-2)) != 0 {
			out = append(out, r)
		}
	}
	return out
}

// kickersExcluding returns the n highest ranks present in counts, skipping
// the excluded rank. Missing slots are zero filled.
func kickersExcluding(counts [15]int, n, exclude int) []int {
	out := make([]int, 0, n)
	for r := 14; r >= 2 && len(out) < n; r-- {
		if r != exclude && counts[r] > 0 {
			out = append(out, r)
		}
	}
	for len(out) < n {
		out = append(out, 0)
	}
	return out
}
