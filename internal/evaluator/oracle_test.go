package evaluator

import (
	"fmt"
	"testing"

	"github.com/chehsunliu/poker"
	"github.com/stretchr/testify/require"

	"github.com/telepoker/telepoker/internal/deck"
	"github.com/telepoker/telepoker/internal/randutil"
)

// The chehsunliu evaluator is table driven and battle tested; use it as an
// oracle for both category assignment and pairwise ordering.

func toOracle(cards []deck.Card) []poker.Card {
	out := make([]poker.Card, len(cards))
	for i, c := range cards {
		var suit byte
		switch c.Suit {
		case deck.Spades:
			suit = 's'
		case deck.Hearts:
			suit = 'h'
		case deck.Diamonds:
			suit = 'd'
		case deck.Clubs:
			suit = 'c'
		}
		out[i] = poker.NewCard(fmt.Sprintf("%s%c", c.Rank, suit))
	}
	return out
}

func oracleClass(c Category) int32 {
	switch c {
	case RoyalFlush, StraightFlush:
		return 1
	case FourOfAKind:
		return 2
	case FullHouse:
		return 3
	case Flush:
		return 4
	case Straight:
		return 5
	case ThreeOfAKind:
		return 6
	case TwoPair:
		return 7
	case OnePair:
		return 8
	default:
		return 9
	}
}

func TestEvaluateAgainstOracle(t *testing.T) {
	rng := randutil.New(20240817)

	for i := 0; i < 500; i++ {
		d := deck.NewShuffled(rng)
		a := d.DealN(7)
		b := d.DealN(7)

		va, vb := Evaluate(a), Evaluate(b)
		oa := poker.Evaluate(toOracle(a))
		ob := poker.Evaluate(toOracle(b))

		require.Equal(t, oracleClass(va.Category()), poker.RankClass(oa),
			"category mismatch for %v (got %s, oracle %s)", a, va.Name(), poker.RankString(oa))
		require.Equal(t, oracleClass(vb.Category()), poker.RankClass(ob),
			"category mismatch for %v (got %s, oracle %s)", b, vb.Name(), poker.RankString(ob))

		// Oracle ranks are inverted: lower is better.
		switch va.Compare(vb) {
		case 1:
			require.Less(t, oa, ob, "ordering mismatch: %v vs %v", a, b)
		case -1:
			require.Greater(t, oa, ob, "ordering mismatch: %v vs %v", a, b)
		default:
			require.Equal(t, oa, ob, "chop mismatch: %v vs %v", a, b)
		}
	}
}
