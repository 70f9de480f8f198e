package deck

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/telepoker/telepoker/internal/randutil"
)

func TestNewShuffledDealsUniqueCards(t *testing.T) {
	d := NewShuffled(randutil.New(1))
	require.Equal(t, 52, d.CardsRemaining())

	seen := map[Card]bool{}
	for !d.IsEmpty() {
		c, ok := d.Deal()
		require.True(t, ok)
		require.False(t, seen[c], "card %s dealt twice", c)
		seen[c] = true
	}
	require.Len(t, seen, 52)

	_, ok := d.Deal()
	require.False(t, ok)
}

func TestShuffleIsSeedDeterministic(t *testing.T) {
	a := NewShuffled(randutil.New(42))
	b := NewShuffled(randutil.New(42))

	for i := 0; i < 52; i++ {
		ca, _ := a.Deal()
		cb, _ := b.Deal()
		require.Equal(t, ca, cb, "position %d diverged", i)
	}
}

func TestDealN(t *testing.T) {
	d := NewShuffled(randutil.New(7))

	hole := d.DealN(2)
	require.Len(t, hole, 2)
	require.Equal(t, 50, d.CardsRemaining())

	rest := d.DealN(100)
	require.Len(t, rest, 50)
	require.True(t, d.IsEmpty())
}

func TestCryptoShufflesDiffer(t *testing.T) {
	// Two crypto-seeded decks agreeing on all 52 positions would mean the
	// seeding is broken.
	a := NewShuffled(randutil.NewCrypto())
	b := NewShuffled(randutil.NewCrypto())

	same := true
	for i := 0; i < 52; i++ {
		ca, _ := a.Deal()
		cb, _ := b.Deal()
		if ca != cb {
			same = false
			break
		}
	}
	require.False(t, same)
}
