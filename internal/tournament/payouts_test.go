package tournament

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSitAndGoPayoutFormats(t *testing.T) {
	tests := []struct {
		format SnGFormat
		want   map[int]int
	}{
		{SnGTopThree, map[int]int{1: 270, 2: 162, 3: 108}},
		{SnGWinnerTakesAll, map[int]int{1: 540}},
		{SnGTopTwo, map[int]int{1: 351, 2: 189}},
		{SnGDoubleOrNothing, map[int]int{1: 180, 2: 180, 3: 180}},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			s := SitAndGoSettings(100, 6, tt.format)
			got := computePayouts(s, 600, 6)
			assert.Equal(t, tt.want, got)

			total := 0
			for _, amount := range got {
				total += amount
			}
			assert.Equal(t, 540, total, "formats pay out the full net pool")
		})
	}
}

func TestMidFieldLadderPaysTopThree(t *testing.T) {
	s := DefaultSettings()
	s.BuyIn = 100

	// 20 entrants put 15% in the money: exactly three paid places.
	got := computePayouts(s, 2000, 20)
	assert.Equal(t, map[int]int{1: 900, 2: 540, 3: 360}, got)
}

func TestDeepLadderBands(t *testing.T) {
	s := DefaultSettings()
	s.BuyIn = 100

	// 60 entrants, 6000 pool, 5400 after rake, nine paid.
	got := computePayouts(s, 6000, 60)
	want := map[int]int{
		1: 1782,
		2: 1080,
		3: 756,
		4: 378, 5: 378, 6: 378,
		7: 216, 8: 216, 9: 216,
	}
	assert.Equal(t, want, got)
}

func TestWidestLadderFundsTailPlaces(t *testing.T) {
	s := DefaultSettings()
	s.BuyIn = 100

	// 100 entrants pay 15 places, the last six splitting the tail band.
	got := computePayouts(s, 10000, 100)
	assert.Equal(t, 2790, got[1])
	assert.Equal(t, 1530, got[2])
	assert.Equal(t, 1080, got[3])
	for pos := 4; pos <= 6; pos++ {
		assert.Equal(t, 540, got[pos])
	}
	for pos := 7; pos <= 9; pos++ {
		assert.Equal(t, 360, got[pos])
	}
	for pos := 10; pos <= 15; pos++ {
		assert.Equal(t, 150, got[pos])
	}
	assert.Len(t, got, 15)
}

func TestLaddersPayExactlyTheNetPool(t *testing.T) {
	s := DefaultSettings()
	s.BuyIn = 97

	// Awkward pools exercise the rounding; first place absorbs all of it.
	for _, entrants := range []int{7, 14, 20, 33, 60, 77, 100, 180} {
		pool := s.BuyIn * entrants
		got := computePayouts(s, pool, entrants)

		total := 0
		for _, amount := range got {
			total += amount
		}
		assert.Equal(t, pool*90/100, total, "%d entrants", entrants)
	}
}

func TestBountyCarveOutHalvesLadder(t *testing.T) {
	s := BountySettings("PKO", 100)

	// 2000 pool, minus 10% rake, minus the 50% bounty share.
	got := computePayouts(s, 2000, 20)
	assert.Equal(t, map[int]int{1: 450, 2: 270, 3: 180}, got)
}

func TestTinyFieldIsWinnerTakesAll(t *testing.T) {
	s := DefaultSettings()
	s.BuyIn = 100

	// Eight entrants round to a single paid place.
	got := computePayouts(s, 800, 8)
	assert.Equal(t, map[int]int{1: 720}, got)
}

func TestNoEntrantsNoPayouts(t *testing.T) {
	s := DefaultSettings()
	assert.Empty(t, computePayouts(s, 0, 0))
}
