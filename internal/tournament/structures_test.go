package tournament

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuresBlindProgressions(t *testing.T) {
	standard, ok := StructureByName(StructureStandard)
	require.True(t, ok)
	assert.Len(t, standard, 15)
	assert.Equal(t, Level{SmallBlind: 25, BigBlind: 50, Ante: 0, DurationSec: 900}, standard[0])
	assert.Equal(t, Level{SmallBlind: 4000, BigBlind: 8000, Ante: 1000, DurationSec: 900}, standard[14])

	turbo, ok := StructureByName(StructureTurbo)
	require.True(t, ok)
	assert.Len(t, turbo, 12)
	assert.Equal(t, 5*time.Minute, turbo[0].Duration())

	hyper, ok := StructureByName(StructureHyperTurbo)
	require.True(t, ok)
	assert.Len(t, hyper, 10)
	assert.Equal(t, 3*time.Minute, hyper[0].Duration())

	for _, name := range StructureNames() {
		levels, ok := StructureByName(name)
		require.True(t, ok, name)
		for i := 1; i < len(levels); i++ {
			assert.Greater(t, levels[i].BigBlind, levels[i-1].BigBlind,
				"%s level %d must raise the big blind", name, i)
			assert.GreaterOrEqual(t, levels[i].Ante, levels[i-1].Ante,
				"%s level %d must not lower the ante", name, i)
		}
	}

	_, ok = StructureByName("nope")
	assert.False(t, ok)
}

func TestLevelAtClampsToFinalLevel(t *testing.T) {
	levels, _ := StructureByName(StructureHyperTurbo)
	assert.Equal(t, levels[0], levelAt(levels, -1))
	assert.Equal(t, levels[3], levelAt(levels, 3))
	assert.Equal(t, levels[9], levelAt(levels, 9))
	assert.Equal(t, levels[9], levelAt(levels, 42))
}
