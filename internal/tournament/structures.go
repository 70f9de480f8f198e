package tournament

import "time"

// Level is one step of a blind structure. Durations are carried in seconds
// because that is how clients display and configs declare them.
type Level struct {
	SmallBlind  int `json:"sb"`
	BigBlind    int `json:"bb"`
	Ante        int `json:"ante"`
	DurationSec int `json:"duration"`
}

// Duration returns the level length as a time.Duration.
func (l Level) Duration() time.Duration {
	return time.Duration(l.DurationSec) * time.Second
}

// Blind structure names accepted by Settings.Structure.
const (
	StructureStandard   = "standard"
	StructureTurbo      = "turbo"
	StructureHyperTurbo = "hyper_turbo"
)

var structures = map[string][]Level{
	StructureStandard: {
		{SmallBlind: 25, BigBlind: 50, Ante: 0, DurationSec: 900},
		{SmallBlind: 50, BigBlind: 100, Ante: 0, DurationSec: 900},
		{SmallBlind: 75, BigBlind: 150, Ante: 0, DurationSec: 900},
		{SmallBlind: 100, BigBlind: 200, Ante: 0, DurationSec: 900},
		{SmallBlind: 150, BigBlind: 300, Ante: 25, DurationSec: 900},
		{SmallBlind: 200, BigBlind: 400, Ante: 50, DurationSec: 900},
		{SmallBlind: 300, BigBlind: 600, Ante: 75, DurationSec: 900},
		{SmallBlind: 400, BigBlind: 800, Ante: 100, DurationSec: 900},
		{SmallBlind: 600, BigBlind: 1200, Ante: 150, DurationSec: 900},
		{SmallBlind: 800, BigBlind: 1600, Ante: 200, DurationSec: 900},
		{SmallBlind: 1000, BigBlind: 2000, Ante: 250, DurationSec: 900},
		{SmallBlind: 1500, BigBlind: 3000, Ante: 400, DurationSec: 900},
		{SmallBlind: 2000, BigBlind: 4000, Ante: 500, DurationSec: 900},
		{SmallBlind: 3000, BigBlind: 6000, Ante: 750, DurationSec: 900},
		{SmallBlind: 4000, BigBlind: 8000, Ante: 1000, DurationSec: 900},
	},
	StructureTurbo: {
		{SmallBlind: 10, BigBlind: 20, Ante: 0, DurationSec: 300},
		{SmallBlind: 15, BigBlind: 30, Ante: 0, DurationSec: 300},
		{SmallBlind: 25, BigBlind: 50, Ante: 0, DurationSec: 300},
		{SmallBlind: 50, BigBlind: 100, Ante: 0, DurationSec: 300},
		{SmallBlind: 75, BigBlind: 150, Ante: 15, DurationSec: 300},
		{SmallBlind: 100, BigBlind: 200, Ante: 20, DurationSec: 300},
		{SmallBlind: 150, BigBlind: 300, Ante: 30, DurationSec: 300},
		{SmallBlind: 200, BigBlind: 400, Ante: 40, DurationSec: 300},
		{SmallBlind: 300, BigBlind: 600, Ante: 60, DurationSec: 300},
		{SmallBlind: 400, BigBlind: 800, Ante: 80, DurationSec: 300},
		{SmallBlind: 600, BigBlind: 1200, Ante: 120, DurationSec: 300},
		{SmallBlind: 800, BigBlind: 1600, Ante: 160, DurationSec: 300},
	},
	StructureHyperTurbo: {
		{SmallBlind: 10, BigBlind: 20, Ante: 0, DurationSec: 180},
		{SmallBlind: 20, BigBlind: 40, Ante: 0, DurationSec: 180},
		{SmallBlind: 30, BigBlind: 60, Ante: 0, DurationSec: 180},
		{SmallBlind: 50, BigBlind: 100, Ante: 10, DurationSec: 180},
		{SmallBlind: 75, BigBlind: 150, Ante: 15, DurationSec: 180},
		{SmallBlind: 100, BigBlind: 200, Ante: 20, DurationSec: 180},
		{SmallBlind: 150, BigBlind: 300, Ante: 30, DurationSec: 180},
		{SmallBlind: 200, BigBlind: 400, Ante: 40, DurationSec: 180},
		{SmallBlind: 300, BigBlind: 600, Ante: 60, DurationSec: 180},
		{SmallBlind: 500, BigBlind: 1000, Ante: 100, DurationSec: 180},
	},
}

// StructureByName returns the named blind structure. The slice is shared;
// callers must not mutate it.
func StructureByName(name string) ([]Level, bool) {
	levels, ok := structures[name]
	return levels, ok
}

// StructureNames lists the available blind structures.
func StructureNames() []string {
	return []string{StructureStandard, StructureTurbo, StructureHyperTurbo}
}

// levelAt clamps an index into the structure: past the last level the
// blinds stay at the final step while the clock keeps running.
func levelAt(levels []Level, index int) Level {
	if index >= len(levels) {
		return levels[len(levels)-1]
	}
	if index < 0 {
		return levels[0]
	}
	return levels[index]
}
