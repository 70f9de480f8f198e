package game

// Stage identifies the current betting round of a hand. Values match the
// wire format consumed by clients.
type Stage string

const (
	StagePreflop  Stage = "preflop"
	StageFlop     Stage = "flop"
	StageTurn     Stage = "turn"
	StageRiver    Stage = "river"
	StageShowdown Stage = "showdown"
)

var stageOrder = []Stage{StagePreflop, StageFlop, StageTurn, StageRiver, StageShowdown}

// Next returns the stage that follows s. Showdown is terminal.
func (s Stage) Next() Stage {
	for i, stage := range stageOrder {
		if stage == s && i < len(stageOrder)-1 {
			return stageOrder[i+1]
		}
	}
	return StageShowdown
}

func (s Stage) String() string {
	return string(s)
}
