package tournament

import "fmt"

// Mode selects the tournament variant. Values match the wire format.
type Mode string

const (
	// ModeMTT is a scheduled multi-table tournament.
	ModeMTT Mode = "tournament"
	// ModeBounty is a progressive knockout: part of the buy-in sits on each
	// player's head and is claimed by whoever eliminates them.
	ModeBounty Mode = "bounty"
	// ModeSitAndGo starts automatically the moment the table fills.
	ModeSitAndGo Mode = "sitgo"
)

// Status is the lifecycle state of a tournament. Values match the wire
// format.
type Status string

const (
	StatusRegistering Status = "registering"
	StatusLateReg     Status = "late_reg"
	StatusRunning     Status = "running"
	StatusFinalTable  Status = "final_table"
	StatusFinished    Status = "finished"
	StatusCancelled   Status = "cancelled"
)

// Open reports whether new registrations are accepted in this status.
func (s Status) Open() bool {
	return s == StatusRegistering || s == StatusLateReg
}

// Live reports whether hands are being dealt in this status.
func (s Status) Live() bool {
	return s == StatusLateReg || s == StatusRunning || s == StatusFinalTable
}

// SnGFormat selects the payout shape of a sit-and-go.
type SnGFormat string

const (
	SnGWinnerTakesAll  SnGFormat = "winner_takes_all"
	SnGTopThree        SnGFormat = "top_3"
	SnGTopTwo          SnGFormat = "top_2"
	SnGDoubleOrNothing SnGFormat = "double_or_nothing"
)

// Settings describes a tournament before it exists. Zero fields take the
// defaults applied by withDefaults; see DefaultSettings for the MTT
// baseline.
type Settings struct {
	Name            string
	Mode            Mode
	BuyIn           int
	StartingChips   int
	MinPlayers      int
	MaxPlayers      int
	Structure       string
	LateRegLevels   int
	RakePercent     int
	BountyPercent   int
	SnGFormat       SnGFormat
	PlayersPerTable int
}

// DefaultSettings returns the standard multi-table baseline: 10k chips,
// 18-180 players on 9-max tables, the standard structure with three levels
// of late registration and a 10% rake.
func DefaultSettings() Settings {
	return Settings{
		Mode:            ModeMTT,
		StartingChips:   10000,
		MinPlayers:      18,
		MaxPlayers:      180,
		Structure:       StructureStandard,
		LateRegLevels:   3,
		RakePercent:     10,
		PlayersPerTable: 9,
	}
}

// SitAndGoSettings returns a single-table sit-and-go: it fills to exactly
// playersPerTable, starts itself, and plays a turbo structure with 1500
// chips and no late registration.
func SitAndGoSettings(buyIn, playersPerTable int, format SnGFormat) Settings {
	if playersPerTable <= 0 {
		playersPerTable = 6
	}
	if format == "" {
		format = SnGTopThree
	}
	return Settings{
		Name:            fmt.Sprintf("Sit & Go $%d (%d-max)", buyIn, playersPerTable),
		Mode:            ModeSitAndGo,
		BuyIn:           buyIn,
		StartingChips:   1500,
		MinPlayers:      playersPerTable,
		MaxPlayers:      playersPerTable,
		Structure:       StructureTurbo,
		LateRegLevels:   0,
		RakePercent:     10,
		SnGFormat:       format,
		PlayersPerTable: playersPerTable,
	}
}

// BountySettings returns a progressive knockout: half of each buy-in goes
// on the player's head, with four levels of late registration.
func BountySettings(name string, buyIn int) Settings {
	s := DefaultSettings()
	s.Name = name
	s.Mode = ModeBounty
	s.BuyIn = buyIn
	s.LateRegLevels = 4
	s.BountyPercent = 50
	return s
}

func (s Settings) withDefaults() Settings {
	def := DefaultSettings()
	if s.Mode == "" {
		s.Mode = def.Mode
	}
	if s.StartingChips <= 0 {
		if s.Mode == ModeSitAndGo {
			s.StartingChips = 1500
		} else {
			s.StartingChips = def.StartingChips
		}
	}
	if s.PlayersPerTable <= 0 {
		s.PlayersPerTable = def.PlayersPerTable
	}
	if s.Mode == ModeSitAndGo {
		// A sit-and-go is its table: it fills to capacity and launches.
		s.MinPlayers = s.PlayersPerTable
		s.MaxPlayers = s.PlayersPerTable
		s.LateRegLevels = 0
		if s.Structure == "" {
			s.Structure = StructureTurbo
		}
		if s.SnGFormat == "" {
			s.SnGFormat = SnGTopThree
		}
	} else {
		if s.MinPlayers <= 0 {
			s.MinPlayers = def.MinPlayers
		}
		if s.MaxPlayers <= 0 {
			s.MaxPlayers = def.MaxPlayers
		}
		if s.Structure == "" {
			s.Structure = def.Structure
		}
		s.SnGFormat = ""
	}
	if s.RakePercent < 0 || s.RakePercent >= 100 {
		s.RakePercent = def.RakePercent
	}
	if s.Mode == ModeBounty {
		if s.BountyPercent <= 0 || s.BountyPercent >= 100 {
			s.BountyPercent = 50
		}
	} else {
		s.BountyPercent = 0
	}
	if s.LateRegLevels < 0 {
		s.LateRegLevels = 0
	}
	if s.Name == "" {
		s.Name = fmt.Sprintf("Tournament $%d", s.BuyIn)
	}
	if _, ok := StructureByName(s.Structure); !ok {
		s.Structure = def.Structure
	}
	return s
}
