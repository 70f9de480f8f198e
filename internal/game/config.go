package game

import "time"

// Rules selects how a table handles players whose stacks reach zero: cash
// tables offer a re-buy window, tournament tables hand elimination to the
// controller that owns them.
type Rules string

const (
	RulesCash       Rules = "cash"
	RulesTournament Rules = "tournament"
)

// Config carries per-table stakes and timing. Blinds and antes may be
// changed between hands via Table.SetStakes.
type Config struct {
	SmallBlind   int
	BigBlind     int
	Ante         int
	StartBalance int
	MaxPlayers   int

	ActionTimeout  time.Duration
	RoundDelay     time.Duration
	ShowdownDelay  time.Duration
	BustoutTimeout time.Duration

	Rules Rules

	// AutoStart deals the first hand as soon as two players are seated.
	// Tournament controllers disable it and call StartHand themselves.
	AutoStart bool
}

// DefaultConfig returns cash-table settings: 10/20 blinds, 1000 starting
// stacks and a 30 second action clock.
func DefaultConfig() Config {
	return Config{
		SmallBlind:     10,
		BigBlind:       20,
		Ante:           0,
		StartBalance:   1000,
		MaxPlayers:     9,
		ActionTimeout:  30 * time.Second,
		RoundDelay:     1500 * time.Millisecond,
		ShowdownDelay:  5 * time.Second,
		BustoutTimeout: 30 * time.Second,
		Rules:          RulesCash,
		AutoStart:      true,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.SmallBlind <= 0 {
		c.SmallBlind = def.SmallBlind
	}
	if c.BigBlind <= 0 {
		c.BigBlind = def.BigBlind
	}
	if c.StartBalance <= 0 {
		c.StartBalance = def.StartBalance
	}
	if c.MaxPlayers <= 0 {
		c.MaxPlayers = def.MaxPlayers
	}
	if c.ActionTimeout <= 0 {
		c.ActionTimeout = def.ActionTimeout
	}
	if c.RoundDelay <= 0 {
		c.RoundDelay = def.RoundDelay
	}
	if c.ShowdownDelay <= 0 {
		c.ShowdownDelay = def.ShowdownDelay
	}
	if c.BustoutTimeout <= 0 {
		c.BustoutTimeout = def.BustoutTimeout
	}
	if c.Rules == "" {
		c.Rules = def.Rules
	}
	return c
}
