// Package config loads server configuration from an HCL file and applies
// environment overrides. A missing file is not an error: everything has a
// default, and deployments that configure purely through the environment
// never ship a file at all.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/telepoker/telepoker/internal/game"
	"github.com/telepoker/telepoker/internal/tournament"
)

// Config is the resolved runtime configuration.
type Config struct {
	Server      ServerSettings
	Game        GameSettings
	Tournaments []TournamentPreset
}

// ServerSettings covers the HTTP listener, Telegram identity and storage.
type ServerSettings struct {
	Port          int    `hcl:"port,optional"`
	LogLevel      string `hcl:"log_level,optional"`
	TelegramToken string `hcl:"telegram_token,optional"`
	BotUsername   string `hcl:"bot_username,optional"`
	WebAppURL     string `hcl:"webapp_url,optional"`
	DatabasePath  string `hcl:"database_path,optional"`
	Production    bool   `hcl:"production,optional"`
}

// GameSettings are the cash-table defaults. Timing fields use the units
// config files declare them in.
type GameSettings struct {
	SmallBlind        int `hcl:"small_blind,optional"`
	BigBlind          int `hcl:"big_blind,optional"`
	StartBalance      int `hcl:"start_balance,optional"`
	MaxPlayers        int `hcl:"max_players,optional"`
	ActionTimeoutSec  int `hcl:"action_timeout_seconds,optional"`
	RoundDelayMs      int `hcl:"round_delay_ms,optional"`
	ShowdownDelaySec  int `hcl:"showdown_delay_seconds,optional"`
	BustoutTimeoutSec int `hcl:"bustout_timeout_seconds,optional"`
}

// TournamentPreset is a named tournament created at startup. Zero fields
// take the tournament package defaults for the given mode.
type TournamentPreset struct {
	Name            string `hcl:"name,label"`
	Mode            string `hcl:"mode,optional"`
	BuyIn           int    `hcl:"buy_in,optional"`
	StartingChips   int    `hcl:"starting_chips,optional"`
	MinPlayers      int    `hcl:"min_players,optional"`
	MaxPlayers      int    `hcl:"max_players,optional"`
	Structure       string `hcl:"structure,optional"`
	LateRegLevels   int    `hcl:"late_reg_levels,optional"`
	RakePercent     int    `hcl:"rake_percent,optional"`
	BountyPercent   int    `hcl:"bounty_percent,optional"`
	SnGFormat       string `hcl:"sng_format,optional"`
	PlayersPerTable int    `hcl:"players_per_table,optional"`
}

type fileSchema struct {
	Server      *ServerSettings    `hcl:"server,block"`
	Game        *GameSettings      `hcl:"game,block"`
	Tournaments []TournamentPreset `hcl:"tournament,block"`
}

// Default returns the configuration used when no file and no environment
// overrides are present.
func Default() *Config {
	table := game.DefaultConfig()
	return &Config{
		Server: ServerSettings{
			Port:         8000,
			LogLevel:     "info",
			BotUsername:  "Pokergamebot",
			DatabasePath: "telepoker.db",
		},
		Game: GameSettings{
			SmallBlind:        table.SmallBlind,
			BigBlind:          table.BigBlind,
			StartBalance:      table.StartBalance,
			MaxPlayers:        table.MaxPlayers,
			ActionTimeoutSec:  int(table.ActionTimeout / time.Second),
			RoundDelayMs:      int(table.RoundDelay / time.Millisecond),
			ShowdownDelaySec:  int(table.ShowdownDelay / time.Second),
			BustoutTimeoutSec: int(table.BustoutTimeout / time.Second),
		},
	}
}

// Load reads the HCL file at path, fills defaults and applies environment
// overrides. A missing or empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		cfg.applyEnv()
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg.applyEnv()
		return cfg, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse config: %s", diags.Error())
	}
	var schema fileSchema
	if diags := gohcl.DecodeBody(file.Body, nil, &schema); diags.HasErrors() {
		return nil, fmt.Errorf("decode config: %s", diags.Error())
	}

	if schema.Server != nil {
		mergeServer(&cfg.Server, *schema.Server)
	}
	if schema.Game != nil {
		mergeGame(&cfg.Game, *schema.Game)
	}
	cfg.Tournaments = schema.Tournaments
	cfg.applyEnv()
	return cfg, nil
}

func mergeServer(dst *ServerSettings, src ServerSettings) {
	if src.Port != 0 {
		dst.Port = src.Port
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.TelegramToken != "" {
		dst.TelegramToken = src.TelegramToken
	}
	if src.BotUsername != "" {
		dst.BotUsername = src.BotUsername
	}
	if src.WebAppURL != "" {
		dst.WebAppURL = src.WebAppURL
	}
	if src.DatabasePath != "" {
		dst.DatabasePath = src.DatabasePath
	}
	if src.Production {
		dst.Production = true
	}
}

func mergeGame(dst *GameSettings, src GameSettings) {
	if src.SmallBlind != 0 {
		dst.SmallBlind = src.SmallBlind
	}
	if src.BigBlind != 0 {
		dst.BigBlind = src.BigBlind
	}
	if src.StartBalance != 0 {
		dst.StartBalance = src.StartBalance
	}
	if src.MaxPlayers != 0 {
		dst.MaxPlayers = src.MaxPlayers
	}
	if src.ActionTimeoutSec != 0 {
		dst.ActionTimeoutSec = src.ActionTimeoutSec
	}
	if src.RoundDelayMs != 0 {
		dst.RoundDelayMs = src.RoundDelayMs
	}
	if src.ShowdownDelaySec != 0 {
		dst.ShowdownDelaySec = src.ShowdownDelaySec
	}
	if src.BustoutTimeoutSec != 0 {
		dst.BustoutTimeoutSec = src.BustoutTimeoutSec
	}
}

// Environment variables win over both defaults and the file.
func (c *Config) applyEnv() {
	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		c.Server.TelegramToken = v
	}
	if v := os.Getenv("BOT_USERNAME"); v != "" {
		c.Server.BotUsername = v
	}
	if v := os.Getenv("WEBAPP_URL"); v != "" {
		c.Server.WebAppURL = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		c.Server.DatabasePath = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("PRODUCTION"); v != "" {
		if prod, err := strconv.ParseBool(v); err == nil {
			c.Server.Production = prod
		}
	}
}

// Validate rejects values that would misconfigure the server. Zero preset
// fields are fine; they take tournament defaults at creation.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	switch c.Server.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Server.LogLevel)
	}
	if c.Game.SmallBlind <= 0 {
		return fmt.Errorf("small blind must be positive")
	}
	if c.Game.BigBlind <= c.Game.SmallBlind {
		return fmt.Errorf("big blind must be greater than small blind")
	}
	if c.Game.StartBalance < c.Game.BigBlind {
		return fmt.Errorf("start balance %d cannot cover the big blind", c.Game.StartBalance)
	}
	if c.Game.MaxPlayers < 2 || c.Game.MaxPlayers > 9 {
		return fmt.Errorf("max players must be between 2 and 9")
	}

	validModes := map[string]bool{
		string(tournament.ModeMTT):      true,
		string(tournament.ModeBounty):   true,
		string(tournament.ModeSitAndGo): true,
	}
	validFormats := map[string]bool{
		string(tournament.SnGWinnerTakesAll):  true,
		string(tournament.SnGTopThree):        true,
		string(tournament.SnGTopTwo):          true,
		string(tournament.SnGDoubleOrNothing): true,
	}
	for _, p := range c.Tournaments {
		if p.Mode != "" && !validModes[p.Mode] {
			return fmt.Errorf("tournament %s: unknown mode %q", p.Name, p.Mode)
		}
		if p.Structure != "" {
			if _, ok := tournament.StructureByName(p.Structure); !ok {
				return fmt.Errorf("tournament %s: unknown structure %q", p.Name, p.Structure)
			}
		}
		if p.SnGFormat != "" && !validFormats[p.SnGFormat] {
			return fmt.Errorf("tournament %s: unknown sng format %q", p.Name, p.SnGFormat)
		}
		if p.BuyIn < 0 {
			return fmt.Errorf("tournament %s: negative buy-in", p.Name)
		}
		if p.RakePercent < 0 || p.RakePercent >= 100 {
			return fmt.Errorf("tournament %s: rake must be within 0..99", p.Name)
		}
		if p.BountyPercent < 0 || p.BountyPercent >= 100 {
			return fmt.Errorf("tournament %s: bounty share must be within 0..99", p.Name)
		}
		if p.PlayersPerTable != 0 && (p.PlayersPerTable < 2 || p.PlayersPerTable > 9) {
			return fmt.Errorf("tournament %s: players per table must be between 2 and 9", p.Name)
		}
		if p.MinPlayers != 0 && p.MaxPlayers != 0 && p.MinPlayers > p.MaxPlayers {
			return fmt.Errorf("tournament %s: min players exceeds max players", p.Name)
		}
	}
	return nil
}

// Address returns the listen address for the configured port.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// TableConfig converts the cash-game settings into an engine config.
func (g GameSettings) TableConfig() game.Config {
	return game.Config{
		SmallBlind:     g.SmallBlind,
		BigBlind:       g.BigBlind,
		StartBalance:   g.StartBalance,
		MaxPlayers:     g.MaxPlayers,
		ActionTimeout:  time.Duration(g.ActionTimeoutSec) * time.Second,
		RoundDelay:     time.Duration(g.RoundDelayMs) * time.Millisecond,
		ShowdownDelay:  time.Duration(g.ShowdownDelaySec) * time.Second,
		BustoutTimeout: time.Duration(g.BustoutTimeoutSec) * time.Second,
		Rules:          game.RulesCash,
		AutoStart:      true,
	}
}

// Settings converts a preset into tournament settings. Defaulting is left
// to the tournament controller so presets and API requests behave alike.
func (p TournamentPreset) Settings() tournament.Settings {
	return tournament.Settings{
		Name:            p.Name,
		Mode:            tournament.Mode(p.Mode),
		BuyIn:           p.BuyIn,
		StartingChips:   p.StartingChips,
		MinPlayers:      p.MinPlayers,
		MaxPlayers:      p.MaxPlayers,
		Structure:       p.Structure,
		LateRegLevels:   p.LateRegLevels,
		RakePercent:     p.RakePercent,
		BountyPercent:   p.BountyPercent,
		SnGFormat:       tournament.SnGFormat(p.SnGFormat),
		PlayersPerTable: p.PlayersPerTable,
	}
}
