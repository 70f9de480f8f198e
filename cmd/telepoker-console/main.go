package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/telepoker/telepoker/internal/console"
)

// version is set by ldflags during build.
var version = "dev"

var CLI struct {
	Version  kong.VersionFlag `help:"Print version and exit."`
	Server   string           `short:"s" default:"http://localhost:8000" help:"Server base URL."`
	Table    string           `short:"t" required:"" help:"Table id to join."`
	User     string           `short:"u" required:"" help:"User id to play as."`
	Name     string           `short:"n" help:"Display name (defaults to the user id)."`
	LogFile  string           `default:"telepoker-console.log" help:"Log file path (the TUI owns stdout)."`
	LogLevel string           `short:"l" default:"info" enum:"debug,info,warn,error" help:"Log level."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("telepoker-console"),
		kong.Description("Terminal client for a telepoker table."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)
	ctx.FatalIfErrorf(run())
}

func run() error {
	if CLI.Name == "" {
		CLI.Name = CLI.User
	}

	logFile, err := os.OpenFile(CLI.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = logFile.Close() }()

	logger := log.New(logFile)
	switch CLI.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	logger.Info("connecting", "server", CLI.Server, "table", CLI.Table, "user", CLI.User)

	client, err := console.Dial(CLI.Server, CLI.Table, CLI.User, CLI.Name, logger)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", CLI.Server, err)
	}
	defer client.Close()

	model := console.NewModel(client, CLI.User, logger)
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}
