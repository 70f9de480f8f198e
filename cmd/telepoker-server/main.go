package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/sync/errgroup"

	"github.com/telepoker/telepoker/internal/config"
	"github.com/telepoker/telepoker/internal/game"
	"github.com/telepoker/telepoker/internal/lobby"
	"github.com/telepoker/telepoker/internal/server"
	"github.com/telepoker/telepoker/internal/store"
	"github.com/telepoker/telepoker/internal/tournament"
)

// version is set by ldflags during build
var version = "dev"

var CLI struct {
	Version  kong.VersionFlag `short:"v" help:"Show version"`
	Config   string           `short:"c" default:"telepoker.hcl" help:"Path to HCL configuration file"`
	Port     int              `short:"p" help:"Listen port (overrides config)"`
	LogLevel string           `short:"l" help:"Log level (overrides config)"`
	Database string           `help:"SQLite database path (overrides config)"`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("telepoker-server"),
		kong.Description("Poker server for the Telegram Mini App"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)
	ctx.FatalIfErrorf(run())
}

func run() error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if CLI.Port != 0 {
		cfg.Server.Port = CLI.Port
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	if CLI.Database != "" {
		cfg.Server.DatabasePath = CLI.Database
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}
	if cfg.Server.TelegramToken == "" {
		logger.Warn("TELEGRAM_TOKEN not set; init data signatures will not be verified")
	}

	st, err := store.Open(cfg.Server.DatabasePath, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	metrics := server.NewMetrics()
	hub := server.NewHub(logger, metrics)
	tables := game.NewManager(cfg.Game.TableConfig(), nil, logger, hub)
	lobbies := lobby.NewRegistry(lobby.Options{Logger: logger})
	tournaments := tournament.NewController(tournament.Options{
		Tables: tables,
		Logger: logger,
		OnPayout: func(userID string, amount int, reason string) {
			if err := st.Credit(userID, amount, reason); err != nil {
				logger.Error("payout credit failed",
					"user", userID, "amount", amount, "reason", reason, "error", err)
			}
		},
	})
	metrics.Track(tables, lobbies, tournaments)

	// Tournaments declared in the config file open for registration at boot.
	for _, preset := range cfg.Tournaments {
		tn := tournaments.Create(preset.Settings())
		logger.Info("tournament open",
			"tournament", tn.ID(), "name", tn.Name(), "mode", tn.Mode())
	}

	srv := server.New(server.Options{
		Config:      cfg,
		Store:       st,
		Lobbies:     lobbies,
		Tables:      tables,
		Tournaments: tournaments,
		Hub:         hub,
		Metrics:     metrics,
		Logger:      logger,
	})

	httpServer := &http.Server{
		Addr:    cfg.Address(),
		Handler: srv.Router(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting telepoker server",
		"addr", cfg.Address(),
		"db", cfg.Server.DatabasePath,
		"production", cfg.Server.Production)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return lobbies.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
