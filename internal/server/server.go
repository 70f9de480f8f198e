// Package server exposes the poker service over HTTP: a small JSON API for
// identity, lobbies and tournaments, plus WebSocket streams for live table
// and lobby state. Game rules live in internal/game; this package only
// translates between the wire and the engine.
package server

import (
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/telepoker/telepoker/internal/config"
	"github.com/telepoker/telepoker/internal/game"
	"github.com/telepoker/telepoker/internal/lobby"
	"github.com/telepoker/telepoker/internal/store"
	"github.com/telepoker/telepoker/internal/tournament"
)

// Options carries the server's collaborators. Everything is required
// except Metrics.
type Options struct {
	Config      *config.Config
	Store       *store.Store
	Lobbies     *lobby.Registry
	Tables      *game.Manager
	Tournaments *tournament.Controller
	Hub         *Hub
	Metrics     *Metrics
	Logger      *log.Logger
}

// Server wires the HTTP surface to the game engine, lobby registry,
// tournament controller and balance store.
type Server struct {
	cfg         *config.Config
	store       *store.Store
	lobbies     *lobby.Registry
	tables      *game.Manager
	tournaments *tournament.Controller
	hub         *Hub
	metrics     *Metrics
	logger      *log.Logger
	upgrader    websocket.Upgrader
}

// New assembles a server from its collaborators.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Server{
		cfg:         opts.Config,
		store:       opts.Store,
		lobbies:     opts.Lobbies,
		tables:      opts.Tables,
		tournaments: opts.Tournaments,
		hub:         opts.Hub,
		metrics:     opts.Metrics,
		logger:      logger.WithPrefix("http"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The web app is served from Telegram's webview; origin
			// enforcement happens at the CORS layer for the JSON API.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Router builds the gin engine with every route attached.
func (s *Server) Router() *gin.Engine {
	if s.cfg.Server.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	corsCfg := cors.DefaultConfig()
	if s.cfg.Server.WebAppURL != "" {
		corsCfg.AllowOrigins = []string{s.cfg.Server.WebAppURL}
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Content-Type", "Authorization"}
	router.Use(cors.New(corsCfg))

	api := router.Group("/api")
	{
		api.POST("/me", s.handleMe)
		api.GET("/top", s.handleTop)

		api.POST("/lobby/create", s.handleCreateLobby)
		api.GET("/lobby/:code", s.handleGetLobby)
		api.POST("/lobby/:code/join", s.handleJoinLobby)
		api.POST("/lobby/:code/leave", s.handleLeaveLobby)
		api.POST("/lobby/:code/start", s.handleStartLobby)
		api.GET("/my-lobbies", s.handleMyLobbies)

		api.POST("/tournaments", s.handleCreateTournament)
		api.GET("/tournaments", s.handleListTournaments)
		api.GET("/tournaments/:id", s.handleGetTournament)
		api.GET("/tournaments/:id/leaderboard", s.handleTournamentLeaderboard)
		api.POST("/tournaments/:id/register", s.handleRegisterTournament)
		api.POST("/tournaments/:id/unregister", s.handleUnregisterTournament)
		api.POST("/tournaments/:id/start", s.handleStartTournament)
	}

	router.GET("/ws/tables/:tableID", s.handleTableSocket)
	router.GET("/ws/lobby/:code", s.handleLobbySocket)

	if s.metrics != nil {
		router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if c.Writer.Status() >= http.StatusInternalServerError {
			s.logger.Error("request failed",
				"method", c.Request.Method,
				"path", c.FullPath(),
				"status", c.Writer.Status())
			return
		}
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status())
	}
}

// fail writes the uniform error body used across the JSON API.
func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

func (s *Server) inviteLink(code string) string {
	return fmt.Sprintf("https://t.me/%s?start=lobby_%s", s.cfg.Server.BotUsername, code)
}

// identify resolves the caller for endpoints that move balances. With a
// bot token configured the signature must verify; without one (local
// development) the unverified user payload is accepted.
func (s *Server) identify(initData string) (Identity, error) {
	if s.cfg.Server.TelegramToken != "" {
		return VerifyInitData(initData, s.cfg.Server.TelegramToken)
	}
	if id, ok := ExtractIdentity(initData); ok {
		return id, nil
	}
	return Identity{}, ErrMissingInitData
}
