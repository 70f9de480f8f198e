package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type meRequest struct {
	InitData string `json:"initData"`
}

// handleMe resolves the caller's identity and returns their account.
// Empty init data is the shared guest account for browser testing; real
// init data must verify against the bot token.
func (s *Server) handleMe(c *gin.Context) {
	var req meRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.InitData == "" {
		user, err := s.store.GetOrCreate("0", "Guest", s.cfg.Game.StartBalance)
		if err != nil {
			fail(c, http.StatusInternalServerError, "account lookup failed")
			return
		}
		c.JSON(http.StatusOK, user)
		return
	}

	if s.cfg.Server.TelegramToken == "" {
		fail(c, http.StatusInternalServerError, "server misconfigured: TELEGRAM_TOKEN not set")
		return
	}
	ident, err := VerifyInitData(req.InitData, s.cfg.Server.TelegramToken)
	if err != nil {
		fail(c, http.StatusUnauthorized, err.Error())
		return
	}

	user, err := s.store.GetOrCreate(ident.UserID, ident.DisplayName(), s.cfg.Game.StartBalance)
	if err != nil {
		fail(c, http.StatusInternalServerError, "account lookup failed")
		return
	}
	// Telegram names change; refresh on every login.
	if err := s.store.SetDisplayName(ident.UserID, ident.DisplayName()); err == nil {
		user.DisplayName = ident.DisplayName()
	}
	c.JSON(http.StatusOK, user)
}

// handleTop returns the ten richest accounts.
func (s *Server) handleTop(c *gin.Context) {
	players, err := s.store.Top(10)
	if err != nil {
		fail(c, http.StatusInternalServerError, "leaderboard unavailable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"players": players})
}
