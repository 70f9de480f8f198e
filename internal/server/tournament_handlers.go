package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/telepoker/telepoker/internal/store"
	"github.com/telepoker/telepoker/internal/tournament"
)

type createTournamentRequest struct {
	Name            string `json:"name"`
	Mode            string `json:"mode"`
	BuyIn           int    `json:"buyIn"`
	StartingChips   int    `json:"startingChips"`
	MinPlayers      int    `json:"minPlayers"`
	MaxPlayers      int    `json:"maxPlayers"`
	Structure       string `json:"structure"`
	LateRegLevels   int    `json:"lateRegLevels"`
	RakePercent     int    `json:"rakePercent"`
	BountyPercent   int    `json:"bountyPercent"`
	SnGFormat       string `json:"sngFormat"`
	PlayersPerTable int    `json:"playersPerTable"`
}

func (s *Server) handleCreateTournament(c *gin.Context) {
	var req createTournamentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	switch tournament.Mode(req.Mode) {
	case "", tournament.ModeMTT, tournament.ModeBounty, tournament.ModeSitAndGo:
	default:
		fail(c, http.StatusBadRequest, "unknown mode")
		return
	}
	if req.Structure != "" {
		if _, ok := tournament.StructureByName(req.Structure); !ok {
			fail(c, http.StatusBadRequest, "unknown blind structure")
			return
		}
	}
	switch tournament.SnGFormat(req.SnGFormat) {
	case "", tournament.SnGWinnerTakesAll, tournament.SnGTopThree,
		tournament.SnGTopTwo, tournament.SnGDoubleOrNothing:
	default:
		fail(c, http.StatusBadRequest, "unknown sit-and-go format")
		return
	}
	if req.BuyIn < 0 {
		fail(c, http.StatusBadRequest, "buy-in cannot be negative")
		return
	}

	tn := s.tournaments.Create(tournament.Settings{
		Name:            req.Name,
		Mode:            tournament.Mode(req.Mode),
		BuyIn:           req.BuyIn,
		StartingChips:   req.StartingChips,
		MinPlayers:      req.MinPlayers,
		MaxPlayers:      req.MaxPlayers,
		Structure:       req.Structure,
		LateRegLevels:   req.LateRegLevels,
		RakePercent:     req.RakePercent,
		BountyPercent:   req.BountyPercent,
		SnGFormat:       tournament.SnGFormat(req.SnGFormat),
		PlayersPerTable: req.PlayersPerTable,
	})
	c.JSON(http.StatusOK, gin.H{"success": true, "tournament": tn.Snapshot()})
}

func (s *Server) handleListTournaments(c *gin.Context) {
	active := s.tournaments.Active()
	snapshots := make([]tournament.Snapshot, 0, len(active))
	for _, tn := range active {
		snapshots = append(snapshots, tn.Snapshot())
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "tournaments": snapshots})
}

func (s *Server) handleGetTournament(c *gin.Context) {
	tn, ok := s.tournaments.Get(c.Param("id"))
	if !ok {
		fail(c, http.StatusNotFound, "Tournament not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "tournament": tn.Snapshot()})
}

func (s *Server) handleTournamentLeaderboard(c *gin.Context) {
	tn, ok := s.tournaments.Get(c.Param("id"))
	if !ok {
		fail(c, http.StatusNotFound, "Tournament not found")
		return
	}
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "leaderboard": tn.Leaderboard(limit)})
}

// handleRegisterTournament debits the buy-in and enters the player. The
// debit happens first so a full tournament cannot leave a phantom charge;
// on registration failure the buy-in is credited back.
func (s *Server) handleRegisterTournament(c *gin.Context) {
	var req lobbyActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	ident, err := s.identify(req.InitData)
	if err != nil {
		fail(c, http.StatusUnauthorized, err.Error())
		return
	}

	tn, ok := s.tournaments.Get(c.Param("id"))
	if !ok {
		fail(c, http.StatusNotFound, "Tournament not found")
		return
	}
	if tn.HasPlayer(ident.UserID) {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Already registered", "tournament": tn.Snapshot()})
		return
	}

	buyIn := tn.Settings().BuyIn
	if _, err := s.store.GetOrCreate(ident.UserID, ident.DisplayName(), s.cfg.Game.StartBalance); err != nil {
		fail(c, http.StatusInternalServerError, "account lookup failed")
		return
	}
	if buyIn > 0 {
		if err := s.store.Debit(ident.UserID, buyIn, "buy-in"); err != nil {
			if errors.Is(err, store.ErrInsufficientBalance) {
				fail(c, http.StatusBadRequest, "Insufficient balance")
				return
			}
			fail(c, http.StatusInternalServerError, "balance update failed")
			return
		}
	}

	if err := tn.Register(ident.UserID, ident.Username, ident.DisplayName()); err != nil {
		if buyIn > 0 {
			if cerr := s.store.Credit(ident.UserID, buyIn, tournament.ReasonRefund); cerr != nil {
				s.logger.Error("buy-in refund failed", "user", ident.UserID, "error", cerr)
			}
		}
		switch {
		case errors.Is(err, tournament.ErrRegistrationClosed):
			fail(c, http.StatusBadRequest, "Registration is closed")
		case errors.Is(err, tournament.ErrTournamentFull):
			fail(c, http.StatusBadRequest, "Tournament is full")
		default:
			fail(c, http.StatusBadRequest, err.Error())
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Registered", "tournament": tn.Snapshot()})
}

// handleUnregisterTournament withdraws the player. The refund is issued by
// the tournament itself through the payout hook.
func (s *Server) handleUnregisterTournament(c *gin.Context) {
	var req lobbyActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	ident, err := s.identify(req.InitData)
	if err != nil {
		fail(c, http.StatusUnauthorized, err.Error())
		return
	}

	tn, ok := s.tournaments.Get(c.Param("id"))
	if !ok {
		fail(c, http.StatusNotFound, "Tournament not found")
		return
	}
	if err := tn.Unregister(ident.UserID); err != nil {
		switch {
		case errors.Is(err, tournament.ErrRegistrationClosed):
			fail(c, http.StatusBadRequest, "Registration is closed")
		case errors.Is(err, tournament.ErrNotRegistered):
			fail(c, http.StatusBadRequest, "Not registered")
		default:
			fail(c, http.StatusBadRequest, err.Error())
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Unregistered", "tournament": tn.Snapshot()})
}

func (s *Server) handleStartTournament(c *gin.Context) {
	tn, ok := s.tournaments.Get(c.Param("id"))
	if !ok {
		fail(c, http.StatusNotFound, "Tournament not found")
		return
	}
	if err := tn.Start(); err != nil {
		switch {
		case errors.Is(err, tournament.ErrTooFewPlayers):
			fail(c, http.StatusBadRequest, "Not enough players registered")
		case errors.Is(err, tournament.ErrAlreadyStarted):
			fail(c, http.StatusBadRequest, "Tournament already started")
		default:
			fail(c, http.StatusBadRequest, err.Error())
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Tournament started", "tournament": tn.Snapshot()})
}
