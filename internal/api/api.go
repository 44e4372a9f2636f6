package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/undercoverparty/backend/internal/game"
	"github.com/undercoverparty/backend/internal/ws"
)

// Server is the thin request layer: every handler binds a payload, calls one
// engine operation and translates the result into a response plus broadcasts.
type Server struct {
	mgr              *game.Manager
	hub              *ws.Hub
	sock             *ws.Server
	categoryPasscode string
}

func New(mgr *game.Manager, hub *ws.Hub, sock *ws.Server, categoryPasscode string) *Server {
	return &Server{mgr: mgr, hub: hub, sock: sock, categoryPasscode: categoryPasscode}
}

func (s *Server) Mount(r *gin.Engine) {
	r.POST("/player/register", s.registerPlayer)
	r.POST("/game/create", s.createGame)
	r.POST("/game/join", s.joinGame)
	r.POST("/game/rejoin", s.rejoinGame)
	r.POST("/game/start", s.startGame)
	r.POST("/session/start", s.startSession)
	r.GET("/game/:id/state", s.gameState)
	r.POST("/game/vote", s.submitVote)
	r.POST("/game/end_session", s.endSession)
	r.POST("/game/quit", s.quitGame)
}

func (s *Server) registerPlayer(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload"})
		return
	}
	token := s.mgr.RegisterPlayer(req.Name)
	log.Info().Str("name", req.Name).Msg("player registered")
	c.JSON(http.StatusOK, gin.H{"player_id": token})
}

func (s *Server) createGame(c *gin.Context) {
	var req struct {
		HostID         string `json:"host_id" binding:"required"`
		MaxRounds      int    `json:"max_rounds" binding:"required"`
		ClueTimer      int    `json:"clue_timer"`
		SecretCategory string `json:"secret_category"`
		Passcode       string `json:"passcode"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload"})
		return
	}
	// custom categories are gated here; the engine never sees the passcode
	if req.SecretCategory != "" && req.Passcode != s.categoryPasscode {
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid_passcode"})
		return
	}
	code, err := s.mgr.CreateGame(req.HostID, req.MaxRounds, req.ClueTimer, req.SecretCategory)
	if err != nil {
		s.fail(c, err)
		return
	}
	log.Info().Str("code", code).Str("hostId", req.HostID).Msg("game created")
	c.JSON(http.StatusOK, gin.H{"game_id": code})
}

func (s *Server) joinGame(c *gin.Context) {
	var req struct {
		PlayerID string `json:"player_id" binding:"required"`
		GameID   string `json:"game_id" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload"})
		return
	}
	if err := s.mgr.Join(req.GameID, req.PlayerID); err != nil {
		s.fail(c, err)
		return
	}
	s.mgr.Touch(req.GameID)
	s.hub.Broadcast(req.GameID, ws.Message{Type: ws.MsgPlayerJoined, Data: gin.H{"playerId": req.PlayerID}})
	c.JSON(http.StatusOK, gin.H{"message": "Successfully joined the game"})
}

func (s *Server) rejoinGame(c *gin.Context) {
	var req struct {
		PlayerID string `json:"player_id" binding:"required"`
		GameID   string `json:"game_id" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload"})
		return
	}
	view, err := s.mgr.Rejoin(req.GameID, req.PlayerID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) startGame(c *gin.Context) {
	var req struct {
		GameID string `json:"game_id" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload"})
		return
	}
	if err := s.mgr.StartGame(c.Request.Context(), req.GameID); err != nil {
		s.fail(c, err)
		return
	}
	s.mgr.Touch(req.GameID)
	s.hub.Broadcast(req.GameID, ws.Message{Type: ws.MsgGameStarted})
	log.Info().Str("code", req.GameID).Msg("game started")
	c.JSON(http.StatusOK, gin.H{"message": "Successfully started the game"})
}

func (s *Server) startSession(c *gin.Context) {
	var req struct {
		GameID string `json:"game_id" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload"})
		return
	}
	info, err := s.mgr.StartSession(c.Request.Context(), req.GameID)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.mgr.Touch(req.GameID)
	s.sock.SendSessionStarted(req.GameID, info)
	log.Info().Str("code", req.GameID).Int("roundsLeft", info.RoundsLeft).Msg("session started")
	c.JSON(http.StatusOK, gin.H{"message": "Successfully started the session"})
}

func (s *Server) gameState(c *gin.Context) {
	st, err := s.mgr.State(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) submitVote(c *gin.Context) {
	var req struct {
		GameID    string `json:"game_id" binding:"required"`
		PlayerID  string `json:"player_id" binding:"required"`
		VoteForID string `json:"vote_for_id" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload"})
		return
	}
	tally, err := s.mgr.SubmitVote(req.GameID, req.PlayerID, req.VoteForID)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.mgr.Touch(req.GameID)
	s.hub.Broadcast(req.GameID, ws.Message{Type: ws.MsgVoteUpdate, Data: gin.H{"votes": tally}})
	c.JSON(http.StatusOK, gin.H{"message": "Vote submitted"})
}

// endSession is the legacy single-shot finalize.
//
// Deprecated: it now delegates to the tie-checked finalize path; a tie is
// reported instead of force-resolving the round.
func (s *Server) endSession(c *gin.Context) {
	var req struct {
		GameID   string `json:"game_id" binding:"required"`
		PlayerID string `json:"player_id" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload"})
		return
	}
	res, err := s.mgr.FinalizeVotes(req.GameID, req.PlayerID)
	if errors.Is(err, game.ErrVoteTie) {
		s.hub.Broadcast(req.GameID, ws.Message{Type: ws.MsgVoteTie})
		c.JSON(http.StatusConflict, gin.H{"error": "vote_tie"})
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	s.mgr.Touch(req.GameID)
	s.hub.Broadcast(req.GameID, ws.Message{Type: ws.MsgSessionResults, Data: gin.H{
		"votedOutId":  res.VotedOutID,
		"wasImpostor": res.WasImpostor,
		"scores":      res.Scores,
		"game_over":   res.GameOver,
	}})
	c.JSON(http.StatusOK, res)
}

func (s *Server) quitGame(c *gin.Context) {
	var req struct {
		GameID   string `json:"game_id" binding:"required"`
		PlayerID string `json:"player_id" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload"})
		return
	}
	res, err := s.mgr.Quit(req.GameID, req.PlayerID)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.hub.Unregister(req.GameID, req.PlayerID, nil)
	if res.Deleted {
		s.hub.Broadcast(req.GameID, ws.Message{Type: ws.MsgGameDeleted, Data: gin.H{"reason": "empty"}})
		s.hub.DropGame(req.GameID)
	} else {
		s.hub.Broadcast(req.GameID, ws.Message{Type: ws.MsgPlayerQuit, Data: gin.H{
			"playerId":  res.PlayerID,
			"newHostId": res.NewHostID,
		}})
	}
	c.JSON(http.StatusOK, res)
}

// fail maps engine errors onto HTTP statuses. Missing games and players are
// expected misses, never server faults.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, game.ErrGameNotFound),
		errors.Is(err, game.ErrPlayerNotFound),
		errors.Is(err, game.ErrHostNotFound):
		status = http.StatusNotFound
	case errors.Is(err, game.ErrNotHost):
		status = http.StatusForbidden
	case errors.Is(err, game.ErrStartPending), errors.Is(err, game.ErrVoteTie):
		status = http.StatusConflict
	case errors.Is(err, game.ErrRoundsExhausted), errors.Is(err, game.ErrNoWordsLeft):
		status = http.StatusGone
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
