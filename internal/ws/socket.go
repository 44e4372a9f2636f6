package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/undercoverparty/backend/internal/game"
)

// inbound frame types
const (
	msgEndTurn          = "end_turn"
	msgSubmitVote       = "submit_vote"
	msgStartNextSession = "start_next_session"
	msgToggleReady      = "toggle_ready"
	msgToggleReadyStart = "toggle_ready_start"
	msgFinalizeVotes    = "finalize_votes"
	msgNewGame          = "new_game"
	msgQuitGame         = "quit_game"
	msgSkipTurn         = "skip_turn"
	msgChangeTimer      = "change_timer"
	msgContinueGame     = "continue_game"
)

// outbound frame types
const (
	MsgGameStarted            = "game_started"
	MsgSessionStarted         = "session_started"
	MsgNextTurn               = "next_turn"
	MsgPlayerReadyChanged     = "player_ready_changed"
	MsgPlayerReadyStartChange = "player_ready_start_changed"
	MsgCluePhaseComplete      = "clue_phase_complete"
	MsgCluePhaseStarted       = "clue_phase_started"
	MsgVoteUpdate             = "vote_update"
	MsgVoteTie                = "vote_tie"
	MsgSessionResults         = "session_results"
	MsgNewGameStarted         = "new_game_started"
	MsgPlayerJoined           = "player_joined"
	MsgPlayerQuit             = "player_quit"
	MsgPlayerDisconnected     = "player_disconnected"
	MsgGameDeleted            = "game_deleted"
	MsgTimerChanged           = "timer_changed"
	MsgHostChoosingSettings   = "host_choosing_settings"
	MsgError                  = "error"
)

var errInvalidPasscode = errors.New("invalid category passcode")

type Server struct {
	mgr *game.Manager
	hub *Hub

	categoryPasscode string
	exportEnabled    bool
	exportFile       string
}

func New(mgr *game.Manager, hub *Hub, categoryPasscode string) *Server {
	return &Server{mgr: mgr, hub: hub, categoryPasscode: categoryPasscode}
}

func (srv *Server) EnableExport(file string) {
	srv.exportEnabled = true
	srv.exportFile = file
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsChannel serializes writes; gorilla conns do not allow concurrent writers.
type wsChannel struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsChannel) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(msg)
}

func (c *wsChannel) Close() error {
	return c.conn.Close()
}

// Mount attaches the realtime endpoint to the given Gin engine.
func (srv *Server) Mount(r *gin.Engine) {
	r.GET("/ws/:code/:player", func(c *gin.Context) {
		code := c.Param("code")
		playerID := c.Param("player")

		view, err := srv.mgr.Rejoin(code, playerID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Error().Err(err).Str("code", code).Msg("websocket upgrade failed")
			return
		}
		ch := &wsChannel{conn: conn}
		srv.hub.Register(code, playerID, ch)
		log.Info().Str("code", code).Str("playerId", playerID).Msg("socket connected")

		// initial resync so a reconnecting client does not miss state
		_ = ch.Send(Message{Type: "game_state", Data: view})

		srv.readLoop(code, playerID, conn, ch)
	})
}

func (srv *Server) readLoop(code, playerID string, conn *websocket.Conn, ch *wsChannel) {
	for {
		var frame struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := conn.ReadJSON(&frame); err != nil {
			break
		}
		srv.mgr.Touch(code)
		srv.dispatch(code, playerID, frame.Type, frame.Data)
	}
	srv.hub.Unregister(code, playerID, ch)
	srv.hub.Broadcast(code, Message{Type: MsgPlayerDisconnected, Data: map[string]any{"playerId": playerID}})
	log.Info().Str("code", code).Str("playerId", playerID).Msg("socket disconnected")
}

func (srv *Server) dispatch(code, playerID, msgType string, data json.RawMessage) {
	switch msgType {
	case msgEndTurn:
		turn, err := srv.mgr.AdvanceTurn(code, playerID, false)
		if err != nil {
			srv.sendErr(code, playerID, err)
			return
		}
		srv.hub.Broadcast(code, Message{Type: MsgNextTurn, Data: turn})

	case msgSkipTurn:
		turn, err := srv.mgr.AdvanceTurn(code, playerID, true)
		if err != nil {
			srv.sendErr(code, playerID, err)
			return
		}
		srv.hub.Broadcast(code, Message{Type: MsgNextTurn, Data: turn})

	case msgSubmitVote:
		var payload struct {
			VoteForID string `json:"voteForId"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			srv.sendErr(code, playerID, err)
			return
		}
		tally, err := srv.mgr.SubmitVote(code, playerID, payload.VoteForID)
		if err != nil {
			srv.sendErr(code, playerID, err)
			return
		}
		srv.hub.Broadcast(code, Message{Type: MsgVoteUpdate, Data: map[string]any{"votes": tally}})

	case msgFinalizeVotes:
		res, err := srv.mgr.FinalizeVotes(code, playerID)
		if errors.Is(err, game.ErrVoteTie) {
			srv.hub.Broadcast(code, Message{Type: MsgVoteTie})
			return
		}
		if err != nil {
			srv.sendErr(code, playerID, err)
			return
		}
		srv.hub.Broadcast(code, Message{Type: MsgSessionResults, Data: map[string]any{
			"votedOutId":  res.VotedOutID,
			"wasImpostor": res.WasImpostor,
			"scores":      res.Scores,
			"game_over":   res.GameOver,
		}})
		if srv.exportEnabled {
			if err := srv.mgr.ExportRound(code, res, srv.exportFile); err != nil {
				log.Error().Err(err).Str("code", code).Msg("failed to export round results")
			}
		}

	case msgStartNextSession:
		info, err := srv.mgr.StartSession(context.Background(), code)
		if err != nil {
			srv.sendErr(code, playerID, err)
			return
		}
		srv.SendSessionStarted(code, info)

	case msgContinueGame:
		turn, err := srv.mgr.BeginCluePhase(code, playerID)
		if err != nil {
			srv.sendErr(code, playerID, err)
			return
		}
		srv.hub.Broadcast(code, Message{Type: MsgCluePhaseStarted, Data: turn})

	case msgToggleReady:
		p, allReady, err := srv.mgr.ToggleReadyVote(code, playerID)
		if err != nil {
			srv.sendErr(code, playerID, err)
			return
		}
		srv.hub.Broadcast(code, Message{Type: MsgPlayerReadyChanged, Data: map[string]any{
			"playerId":    p.ID,
			"readyToVote": p.ReadyToVote,
		}})
		if allReady {
			srv.hub.Broadcast(code, Message{Type: MsgCluePhaseComplete})
		}

	case msgToggleReadyStart:
		p, err := srv.mgr.ToggleReadyStart(code, playerID)
		if err != nil {
			srv.sendErr(code, playerID, err)
			return
		}
		srv.hub.Broadcast(code, Message{Type: MsgPlayerReadyStartChange, Data: map[string]any{
			"playerId":     p.ID,
			"readyToStart": p.ReadyToStart,
		}})

	case msgChangeTimer:
		var payload struct {
			ClueTimer int `json:"clueTimer"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			srv.sendErr(code, playerID, err)
			return
		}
		if err := srv.mgr.ChangeClueTimer(code, playerID, payload.ClueTimer); err != nil {
			srv.sendErr(code, playerID, err)
			return
		}
		srv.hub.Broadcast(code, Message{Type: MsgTimerChanged, Data: map[string]any{"clueTimer": payload.ClueTimer}})

	case msgNewGame:
		var payload struct {
			MaxRounds      int    `json:"maxRounds"`
			ClueTimer      int    `json:"clueTimer"`
			SecretCategory string `json:"secretCategory"`
			Passcode       string `json:"passcode"`
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &payload); err != nil {
				srv.sendErr(code, playerID, err)
				return
			}
		}
		if payload.MaxRounds == 0 {
			// host opened the settings screen but has not committed yet
			srv.hub.Broadcast(code, Message{Type: MsgHostChoosingSettings, Data: map[string]any{"hostId": playerID}})
			return
		}
		if payload.SecretCategory != "" && payload.Passcode != srv.categoryPasscode {
			srv.sendErr(code, playerID, errInvalidPasscode)
			return
		}
		if err := srv.mgr.NewGame(code, playerID, payload.MaxRounds, payload.ClueTimer, payload.SecretCategory); err != nil {
			srv.sendErr(code, playerID, err)
			return
		}
		srv.hub.Broadcast(code, Message{Type: MsgNewGameStarted, Data: map[string]any{
			"maxRounds":      payload.MaxRounds,
			"clueTimer":      payload.ClueTimer,
			"secretCategory": payload.SecretCategory,
		}})

	case msgQuitGame:
		res, err := srv.mgr.Quit(code, playerID)
		if err != nil {
			srv.sendErr(code, playerID, err)
			return
		}
		srv.hub.Unregister(code, playerID, nil)
		if res.Deleted {
			srv.hub.Broadcast(code, Message{Type: MsgGameDeleted, Data: map[string]any{"reason": "empty"}})
			srv.hub.DropGame(code)
			return
		}
		srv.hub.Broadcast(code, Message{Type: MsgPlayerQuit, Data: map[string]any{
			"playerId":  res.PlayerID,
			"newHostId": res.NewHostID,
		}})

	default:
		// unknown frame types are swallowed, not errors
		log.Debug().Str("code", code).Str("type", msgType).Msg("ignoring unknown message type")
	}
}

// SendSessionStarted delivers each member a personalized round start. The
// impostor's variant omits the word entirely.
func (srv *Server) SendSessionStarted(code string, info *game.SessionInfo) {
	for _, id := range info.TurnOrder {
		data := map[string]any{
			"role":             "crew",
			"word":             info.SecretWord,
			"turnOrder":        info.TurnOrder,
			"currentTurnIndex": 0,
			"clueTimer":        info.ClueTimer,
			"roundsLeft":       info.RoundsLeft,
		}
		if id == info.ImpostorID {
			data["role"] = "impostor"
			delete(data, "word")
		}
		srv.hub.SendToOne(code, id, Message{Type: MsgSessionStarted, Data: data})
	}
}

func (srv *Server) sendErr(code, playerID string, err error) {
	srv.hub.SendToOne(code, playerID, Message{Type: MsgError, Data: map[string]any{"message": err.Error()}})
}
