package game

type Phase string

const (
	PhaseLobby      Phase = "lobby"
	PhaseDelegation Phase = "delegation"
	PhaseDeception  Phase = "deception"
	PhaseVoting     Phase = "voting"
	PhaseResults    Phase = "results"
)

type Player struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Votes        int    `json:"votes"`
	HasVoted     bool   `json:"hasVoted"`
	VotedForID   string `json:"votedForId,omitempty"`
	ReadyToStart bool   `json:"readyToStart"`
	ReadyToVote  bool   `json:"readyToVote"`
	Points       int    `json:"points"`
}

// Session is one round of play. A new one replaces it when the next round
// starts; sessions are never mutated besides the turn index.
type Session struct {
	TurnOrder        []string `json:"turnOrder"`
	CurrentTurnIndex int      `json:"currentTurnIndex"`
	SecretWord       string   `json:"secretWord"`
	ImpostorID       string   `json:"impostorId"`
}

// SessionInfo is the snapshot handed to the caller after a successful round
// start, used to build the personalized session_started messages.
type SessionInfo struct {
	TurnOrder  []string `json:"turnOrder"`
	SecretWord string   `json:"secretWord"`
	ImpostorID string   `json:"impostorId"`
	ClueTimer  int      `json:"clueTimer"`
	RoundsLeft int      `json:"roundsLeft"`
}

type TurnInfo struct {
	CurrentTurnIndex int    `json:"currentTurnIndex"`
	PlayerID         string `json:"playerId"`
}

// Result is the outcome of a finalized vote.
type Result struct {
	VotedOutID  string         `json:"votedOutId"`
	WasImpostor bool           `json:"wasImpostor"`
	GameOver    bool           `json:"gameOver"`
	Scores      map[string]int `json:"scores"`
}

type QuitResult struct {
	PlayerID  string `json:"playerId"`
	Deleted   bool   `json:"deleted"`
	NewHostID string `json:"newHostId,omitempty"`
}

// SessionView is a player's personalized window on the active round. Word is
// nil for the impostor; turn order and index are visible to everyone.
type SessionView struct {
	Word             *string  `json:"word"`
	Role             string   `json:"role"`
	TurnOrder        []string `json:"turnOrder"`
	CurrentTurnIndex int      `json:"currentTurnIndex"`
}

type GameView struct {
	Code       string       `json:"gameCode"`
	Phase      Phase        `json:"phase"`
	HostID     string       `json:"hostId"`
	IsHost     bool         `json:"isHost"`
	ClueTimer  int          `json:"clueTimer"`
	MaxRounds  int          `json:"maxRounds"`
	RoundsLeft int          `json:"roundsLeft"`
	Players    []Player     `json:"players"`
	Session    *SessionView `json:"session,omitempty"`
}

// DebugState is the spectator/debugging view exposed by the state endpoint.
// Unlike GameView it leaks the secret word and impostor on purpose.
type DebugState struct {
	Phase   Phase    `json:"current_phase"`
	Players []Player `json:"players_list"`
	Session *Session `json:"current_session,omitempty"`
}
