package game

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/undercoverparty/backend/internal/words"
)

var (
	ErrGameNotFound    = errors.New("game not found")
	ErrPlayerNotFound  = errors.New("player not found")
	ErrHostNotFound    = errors.New("host not found")
	ErrNotHost         = errors.New("not host")
	ErrInvalidPhase    = errors.New("invalid phase for action")
	ErrNoActiveSession = errors.New("no active session")
	ErrVoteTie         = errors.New("vote tie")
	ErrStartPending    = errors.New("start already in progress")
	ErrRoundsExhausted = errors.New("no rounds remaining")
	ErrNoWordsLeft     = errors.New("word pool exhausted")
)

type Game struct {
	Code             string
	HostID           string
	MaxRounds        int
	ClueTimer        int // seconds, 0 = unlimited; advisory, never enforced here
	SecretCategory   string
	Phase            Phase
	Players          []*Player // join order
	ImpostorSchedule []string  // player IDs, consumed front to back
	WordsAvailable   []string
	WordsUsed        []string
	Session          *Session
	LastActivity     time.Time

	// starting guards the word-fetch await point: a second start on the same
	// game while a fetch is in flight would double-consume the schedule.
	starting bool

	mu sync.Mutex
}

// Manager owns the process-wide game and player registries. All engine
// operations go through it so game-state mutation stays serialized per game.
type Manager struct {
	mu     sync.RWMutex
	games  map[string]*Game
	names  map[string]string // player token -> display name
	source words.Provider
}

func NewManager(source words.Provider) *Manager {
	return &Manager{
		games:  make(map[string]*Game),
		names:  make(map[string]string),
		source: source,
	}
}

func (m *Manager) RegisterPlayer(name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	token := uuid.NewString()
	m.names[token] = name
	return token
}

func (m *Manager) CreateGame(hostToken string, maxRounds, clueTimer int, category string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name, ok := m.names[hostToken]
	if !ok {
		return "", ErrHostNotFound
	}

	code := randomCode(6)
	for m.games[code] != nil {
		code = randomCode(6)
	}
	g := &Game{
		Code:           code,
		HostID:         hostToken,
		MaxRounds:      maxRounds,
		ClueTimer:      clueTimer,
		SecretCategory: category,
		Phase:          PhaseLobby,
		Players:        []*Player{{ID: hostToken, Name: name}},
		LastActivity:   time.Now().UTC(),
	}
	m.games[code] = g
	return code, nil
}

func (m *Manager) Get(code string) (*Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g := m.games[code]
	if g == nil {
		return nil, ErrGameNotFound
	}
	return g, nil
}

func (m *Manager) playerName(token string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name, ok := m.names[token]
	return name, ok
}

// Join is idempotent: re-joining while already a member is a no-op success.
func (m *Manager) Join(code, playerToken string) error {
	g, err := m.Get(code)
	if err != nil {
		return err
	}
	name, ok := m.playerName(playerToken)
	if !ok {
		return ErrPlayerNotFound
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.member(playerToken) != nil {
		return nil
	}
	g.Players = append(g.Players, &Player{ID: playerToken, Name: name})
	return nil
}

// StartGame builds the impostor schedule for the configured round count and
// tops up the word pool from the word source. The fetch may suspend; the
// game stays busy for start purposes until it completes.
func (m *Manager) StartGame(ctx context.Context, code string) error {
	g, err := m.Get(code)
	if err != nil {
		return err
	}

	g.mu.Lock()
	if g.starting {
		g.mu.Unlock()
		return ErrStartPending
	}
	g.starting = true
	g.ImpostorSchedule = buildSchedule(g.memberIDs(), g.MaxRounds)
	need := g.MaxRounds - len(g.WordsAvailable)
	category := g.SecretCategory
	exclude := g.knownWords()
	g.mu.Unlock()

	var fetched []string
	if need > 0 {
		fetched, err = m.source.Words(ctx, category, exclude, need)
	}

	g.mu.Lock()
	g.starting = false
	if err == nil {
		g.mergeWords(fetched)
	}
	g.mu.Unlock()
	return err
}

// StartSession begins the next round: consumes one schedule entry, draws a
// secret word, shuffles the turn order and moves the game into delegation.
func (m *Manager) StartSession(ctx context.Context, code string) (*SessionInfo, error) {
	g, err := m.Get(code)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	if g.starting {
		g.mu.Unlock()
		return nil, ErrStartPending
	}
	if g.Phase != PhaseLobby && g.Phase != PhaseResults {
		g.mu.Unlock()
		return nil, ErrInvalidPhase
	}
	if len(g.ImpostorSchedule) == 0 {
		g.mu.Unlock()
		return nil, ErrRoundsExhausted
	}

	if len(g.WordsAvailable) == 0 {
		// same refill path as StartGame, serialized by the same flag
		g.starting = true
		need := len(g.ImpostorSchedule)
		category := g.SecretCategory
		exclude := g.knownWords()
		g.mu.Unlock()

		fetched, err := m.source.Words(ctx, category, exclude, need)

		g.mu.Lock()
		g.starting = false
		if err != nil {
			g.mu.Unlock()
			return nil, err
		}
		g.mergeWords(fetched)
	}
	defer g.mu.Unlock()

	if len(g.WordsAvailable) == 0 {
		return nil, ErrNoWordsLeft
	}

	// members may have quit since the schedule was built; stale entries are
	// skipped rather than failing the round
	var impostor *Player
	for len(g.ImpostorSchedule) > 0 {
		id := g.ImpostorSchedule[0]
		g.ImpostorSchedule = g.ImpostorSchedule[1:]
		if p := g.member(id); p != nil {
			impostor = p
			break
		}
	}
	if impostor == nil {
		return nil, ErrRoundsExhausted
	}

	word := g.drawWord()
	order := g.memberIDs()
	rand.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	g.Session = &Session{TurnOrder: order, CurrentTurnIndex: 0, SecretWord: word, ImpostorID: impostor.ID}
	for _, p := range g.Players {
		p.ReadyToStart = false
		p.ReadyToVote = false
	}
	g.Phase = PhaseDelegation

	return &SessionInfo{
		TurnOrder:  append([]string{}, order...),
		SecretWord: word,
		ImpostorID: impostor.ID,
		ClueTimer:  g.ClueTimer,
		RoundsLeft: len(g.ImpostorSchedule),
	}, nil
}

// BeginCluePhase moves delegation into the live clue-giving phase. Host only.
func (m *Manager) BeginCluePhase(code, callerToken string) (*TurnInfo, error) {
	g, err := m.Get(code)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if callerToken != g.HostID {
		return nil, ErrNotHost
	}
	if g.Phase != PhaseDelegation {
		return nil, ErrInvalidPhase
	}
	if g.Session == nil {
		return nil, ErrNoActiveSession
	}
	g.Phase = PhaseDeception
	return &TurnInfo{
		CurrentTurnIndex: g.Session.CurrentTurnIndex,
		PlayerID:         g.Session.TurnOrder[g.Session.CurrentTurnIndex],
	}, nil
}

// AdvanceTurn moves the cyclic turn pointer. The skip variant is host-only.
func (m *Manager) AdvanceTurn(code, callerToken string, skip bool) (*TurnInfo, error) {
	g, err := m.Get(code)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Session == nil {
		return nil, ErrNoActiveSession
	}
	if skip && callerToken != g.HostID {
		return nil, ErrNotHost
	}
	g.Session.CurrentTurnIndex = (g.Session.CurrentTurnIndex + 1) % len(g.Session.TurnOrder)
	return &TurnInfo{
		CurrentTurnIndex: g.Session.CurrentTurnIndex,
		PlayerID:         g.Session.TurnOrder[g.Session.CurrentTurnIndex],
	}, nil
}

func (m *Manager) ToggleReadyStart(code, playerToken string) (Player, error) {
	g, err := m.Get(code)
	if err != nil {
		return Player{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	p := g.member(playerToken)
	if p == nil {
		return Player{}, ErrPlayerNotFound
	}
	p.ReadyToStart = !p.ReadyToStart
	return *p, nil
}

// ToggleReadyVote flips a member's ready-to-vote flag. When everyone is ready
// during the clue phase the game advances to voting and the flags reset.
func (m *Manager) ToggleReadyVote(code, playerToken string) (Player, bool, error) {
	g, err := m.Get(code)
	if err != nil {
		return Player{}, false, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	p := g.member(playerToken)
	if p == nil {
		return Player{}, false, ErrPlayerNotFound
	}
	p.ReadyToVote = !p.ReadyToVote

	all := true
	for _, mp := range g.Players {
		if !mp.ReadyToVote {
			all = false
			break
		}
	}
	snapshot := *p
	if all && g.Phase == PhaseDeception {
		g.Phase = PhaseVoting
		for _, mp := range g.Players {
			mp.ReadyToVote = false
		}
		return snapshot, true, nil
	}
	return snapshot, false, nil
}

// SubmitVote records a ballot with last-vote-wins semantics: a voter's
// earlier vote is retracted before the new one lands, so revoting never
// inflates the tally. Returns the full per-player tally.
func (m *Manager) SubmitVote(code, voterToken, targetToken string) (map[string]int, error) {
	g, err := m.Get(code)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Phase != PhaseVoting {
		return nil, ErrInvalidPhase
	}
	voter := g.member(voterToken)
	target := g.member(targetToken)
	if voter == nil || target == nil {
		return nil, ErrPlayerNotFound
	}
	if voter.HasVoted && voter.VotedForID != "" {
		if prev := g.member(voter.VotedForID); prev != nil {
			prev.Votes--
		}
	}
	target.Votes++
	voter.HasVoted = true
	voter.VotedForID = targetToken
	return g.tally(), nil
}

// FinalizeVotes resolves the round. A shared maximum is a tie: nothing is
// mutated and the round stays in voting so clients can keep balloting.
func (m *Manager) FinalizeVotes(code, callerToken string) (*Result, error) {
	g, err := m.Get(code)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if callerToken != g.HostID {
		return nil, ErrNotHost
	}
	if g.Phase != PhaseVoting {
		return nil, ErrInvalidPhase
	}
	if g.Session == nil {
		return nil, ErrNoActiveSession
	}

	var votedOut *Player
	maxVotes := -1
	tied := false
	for _, p := range g.Players {
		switch {
		case p.Votes > maxVotes:
			maxVotes = p.Votes
			votedOut = p
			tied = false
		case p.Votes == maxVotes:
			tied = true
		}
	}
	if tied || votedOut == nil {
		return nil, ErrVoteTie
	}

	wasImpostor := votedOut.ID == g.Session.ImpostorID
	for _, p := range g.Players {
		if wasImpostor && p.ID != g.Session.ImpostorID {
			p.Points++
		}
		if !wasImpostor && p.ID == g.Session.ImpostorID {
			p.Points++
		}
	}

	scores := make(map[string]int, len(g.Players))
	for _, p := range g.Players {
		scores[p.ID] = p.Points
		p.Votes = 0
		p.HasVoted = false
		p.VotedForID = ""
	}
	g.Phase = PhaseResults

	return &Result{
		VotedOutID:  votedOut.ID,
		WasImpostor: wasImpostor,
		GameOver:    len(g.ImpostorSchedule) == 0,
		Scores:      scores,
	}, nil
}

// Quit removes a player from the game and the player registry. The game is
// deleted when the last member leaves; if the host left, the first remaining
// member is promoted.
func (m *Manager) Quit(code, playerToken string) (*QuitResult, error) {
	g, err := m.Get(code)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	if g.member(playerToken) == nil {
		g.mu.Unlock()
		return nil, ErrPlayerNotFound
	}
	g.removeMember(playerToken)

	res := &QuitResult{PlayerID: playerToken}
	if len(g.Players) == 0 {
		res.Deleted = true
	} else if g.HostID == playerToken {
		g.HostID = g.Players[0].ID
		res.NewHostID = g.HostID
	}
	g.mu.Unlock()

	m.mu.Lock()
	delete(m.names, playerToken)
	if res.Deleted {
		delete(m.games, code)
	}
	m.mu.Unlock()
	return res, nil
}

// Rejoin rebuilds the caller's client-visible state without mutating anything.
func (m *Manager) Rejoin(code, playerToken string) (*GameView, error) {
	g, err := m.Get(code)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.member(playerToken) == nil {
		return nil, ErrPlayerNotFound
	}
	return g.view(playerToken), nil
}

func (m *Manager) ChangeClueTimer(code, callerToken string, seconds int) error {
	g, err := m.Get(code)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if callerToken != g.HostID {
		return ErrNotHost
	}
	g.ClueTimer = seconds
	return nil
}

// NewGame restarts the lobby with fresh settings: points, per-round state,
// schedule and session all reset. The used-word set survives unless the
// category itself changed, so words never repeat within a category epoch.
func (m *Manager) NewGame(code, callerToken string, maxRounds, clueTimer int, category string) error {
	g, err := m.Get(code)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if callerToken != g.HostID {
		return ErrNotHost
	}
	if category != g.SecretCategory {
		g.WordsAvailable = nil
		g.WordsUsed = nil
	}
	g.MaxRounds = maxRounds
	g.ClueTimer = clueTimer
	g.SecretCategory = category
	g.ImpostorSchedule = nil
	g.Session = nil
	g.Phase = PhaseLobby
	for _, p := range g.Players {
		p.Points = 0
		p.Votes = 0
		p.HasVoted = false
		p.VotedForID = ""
		p.ReadyToStart = false
		p.ReadyToVote = false
	}
	return nil
}

// State exposes everything including the secret word and impostor. Meant for
// debugging and spectating, not for the per-player path.
func (m *Manager) State(code string) (*DebugState, error) {
	g, err := m.Get(code)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	st := &DebugState{Phase: g.Phase, Players: make([]Player, 0, len(g.Players))}
	for _, p := range g.Players {
		st.Players = append(st.Players, *p)
	}
	if g.Session != nil {
		s := *g.Session
		s.TurnOrder = append([]string{}, g.Session.TurnOrder...)
		st.Session = &s
	}
	return st, nil
}

// Touch refreshes the inactivity clock. The realtime router calls it for
// every inbound frame.
func (m *Manager) Touch(code string) {
	g, err := m.Get(code)
	if err != nil {
		return
	}
	g.mu.Lock()
	g.LastActivity = time.Now().UTC()
	g.mu.Unlock()
}

// Expired returns the codes of games idle past the timeout.
func (m *Manager) Expired(timeout time.Duration) []string {
	cutoff := time.Now().UTC().Add(-timeout)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var codes []string
	for code, g := range m.games {
		g.mu.Lock()
		idle := g.LastActivity.Before(cutoff)
		g.mu.Unlock()
		if idle {
			codes = append(codes, code)
		}
	}
	return codes
}

// Delete purges a game and its members from the registries.
func (m *Manager) Delete(code string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := m.games[code]
	if g == nil {
		return false
	}
	g.mu.Lock()
	for _, p := range g.Players {
		delete(m.names, p.ID)
	}
	g.mu.Unlock()
	delete(m.games, code)
	return true
}

// helpers below assume g.mu is held

func (g *Game) member(id string) *Player {
	for _, p := range g.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (g *Game) removeMember(id string) {
	for i, p := range g.Players {
		if p.ID == id {
			g.Players = append(g.Players[:i], g.Players[i+1:]...)
			break
		}
	}
	kept := g.ImpostorSchedule[:0]
	for _, sid := range g.ImpostorSchedule {
		if sid != id {
			kept = append(kept, sid)
		}
	}
	g.ImpostorSchedule = kept
}

func (g *Game) memberIDs() []string {
	ids := make([]string, 0, len(g.Players))
	for _, p := range g.Players {
		ids = append(ids, p.ID)
	}
	return ids
}

func (g *Game) tally() map[string]int {
	t := make(map[string]int, len(g.Players))
	for _, p := range g.Players {
		t[p.ID] = p.Votes
	}
	return t
}

func (g *Game) view(viewerID string) *GameView {
	v := &GameView{
		Code:       g.Code,
		Phase:      g.Phase,
		HostID:     g.HostID,
		IsHost:     viewerID == g.HostID,
		ClueTimer:  g.ClueTimer,
		MaxRounds:  g.MaxRounds,
		RoundsLeft: len(g.ImpostorSchedule),
		Players:    make([]Player, 0, len(g.Players)),
	}
	for _, p := range g.Players {
		v.Players = append(v.Players, *p)
	}
	if g.Session != nil {
		sv := &SessionView{
			Role:             "crew",
			TurnOrder:        append([]string{}, g.Session.TurnOrder...),
			CurrentTurnIndex: g.Session.CurrentTurnIndex,
		}
		if viewerID == g.Session.ImpostorID {
			sv.Role = "impostor"
		} else {
			word := g.Session.SecretWord
			sv.Word = &word
		}
		v.Session = sv
	}
	return v
}

func randomCode(n int) string {
	letters := []rune("ABCDEFGHJKLMNPQRSTUVWXYZ23456789")
	b := make([]rune, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}
