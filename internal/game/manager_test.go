package game

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeSource struct {
	words []string
	err   error
	calls int
}

func (f *fakeSource) Words(_ context.Context, _ string, exclude []string, count int) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	excluded := make(map[string]bool, len(exclude))
	for _, w := range exclude {
		excluded[w] = true
	}
	var out []string
	for _, w := range f.words {
		if excluded[w] {
			continue
		}
		out = append(out, w)
		if len(out) == count {
			break
		}
	}
	return out, nil
}

// blockingSource suspends the fetch until released, to exercise the per-game
// busy flag around the await point.
type blockingSource struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingSource) Words(_ context.Context, _ string, _ []string, _ int) ([]string, error) {
	close(b.entered)
	<-b.release
	return []string{"glacier"}, nil
}

func manyWords() []string {
	return []string{"glacier", "volcano", "carousel", "lighthouse", "submarine", "avalanche", "telescope", "waterfall"}
}

func newLobby(t *testing.T, src *fakeSource, members, maxRounds int) (*Manager, string, []string) {
	t.Helper()
	if src == nil {
		src = &fakeSource{words: manyWords()}
	}
	m := NewManager(src)
	tokens := make([]string, 0, members)
	names := []string{"Alice", "Bob", "Charlie", "Dana", "Eve", "Frank"}
	for i := 0; i < members; i++ {
		tokens = append(tokens, m.RegisterPlayer(names[i%len(names)]))
	}
	code, err := m.CreateGame(tokens[0], maxRounds, 60, "")
	if err != nil {
		t.Fatalf("should be able to create game: %v", err)
	}
	for _, tok := range tokens[1:] {
		if err := m.Join(code, tok); err != nil {
			t.Fatalf("should be able to join: %v", err)
		}
	}
	return m, code, tokens
}

func TestCreateGameRequiresRegisteredHost(t *testing.T) {
	m := NewManager(&fakeSource{})
	if _, err := m.CreateGame("nobody", 3, 60, ""); !errors.Is(err, ErrHostNotFound) {
		t.Fatalf("expected ErrHostNotFound, got %v", err)
	}
}

func TestCreateGameEnrollsHost(t *testing.T) {
	m := NewManager(&fakeSource{})
	host := m.RegisterPlayer("Alice")
	code, err := m.CreateGame(host, 3, 60, "")
	if err != nil {
		t.Fatalf("should be able to create game: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("expected 6-character game code, got %q", code)
	}
	g, err := m.Get(code)
	if err != nil {
		t.Fatalf("should be able to get game: %v", err)
	}
	if g.Phase != PhaseLobby {
		t.Fatalf("expected phase %s, got %s", PhaseLobby, g.Phase)
	}
	if len(g.Players) != 1 || g.Players[0].ID != host {
		t.Fatal("host should be auto-enrolled as the first member")
	}
	if g.HostID != host {
		t.Fatal("host should reference a current member")
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	m, code, tokens := newLobby(t, nil, 2, 3)
	if err := m.Join(code, tokens[1]); err != nil {
		t.Fatalf("re-join should be a no-op success: %v", err)
	}
	g, _ := m.Get(code)
	if len(g.Players) != 2 {
		t.Fatalf("expected 2 members after re-join, got %d", len(g.Players))
	}
}

func TestJoinUnknownGameOrPlayer(t *testing.T) {
	m := NewManager(&fakeSource{})
	token := m.RegisterPlayer("Alice")
	if err := m.Join("XXXXXX", token); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
	code, _ := m.CreateGame(token, 3, 60, "")
	if err := m.Join(code, "nobody"); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("expected ErrPlayerNotFound, got %v", err)
	}
}

func TestQuitPromotesFirstRemainingMember(t *testing.T) {
	m, code, tokens := newLobby(t, nil, 3, 3)
	res, err := m.Quit(code, tokens[0])
	if err != nil {
		t.Fatalf("should be able to quit: %v", err)
	}
	if res.Deleted {
		t.Fatal("game should survive while members remain")
	}
	if res.NewHostID != tokens[1] {
		t.Fatalf("expected host promotion to %s, got %s", tokens[1], res.NewHostID)
	}
	g, _ := m.Get(code)
	if g.member(g.HostID) == nil {
		t.Fatal("new host must be a current member")
	}
}

func TestQuitLastMemberDeletesGame(t *testing.T) {
	m, code, tokens := newLobby(t, nil, 1, 3)
	res, err := m.Quit(code, tokens[0])
	if err != nil {
		t.Fatalf("should be able to quit: %v", err)
	}
	if !res.Deleted {
		t.Fatal("game should be deleted when the last member quits")
	}
	if _, err := m.Get(code); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound after deletion, got %v", err)
	}
}

func TestRejoinWithholdsWordFromImpostor(t *testing.T) {
	m, code, tokens := newLobby(t, nil, 3, 3)
	if err := m.StartGame(context.Background(), code); err != nil {
		t.Fatalf("should be able to start game: %v", err)
	}
	info, err := m.StartSession(context.Background(), code)
	if err != nil {
		t.Fatalf("should be able to start session: %v", err)
	}

	impostorView, err := m.Rejoin(code, info.ImpostorID)
	if err != nil {
		t.Fatalf("impostor should be able to rejoin: %v", err)
	}
	if impostorView.Phase != PhaseDelegation {
		t.Fatalf("expected phase %s, got %s", PhaseDelegation, impostorView.Phase)
	}
	if impostorView.Session == nil {
		t.Fatal("rejoin should include the active session view")
	}
	if impostorView.Session.Word != nil {
		t.Fatal("impostor view must withhold the word")
	}
	if impostorView.Session.Role != "impostor" {
		t.Fatalf("expected role impostor, got %s", impostorView.Session.Role)
	}

	var other string
	for _, tok := range tokens {
		if tok != info.ImpostorID {
			other = tok
			break
		}
	}
	crewView, err := m.Rejoin(code, other)
	if err != nil {
		t.Fatalf("member should be able to rejoin: %v", err)
	}
	if crewView.Session.Word == nil || *crewView.Session.Word != info.SecretWord {
		t.Fatal("regular member view must include the word")
	}
	if crewView.Session.Role != "crew" {
		t.Fatalf("expected role crew, got %s", crewView.Session.Role)
	}
	if len(crewView.Session.TurnOrder) != len(impostorView.Session.TurnOrder) {
		t.Fatal("turn order must be identical across views")
	}
}

func TestConcurrentStartIsSerialized(t *testing.T) {
	src := &blockingSource{entered: make(chan struct{}), release: make(chan struct{})}
	m := NewManager(src)
	host := m.RegisterPlayer("Alice")
	code, _ := m.CreateGame(host, 3, 60, "")

	done := make(chan error, 1)
	go func() { done <- m.StartGame(context.Background(), code) }()
	<-src.entered

	if err := m.StartGame(context.Background(), code); !errors.Is(err, ErrStartPending) {
		t.Fatalf("expected ErrStartPending while fetch is in flight, got %v", err)
	}
	if _, err := m.StartSession(context.Background(), code); !errors.Is(err, ErrStartPending) {
		t.Fatalf("expected ErrStartPending for session start while fetch is in flight, got %v", err)
	}

	close(src.release)
	if err := <-done; err != nil {
		t.Fatalf("first start should succeed: %v", err)
	}
}

func TestProviderFailureIsNotFatalViaSourceChain(t *testing.T) {
	// the fallback chain lives in the words package; at the engine level a
	// hard source error surfaces as a failed start, nothing worse
	src := &fakeSource{err: errors.New("provider down")}
	m, code, _ := func() (*Manager, string, []string) {
		m := NewManager(src)
		host := m.RegisterPlayer("Alice")
		code, _ := m.CreateGame(host, 3, 60, "")
		return m, code, nil
	}()
	if err := m.StartGame(context.Background(), code); err == nil {
		t.Fatal("expected start to surface the source error")
	}
	g, _ := m.Get(code)
	if g.starting {
		t.Fatal("busy flag must clear after a failed fetch")
	}
}

func TestReaperDeletesIdleGames(t *testing.T) {
	m, code, _ := newLobby(t, nil, 2, 3)
	freshCode := func() string {
		host := m.RegisterPlayer("Eve")
		c, _ := m.CreateGame(host, 3, 60, "")
		return c
	}()

	g, _ := m.Get(code)
	g.mu.Lock()
	g.LastActivity = time.Now().UTC().Add(-time.Hour)
	g.mu.Unlock()

	var notified []string
	r := NewReaper(m, time.Minute, 5*time.Minute, func(c string) { notified = append(notified, c) })
	r.sweep()

	if _, err := m.Get(code); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("idle game should be reaped, got %v", err)
	}
	if _, err := m.Get(freshCode); err != nil {
		t.Fatalf("active game should survive the sweep: %v", err)
	}
	if len(notified) != 1 || notified[0] != code {
		t.Fatalf("expected teardown notification for %s, got %v", code, notified)
	}
}

func TestTouchRefreshesActivity(t *testing.T) {
	m, code, _ := newLobby(t, nil, 2, 3)
	g, _ := m.Get(code)
	g.mu.Lock()
	g.LastActivity = time.Now().UTC().Add(-time.Hour)
	g.mu.Unlock()

	m.Touch(code)
	if codes := m.Expired(5 * time.Minute); len(codes) != 0 {
		t.Fatalf("touched game should not be expired, got %v", codes)
	}
}
