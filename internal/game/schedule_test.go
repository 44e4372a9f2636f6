package game

import (
	"context"
	"errors"
	"testing"
)

func TestScheduleDistinctWhenRoundsFitMembers(t *testing.T) {
	ids := []string{"a", "b", "c", "d"}
	schedule := buildSchedule(ids, 3)
	if len(schedule) != 3 {
		t.Fatalf("expected schedule length 3, got %d", len(schedule))
	}
	seen := make(map[string]bool)
	for _, id := range schedule {
		if seen[id] {
			t.Fatalf("impostor %s scheduled twice with rounds <= members", id)
		}
		seen[id] = true
	}
}

func TestScheduleMultisetWithMoreRoundsThanMembers(t *testing.T) {
	ids := []string{"a", "b", "c", "d"}
	schedule := buildSchedule(ids, 6)
	if len(schedule) != 6 {
		t.Fatalf("expected schedule length 6, got %d", len(schedule))
	}
	counts := make(map[string]int)
	for _, id := range schedule {
		counts[id]++
	}
	twice := 0
	for _, id := range ids {
		switch counts[id] {
		case 1:
		case 2:
			twice++
		default:
			t.Fatalf("member %s appears %d times, want 1 or 2", id, counts[id])
		}
	}
	if twice != 2 {
		t.Fatalf("expected exactly 2 members to appear twice, got %d", twice)
	}
}

func TestScheduleShrinksOncePerSessionStart(t *testing.T) {
	m, code, _ := newLobby(t, nil, 3, 3)
	if err := m.StartGame(context.Background(), code); err != nil {
		t.Fatalf("should be able to start game: %v", err)
	}
	g, _ := m.Get(code)
	for want := 2; want >= 0; want-- {
		if _, err := m.StartSession(context.Background(), code); err != nil {
			t.Fatalf("should be able to start session: %v", err)
		}
		if len(g.ImpostorSchedule) != want {
			t.Fatalf("expected %d rounds remaining, got %d", want, len(g.ImpostorSchedule))
		}
		g.mu.Lock()
		g.Phase = PhaseResults
		g.mu.Unlock()
	}
	if _, err := m.StartSession(context.Background(), code); !errors.Is(err, ErrRoundsExhausted) {
		t.Fatalf("expected ErrRoundsExhausted after the last round, got %v", err)
	}
}

func TestQuitRemovesPlayerFromSchedule(t *testing.T) {
	m, code, tokens := newLobby(t, nil, 3, 3)
	if err := m.StartGame(context.Background(), code); err != nil {
		t.Fatalf("should be able to start game: %v", err)
	}
	if _, err := m.Quit(code, tokens[1]); err != nil {
		t.Fatalf("should be able to quit: %v", err)
	}
	g, _ := m.Get(code)
	for _, id := range g.ImpostorSchedule {
		if id == tokens[1] {
			t.Fatal("quit player must be removed from the impostor schedule")
		}
	}
}

func TestDrawnWordsNeverReturn(t *testing.T) {
	src := &fakeSource{words: manyWords()}
	m, code, _ := newLobby(t, src, 2, 3)
	if err := m.StartGame(context.Background(), code); err != nil {
		t.Fatalf("should be able to start game: %v", err)
	}
	g, _ := m.Get(code)

	drawn := make(map[string]bool)
	for i := 0; i < 3; i++ {
		info, err := m.StartSession(context.Background(), code)
		if err != nil {
			t.Fatalf("should be able to start session: %v", err)
		}
		if drawn[info.SecretWord] {
			t.Fatalf("word %q was drawn twice", info.SecretWord)
		}
		drawn[info.SecretWord] = true
		g.mu.Lock()
		for _, w := range g.WordsAvailable {
			if drawn[w] {
				t.Fatalf("used word %q reappeared in the available pool", w)
			}
		}
		g.Phase = PhaseResults
		g.mu.Unlock()
	}
}

func TestRefetchDoesNotDuplicateKnownWords(t *testing.T) {
	src := &fakeSource{words: []string{"glacier", "volcano", "carousel"}}
	m, code, _ := newLobby(t, src, 2, 3)
	if err := m.StartGame(context.Background(), code); err != nil {
		t.Fatalf("should be able to start game: %v", err)
	}
	if err := m.StartGame(context.Background(), code); err != nil {
		t.Fatalf("second start should succeed: %v", err)
	}
	g, _ := m.Get(code)
	seen := make(map[string]bool)
	for _, w := range g.WordsAvailable {
		if seen[w] {
			t.Fatalf("word %q duplicated in available pool", w)
		}
		seen[w] = true
	}
	if len(g.WordsAvailable) != 3 {
		t.Fatalf("expected 3 unique words, got %d", len(g.WordsAvailable))
	}
}

func TestWordPoolUnderflowSurfacesError(t *testing.T) {
	src := &fakeSource{words: nil} // provider has nothing usable
	m, code, _ := newLobby(t, src, 2, 3)
	if err := m.StartGame(context.Background(), code); err != nil {
		t.Fatalf("a short word batch is accepted at start: %v", err)
	}
	if _, err := m.StartSession(context.Background(), code); !errors.Is(err, ErrNoWordsLeft) {
		t.Fatalf("expected ErrNoWordsLeft, got %v", err)
	}
}

func TestCategoryChangeResetsWordEpoch(t *testing.T) {
	src := &fakeSource{words: manyWords()}
	m, code, tokens := newLobby(t, src, 2, 2)
	if err := m.StartGame(context.Background(), code); err != nil {
		t.Fatalf("should be able to start game: %v", err)
	}
	if _, err := m.StartSession(context.Background(), code); err != nil {
		t.Fatalf("should be able to start session: %v", err)
	}
	g, _ := m.Get(code)
	if len(g.WordsUsed) != 1 {
		t.Fatalf("expected 1 used word, got %d", len(g.WordsUsed))
	}

	// same category: the used set survives the new game
	if err := m.NewGame(code, tokens[0], 2, 60, ""); err != nil {
		t.Fatalf("should be able to start a new game: %v", err)
	}
	if len(g.WordsUsed) != 1 {
		t.Fatal("same-category new game must preserve the used-word set")
	}

	// category change: the epoch resets
	if err := m.NewGame(code, tokens[0], 2, 60, "animals"); err != nil {
		t.Fatalf("should be able to change category: %v", err)
	}
	if len(g.WordsUsed) != 0 || len(g.WordsAvailable) != 0 {
		t.Fatal("category change must reset both word pools")
	}
}
