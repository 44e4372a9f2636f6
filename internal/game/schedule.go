package game

import (
	"math/rand"
	"strings"
)

// buildSchedule precomputes the impostor for every round. With enough members
// each round gets a distinct impostor; with more rounds than members everyone
// appears once and the extra slots repeat members in shuffled passes, so the
// appearance counts differ by at most one. The final shuffle keeps the
// repeats from clustering at the end.
func buildSchedule(memberIDs []string, rounds int) []string {
	if rounds <= 0 || len(memberIDs) == 0 {
		return nil
	}

	var schedule []string
	for len(schedule) < rounds {
		pass := append([]string{}, memberIDs...)
		rand.Shuffle(len(pass), func(i, j int) { pass[i], pass[j] = pass[j], pass[i] })
		if missing := rounds - len(schedule); missing < len(pass) {
			pass = pass[:missing]
		}
		schedule = append(schedule, pass...)
	}
	rand.Shuffle(len(schedule), func(i, j int) { schedule[i], schedule[j] = schedule[j], schedule[i] })
	return schedule
}

// drawWord removes one word uniformly at random from the available pool and
// records it as used. Caller must hold g.mu and check the pool is non-empty.
func (g *Game) drawWord() string {
	i := rand.Intn(len(g.WordsAvailable))
	word := g.WordsAvailable[i]
	g.WordsAvailable = append(g.WordsAvailable[:i], g.WordsAvailable[i+1:]...)
	g.WordsUsed = append(g.WordsUsed, word)
	return word
}

// mergeWords folds freshly fetched words into the available pool, dropping
// anything already known so the available and used sets stay disjoint.
func (g *Game) mergeWords(fetched []string) {
	known := make(map[string]bool, len(g.WordsAvailable)+len(g.WordsUsed))
	for _, w := range g.WordsAvailable {
		known[strings.ToLower(w)] = true
	}
	for _, w := range g.WordsUsed {
		known[strings.ToLower(w)] = true
	}
	for _, w := range fetched {
		w = strings.TrimSpace(w)
		if w == "" || known[strings.ToLower(w)] {
			continue
		}
		known[strings.ToLower(w)] = true
		g.WordsAvailable = append(g.WordsAvailable, w)
	}
}

// knownWords is the exclusion list sent to the word source. Caller holds g.mu.
func (g *Game) knownWords() []string {
	out := make([]string, 0, len(g.WordsUsed)+len(g.WordsAvailable))
	out = append(out, g.WordsUsed...)
	out = append(out, g.WordsAvailable...)
	return out
}
