package game

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ExportRound appends a human-readable summary of a finalized round to a text
// file. Purely a convenience log for hosts; live game state is never restored
// from it.
func (m *Manager) ExportRound(code string, res *Result, filename string) error {
	g, err := m.Get(code)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	names := make(map[string]string, len(g.Players))
	for _, p := range g.Players {
		names[p.ID] = p.Name
	}
	name := func(id string) string {
		if n, ok := names[id]; ok {
			return n
		}
		return "Unknown"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Game %s - round finished %s\n", g.Code, time.Now().Format("2006-01-02 15:04:05")))
	if g.Session != nil {
		sb.WriteString(fmt.Sprintf("Word: %q, impostor: %s\n", g.Session.SecretWord, name(g.Session.ImpostorID)))
	}
	if res.WasImpostor {
		sb.WriteString(fmt.Sprintf("Voted out: %s (the impostor was caught)\n", name(res.VotedOutID)))
	} else {
		sb.WriteString(fmt.Sprintf("Voted out: %s (the impostor escaped)\n", name(res.VotedOutID)))
	}

	sb.WriteString("Scores:\n")
	type score struct {
		name   string
		points int
	}
	scores := make([]score, 0, len(res.Scores))
	for id, pts := range res.Scores {
		scores = append(scores, score{name: name(id), points: pts})
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].points > scores[j].points })
	for _, s := range scores {
		sb.WriteString(fmt.Sprintf("- %s: %d\n", s.name, s.points))
	}
	if res.GameOver {
		sb.WriteString(strings.Repeat("=", 40) + "\n")
	}
	sb.WriteString("\n")

	if _, err := file.WriteString(sb.String()); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}
	return nil
}
