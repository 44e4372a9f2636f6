package words

import (
	"context"
	"math/rand"
	"strings"
)

// fallback pool used when no category is set or the generator is unreachable
var fallbackWords = []string{
	"lighthouse", "volcano", "submarine", "carousel", "avalanche",
	"telescope", "waterfall", "campfire", "labyrinth", "hurricane",
	"orchestra", "vineyard", "glacier", "treehouse", "fireworks",
	"scarecrow", "windmill", "aquarium", "hammock", "compass",
	"parachute", "tornado", "iceberg", "bonfire", "fountain",
	"drawbridge", "quicksand", "satellite", "snowstorm", "anchor",
}

// Static serves words from the built-in list, ignoring the category.
type Static struct {
	pool []string
}

func NewStatic() *Static {
	return &Static{pool: fallbackWords}
}

func (s *Static) Words(_ context.Context, _ string, exclude []string, count int) ([]string, error) {
	excluded := make(map[string]bool, len(exclude))
	for _, w := range exclude {
		excluded[strings.ToLower(w)] = true
	}
	candidates := make([]string, 0, len(s.pool))
	for _, w := range s.pool {
		if !excluded[strings.ToLower(w)] {
			candidates = append(candidates, w)
		}
	}
	rand.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })
	if count < len(candidates) {
		candidates = candidates[:count]
	}
	return candidates, nil
}
