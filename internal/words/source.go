package words

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Source picks between the generator and the static list. An empty category
// always maps to the static list; a generator failure falls back to it rather
// than failing the game start.
type Source struct {
	generator Provider
	fallback  Provider
}

func NewSource(generator Provider) *Source {
	return &Source{generator: generator, fallback: NewStatic()}
}

func (s *Source) Words(ctx context.Context, category string, exclude []string, count int) ([]string, error) {
	if category == "" || s.generator == nil {
		return s.fallback.Words(ctx, category, exclude, count)
	}
	words, err := s.generator.Words(ctx, category, exclude, count)
	if err != nil {
		log.Warn().Err(err).Str("category", category).Msg("word generator failed, using fallback list")
		return s.fallback.Words(ctx, category, exclude, count)
	}
	return words, nil
}
