package words

import (
	"context"
	"strings"
	"testing"
)

func TestStaticRespectsExclusions(t *testing.T) {
	s := NewStatic()
	exclude := []string{"Lighthouse", "volcano"}
	got, err := s.Words(context.Background(), "", exclude, 100)
	if err != nil {
		t.Fatalf("static source should not fail: %v", err)
	}
	for _, w := range got {
		for _, ex := range exclude {
			if strings.EqualFold(w, ex) {
				t.Fatalf("excluded word %q was returned", w)
			}
		}
	}
	if len(got) != len(fallbackWords)-2 {
		t.Fatalf("expected %d words, got %d", len(fallbackWords)-2, len(got))
	}
}

func TestStaticClampsToCount(t *testing.T) {
	s := NewStatic()
	got, err := s.Words(context.Background(), "", nil, 5)
	if err != nil {
		t.Fatalf("static source should not fail: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 words, got %d", len(got))
	}
}

type failingProvider struct{ calls int }

func (f *failingProvider) Words(context.Context, string, []string, int) ([]string, error) {
	f.calls++
	return nil, context.DeadlineExceeded
}

func TestSourceFallsBackOnGeneratorFailure(t *testing.T) {
	gen := &failingProvider{}
	src := NewSource(gen)
	got, err := src.Words(context.Background(), "volcanoes", nil, 3)
	if err != nil {
		t.Fatalf("generator failure must fall back, not abort: %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("generator should have been consulted once, got %d", gen.calls)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 fallback words, got %d", len(got))
	}
}

func TestSourceSkipsGeneratorWithoutCategory(t *testing.T) {
	gen := &failingProvider{}
	src := NewSource(gen)
	if _, err := src.Words(context.Background(), "", nil, 3); err != nil {
		t.Fatalf("fallback path should not fail: %v", err)
	}
	if gen.calls != 0 {
		t.Fatal("empty category must map straight to the fallback list")
	}
}
