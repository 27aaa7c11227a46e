package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

type stubRetriever struct {
	excerpts []string
	err      error
	query    string
	topK     int
}

func (r *stubRetriever) Retrieve(ctx context.Context, query string, topK int) ([]string, error) {
	r.query, r.topK = query, topK
	return r.excerpts, r.err
}

func TestAugmentAppendsTruncatedContext(t *testing.T) {
	r := &stubRetriever{excerpts: []string{strings.Repeat("x", 400), "  ", "short"}}
	a := ContextAugmenter{Retriever: r, TopK: 2, Logger: zerolog.Nop()}
	narrative := strings.Repeat("n", 800)

	out := a.Augment(context.Background(), narrative)

	if utf8.RuneCountInString(r.query) != 500 || r.topK != 2 {
		t.Fatalf("unexpected query length %d / topK %d", len(r.query), r.topK)
	}
	want := narrative + "\n\n[Relevant context]\n- " + strings.Repeat("x", 300) + "\n- short"
	if out != want {
		t.Fatalf("unexpected augmented narrative tail %q", out[len(narrative):])
	}
}

func TestAugmentLeavesNarrativeOnFailure(t *testing.T) {
	for _, r := range []*stubRetriever{{err: errors.New("rag down")}, {}} {
		a := ContextAugmenter{Retriever: r, Logger: zerolog.Nop()}
		if out := a.Augment(context.Background(), "story"); out != "story" {
			t.Fatalf("expected unchanged narrative, got %q", out)
		}
	}
}
