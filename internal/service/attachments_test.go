package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/smartclaim/intake/internal/ai"
	"github.com/smartclaim/intake/internal/models"
)

// gatedExtractor blocks every call until all expected calls are in flight.
type gatedExtractor struct {
	wg   *sync.WaitGroup
	fail map[string]bool
}

func (g gatedExtractor) Extract(ctx context.Context, fileName string, data []byte) (ai.Extraction, error) {
	g.wg.Done()
	done := make(chan struct{})
	go func() { g.wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-ctx.Done():
		return ai.Extraction{}, ctx.Err()
	}
	if g.fail[fileName] {
		return ai.Extraction{}, errors.New("extractor 500")
	}
	return ai.Extraction{Text: "text of " + fileName}, nil
}

func TestProcessRunsCallsConcurrentlyAndIsolatesFailures(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(3)
	p := AttachmentProcessor{
		Extractor:   gatedExtractor{wg: &wg, fail: map[string]bool{"b.pdf": true}},
		Transcriber: ai.MockTranscriber{},
		Vision:      ai.MockVision{},
		Timeout:     2 * time.Second,
		Logger:      zerolog.Nop(),
	}
	items := []models.EvidenceItem{
		{Kind: models.KindDocument, SourceName: "a.pdf"},
		{Kind: models.KindDocument, SourceName: "b.pdf"},
		{Kind: models.KindDocument, SourceName: "c.pdf"},
	}

	out := p.Process(context.Background(), items, ai.ImageMetadata{})

	if out[0].ExtractedText != "text of a.pdf" || out[2].ExtractedText != "text of c.pdf" {
		t.Fatalf("sibling calls lost: %+v", out)
	}
	if out[1].ExtractedText != "" {
		t.Fatalf("failed item should stay unanalyzed")
	}
	if items[0].ExtractedText != "" {
		t.Fatalf("input items must not be mutated")
	}
}

func TestProcessDropsInvalidSeverityHint(t *testing.T) {
	p := AttachmentProcessor{
		Vision: stubVision{results: map[string]models.VisionResult{"x.jpg": {Summary: "s", SeverityHint: "extreme"}}},
		Logger: zerolog.Nop(),
	}
	out := p.Process(context.Background(), []models.EvidenceItem{{Kind: models.KindImage, SourceName: "x.jpg"}}, ai.ImageMetadata{})
	if out[0].Vision == nil || out[0].Vision.SeverityHint != "" {
		t.Fatalf("expected vision kept with empty hint, got %+v", out[0].Vision)
	}
}
