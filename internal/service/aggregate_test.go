package service

import (
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/smartclaim/intake/internal/models"
)

func TestAggregateNarrativeOrder(t *testing.T) {
	items := []models.EvidenceItem{
		{Kind: models.KindDocument, SourceName: "report.pdf", ExtractedText: "Line 3 stopped"},
		{Kind: models.KindImage, SourceName: "broken.jpg"},
		{Kind: models.KindImage, SourceName: "belt.jpg", Vision: &models.VisionResult{
			Summary: "Torn belt", DetectedObjects: []string{"belt", "roller"}, SceneType: "industrial", SeverityHint: models.SeverityHigh,
		}},
		{Kind: models.KindAudio, SourceName: "voice.webm", Transcript: &models.Transcript{Text: "it snapped", Language: "en"}},
	}
	agg := AggregateEvidence("  Conveyor failure  ", items)

	want := strings.Join([]string{
		"Conveyor failure",
		"[Document: report.pdf]\nLine 3 stopped",
		"[Image: belt.jpg]\nTorn belt\nObjects: belt, roller\nScene: industrial\nSeverity: high",
		"[Voice transcript (en)]\nit snapped",
	}, "\n\n")
	if agg.Narrative != want {
		t.Fatalf("unexpected narrative:\n%s\nwant:\n%s", agg.Narrative, want)
	}
	if agg.SourceCount != 4 {
		t.Fatalf("expected 4 sources, got %d", agg.SourceCount)
	}
	if agg.VisualSeverity == nil || *agg.VisualSeverity != models.SeverityHigh || !agg.HasVisualEvidence {
		t.Fatalf("unexpected visual aggregate %+v", agg)
	}
}

func TestAggregateIgnoresUnknownSeverity(t *testing.T) {
	items := []models.EvidenceItem{
		{Kind: models.KindImage, SourceName: "a", Vision: &models.VisionResult{SeverityHint: "catastrophic"}},
	}
	agg := AggregateEvidence("", items)
	if agg.VisualSeverity != nil {
		t.Fatalf("expected absent severity, got %s", *agg.VisualSeverity)
	}
	if !agg.HasVisualEvidence {
		t.Fatalf("analyzed image still counts as visual evidence")
	}
}

var severities = []models.Severity{models.SeverityLow, models.SeverityMedium, models.SeverityHigh, models.SeverityCritical}

func TestAggregateSeverityIsMaxAndReviewIsOr(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 8).Draw(t, "n")
		var items []models.EvidenceItem
		var analyzedSev []models.Severity
		anyReview := false
		for i := 0; i < n; i++ {
			analyzed := rapid.Bool().Draw(t, "analyzed")
			sev := rapid.SampledFrom(severities).Draw(t, "severity")
			review := rapid.Bool().Draw(t, "review")
			item := models.EvidenceItem{Kind: models.KindImage, SourceName: "img"}
			if analyzed {
				item.Vision = &models.VisionResult{SeverityHint: sev, RequiresHumanReview: review}
				analyzedSev = append(analyzedSev, sev)
				anyReview = anyReview || review
			}
			items = append(items, item)
		}

		agg := AggregateEvidence("desc", items)

		if len(analyzedSev) == 0 {
			if agg.VisualSeverity != nil {
				t.Fatalf("expected absent severity")
			}
		} else {
			want := analyzedSev[0]
			for _, s := range analyzedSev[1:] {
				if s.Rank() > want.Rank() {
					want = s
				}
			}
			if agg.VisualSeverity == nil || *agg.VisualSeverity != want {
				t.Fatalf("expected max %s, got %v", want, agg.VisualSeverity)
			}
		}
		if agg.RequiresReview != anyReview {
			t.Fatalf("expected review %v, got %v", anyReview, agg.RequiresReview)
		}
		if agg.HasVisualEvidence != (len(analyzedSev) > 0) {
			t.Fatalf("visual evidence flag mismatch")
		}
	})
}
