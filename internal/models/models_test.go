package models

import "testing"

func TestCanTransitionForwardOnly(t *testing.T) {
	if !CanTransition(StatusNew, StatusInProgress) {
		t.Fatalf("expected new -> in_progress")
	}
	if !CanTransition(StatusInProgress, StatusResolved) {
		t.Fatalf("expected in_progress -> resolved")
	}
	if CanTransition(StatusResolved, StatusNew) {
		t.Fatalf("expected resolved -> new to be rejected")
	}
	if CanTransition(StatusNew, StatusNew) {
		t.Fatalf("expected self transition to be rejected")
	}
}

func TestCanTransitionRejected(t *testing.T) {
	if !CanTransition(StatusPendingReview, StatusRejected) {
		t.Fatalf("expected pending_review -> rejected")
	}
	if CanTransition(StatusClosed, StatusRejected) {
		t.Fatalf("closed is terminal")
	}
	if CanTransition(StatusRejected, StatusInProgress) {
		t.Fatalf("rejected is terminal")
	}
}

func TestSeverityRank(t *testing.T) {
	order := []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
	for i := 1; i < len(order); i++ {
		if order[i].Rank() <= order[i-1].Rank() {
			t.Fatalf("expected %s > %s", order[i], order[i-1])
		}
	}
	if Severity("extreme").Valid() {
		t.Fatalf("unknown severity must be invalid")
	}
}

func TestEvidenceAnalyzed(t *testing.T) {
	doc := EvidenceItem{Kind: KindDocument}
	if doc.Analyzed() {
		t.Fatalf("document without text is not analyzed")
	}
	doc.ExtractedText = "hello"
	if !doc.Analyzed() {
		t.Fatalf("document with text is analyzed")
	}
	audio := EvidenceItem{Kind: KindAudio, Transcript: &Transcript{}}
	if audio.Analyzed() {
		t.Fatalf("empty transcript is not a contribution")
	}
}
