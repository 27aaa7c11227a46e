package service

import (
	"fmt"
	"strings"

	"github.com/smartclaim/intake/internal/models"
)

// Aggregate is the merged view of a submission's evidence.
type Aggregate struct {
	Narrative         string
	VisualSeverity    *models.Severity
	RequiresReview    bool
	HasVisualEvidence bool
	// SourceCount counts the description plus every analyzed item.
	SourceCount int
}

// AggregateEvidence builds the composite narrative (description, then one
// section per analyzed item in order) and folds the image signals.
func AggregateEvidence(description string, items []models.EvidenceItem) Aggregate {
	var agg Aggregate
	var sections []string
	if d := strings.TrimSpace(description); d != "" {
		sections = append(sections, d)
		agg.SourceCount++
	}

	for _, item := range items {
		if !item.Analyzed() {
			continue
		}
		agg.SourceCount++
		switch item.Kind {
		case models.KindDocument:
			sections = append(sections, fmt.Sprintf("[Document: %s]\n%s", item.SourceName, strings.TrimSpace(item.ExtractedText)))
		case models.KindImage:
			sections = append(sections, imageSection(item.SourceName, item.Vision))
			agg.HasVisualEvidence = true
			agg.RequiresReview = agg.RequiresReview || item.Vision.RequiresHumanReview
			agg.VisualSeverity = maxSeverity(agg.VisualSeverity, item.Vision.SeverityHint)
		case models.KindAudio:
			header := "[Voice transcript]"
			if item.Transcript.Language != "" {
				header = fmt.Sprintf("[Voice transcript (%s)]", item.Transcript.Language)
			}
			sections = append(sections, header+"\n"+strings.TrimSpace(item.Transcript.Text))
		}
	}

	agg.Narrative = strings.Join(sections, "\n\n")
	return agg
}

func imageSection(name string, v *models.VisionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[Image: %s]\n%s", name, strings.TrimSpace(v.Summary))
	if len(v.DetectedObjects) > 0 {
		b.WriteString("\nObjects: " + strings.Join(v.DetectedObjects, ", "))
	}
	if v.SceneType != "" {
		b.WriteString("\nScene: " + v.SceneType)
	}
	if v.SeverityHint.Valid() {
		b.WriteString("\nSeverity: " + string(v.SeverityHint))
	}
	return b.String()
}

// maxSeverity ignores hints outside the known scale.
func maxSeverity(cur *models.Severity, hint models.Severity) *models.Severity {
	if !hint.Valid() {
		return cur
	}
	if cur == nil || hint.Rank() > cur.Rank() {
		h := hint
		return &h
	}
	return cur
}
