package ai

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/smartclaim/intake/internal/models"
	"github.com/smartclaim/intake/internal/utils"
)

// The mock collaborators are deterministic fakes selected when a service URL
// is not configured. Outputs are derived from an FNV hash of the input.

type MockExtractor struct{}

func (MockExtractor) Extract(ctx context.Context, fileName string, data []byte) (Extraction, error) {
	if utf8.Valid(data) {
		return Extraction{Text: strings.TrimSpace(string(data))}, nil
	}
	return Extraction{Text: fmt.Sprintf("Binary document %s (%d bytes)", fileName, len(data))}, nil
}

type MockTranscriber struct{}

func (MockTranscriber) Transcribe(ctx context.Context, fileName string, data []byte) (models.Transcript, error) {
	conf := 0.8
	return models.Transcript{
		Text:       fmt.Sprintf("Voice note %s (%d bytes)", fileName, len(data)),
		Language:   "en",
		Confidence: &conf,
	}, nil
}

type MockVision struct{}

func (MockVision) AnalyzeImage(ctx context.Context, img ImageInput) (models.VisionResult, error) {
	h := utils.HashBytesToUint64(img.Data)
	severities := []models.Severity{models.SeverityLow, models.SeverityMedium, models.SeverityHigh, models.SeverityCritical}
	scenes := []string{"industrial", "office", "warehouse", "outdoor"}
	severity := severities[int(h%uint64(len(severities)))]

	return models.VisionResult{
		Summary:             fmt.Sprintf("Image %s shows a %s scene", img.FileName, scenes[int(h/7)%len(scenes)]),
		DetectedObjects:     []string{"equipment"},
		SceneType:           scenes[int(h/7)%len(scenes)],
		IssueDetected:       severity.Rank() >= models.SeverityHigh.Rank(),
		IssueHypotheses:     []models.IssueHypothesis{{Type: "maintenance", Confidence: 0.6}},
		SeverityHint:        severity,
		ImageQuality:        "clear",
		RequiresHumanReview: severity == models.SeverityCritical,
	}, nil
}

type MockRetriever struct{}

func (MockRetriever) Retrieve(ctx context.Context, query string, topK int) ([]string, error) {
	return nil, nil
}

var mockCategoryKeywords = []struct {
	category string
	words    []string
}{
	{models.CategorySafety, []string{"injury", "hazard", "fire", "unsafe", "ppe", "leak", "spill"}},
	{models.CategoryMaintenance, []string{"broken", "repair", "machine", "equipment", "failure", "pump"}},
	{models.CategoryQuality, []string{"defect", "quality", "scratch", "reject", "tolerance"}},
	{models.CategoryLogistics, []string{"delivery", "shipment", "inventory", "truck", "stock"}},
	{models.CategoryHR, []string{"harassment", "training", "colleague", "schedule", "conduct"}},
}

var mockDepartments = map[string]string{
	models.CategorySafety:      "Safety",
	models.CategoryMaintenance: "Maintenance",
	models.CategoryQuality:     "Quality",
	models.CategoryLogistics:   "Logistics",
	models.CategoryHR:          "Human Resources",
}

type MockClassifier struct{}

func (MockClassifier) Classify(ctx context.Context, req ClassifyRequest) (models.Classification, error) {
	text := strings.ToLower(req.Text)
	category := models.CategoryOther
	var keywords []string
	for _, entry := range mockCategoryKeywords {
		for _, w := range entry.words {
			if strings.Contains(text, w) {
				if category == models.CategoryOther {
					category = entry.category
				}
				keywords = append(keywords, w)
			}
		}
	}

	priority := models.PriorityMedium
	switch {
	case strings.Contains(text, "urgent") || strings.Contains(text, "fire") || strings.Contains(text, "injury"):
		priority = models.PriorityCritical
	case req.VisualSeverity != nil && req.VisualSeverity.Rank() >= models.SeverityHigh.Rank():
		priority = models.PriorityHigh
	}

	summary := req.Text
	if i := strings.IndexAny(summary, ".\n"); i > 0 {
		summary = summary[:i]
	}
	return models.Classification{
		Category:            category,
		Priority:            priority,
		Summary:             utils.Truncate(strings.TrimSpace(summary), 100),
		Confidence:          0.75,
		SuggestedDepartment: mockDepartments[category],
		Keywords:            keywords,
		Reasoning:           "keyword match",
	}, nil
}

var mockResolutionHours = map[string]float64{
	models.PriorityCritical: 4,
	models.PriorityHigh:     24,
	models.PriorityMedium:   72,
	models.PriorityLow:      168,
}

type MockSLAPredictor struct{}

func (MockSLAPredictor) Predict(ctx context.Context, req SLARequest) (models.SLAPrediction, error) {
	hours, ok := mockResolutionHours[req.Priority]
	if !ok {
		hours = 72
	}
	if req.RequiresHumanReview {
		hours *= 1.25
	}
	risk := "low"
	breach := 0.1
	if req.Priority == models.PriorityCritical || req.Priority == models.PriorityHigh {
		risk = "high"
		breach = 0.4
	}
	deadline := time.Now().UTC().Add(time.Duration(hours * float64(time.Hour)))
	return models.SLAPrediction{
		PredictedResolutionHours: hours,
		BreachProbability:        breach,
		RiskLevel:                risk,
		Deadline:                 &deadline,
		Factors:                  []models.SLAFactor{{Name: "priority", Impact: "negative", Weight: 0.5}},
	}, nil
}

type MockIndexer struct{}

func (MockIndexer) IndexTicket(ctx context.Context, ticketID string) error {
	return nil
}
