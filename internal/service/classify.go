package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/smartclaim/intake/internal/ai"
	"github.com/smartclaim/intake/internal/models"
)

const defaultConfidence = 0.5

// DefaultClassification substitutes for a failed classifier call.
func DefaultClassification() models.Classification {
	return models.Classification{
		Category:   models.CategoryOther,
		Priority:   models.PriorityMedium,
		Confidence: defaultConfidence,
		Keywords:   []string{},
	}
}

var (
	knownCategories = map[string]bool{
		models.CategorySafety: true, models.CategoryQuality: true, models.CategoryMaintenance: true,
		models.CategoryLogistics: true, models.CategoryHR: true, models.CategoryOther: true,
	}
	knownPriorities = map[string]bool{
		models.PriorityLow: true, models.PriorityMedium: true, models.PriorityHigh: true, models.PriorityCritical: true,
	}
)

// NormalizeClassification maps a raw classifier answer onto the known value sets.
func NormalizeClassification(c models.Classification) models.Classification {
	c.Category = strings.ToLower(strings.TrimSpace(c.Category))
	if !knownCategories[c.Category] {
		c.Category = models.CategoryOther
	}
	c.Priority = strings.ToLower(strings.TrimSpace(c.Priority))
	if !knownPriorities[c.Priority] {
		c.Priority = models.PriorityMedium
	}
	switch {
	case c.Confidence < 0 || math.IsNaN(c.Confidence):
		c.Confidence = 0
	case c.Confidence > 1:
		c.Confidence = 1
	}
	c.Summary = strings.TrimSpace(c.Summary)
	c.SuggestedDepartment = strings.TrimSpace(c.SuggestedDepartment)
	if c.Keywords == nil {
		c.Keywords = []string{}
	}
	return c
}

type ClassifierStage struct {
	Classifier ai.Classifier
	Timeout    time.Duration
	Logger     zerolog.Logger
}

// Classify reports fallback=true when the default was substituted.
func (s ClassifierStage) Classify(ctx context.Context, req ai.ClassifyRequest) (c models.Classification, fallback bool) {
	cctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()
	raw, err := s.Classifier.Classify(cctx, req)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("classification failed, using default")
		return DefaultClassification(), true
	}
	return NormalizeClassification(raw), false
}
