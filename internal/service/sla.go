package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/smartclaim/intake/internal/ai"
	"github.com/smartclaim/intake/internal/models"
)

type SLAStage struct {
	Predictor ai.SLAPredictor
	Timeout   time.Duration
	Logger    zerolog.Logger
}

// Predict returns nil when the predictor fails; the ticket then has no deadline.
func (s SLAStage) Predict(ctx context.Context, req ai.SLARequest) *models.SLAPrediction {
	cctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()
	pred, err := s.Predictor.Predict(cctx, req)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("sla prediction failed")
		return nil
	}
	return &pred
}

func buildSLARequest(c models.Classification, agg Aggregate, narrative string, itemCount int) ai.SLARequest {
	keywords := c.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	return ai.SLARequest{
		Category:            c.Category,
		Priority:            c.Priority,
		DescriptionLength:   len([]rune(narrative)),
		HasAttachments:      itemCount > 0,
		HasVisualEvidence:   agg.HasVisualEvidence,
		VisualSeverity:      agg.VisualSeverity,
		SourceCount:         agg.SourceCount,
		Confidence:          c.Confidence,
		RequiresHumanReview: agg.RequiresReview,
		Keywords:            keywords,
	}
}
