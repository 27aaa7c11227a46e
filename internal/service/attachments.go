package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/smartclaim/intake/internal/ai"
	"github.com/smartclaim/intake/internal/models"
)

// AttachmentProcessor analyzes evidence items concurrently. A failed call
// leaves its item unanalyzed and never affects siblings.
type AttachmentProcessor struct {
	Extractor     ai.Extractor
	Transcriber   ai.Transcriber
	Vision        ai.VisionAnalyzer
	Timeout       time.Duration
	VisionTimeout time.Duration
	Logger        zerolog.Logger
}

// Process returns a copy of items annotated with every analysis that succeeded.
// It returns only after all calls have finished.
func (p AttachmentProcessor) Process(ctx context.Context, items []models.EvidenceItem, meta ai.ImageMetadata) []models.EvidenceItem {
	out := make([]models.EvidenceItem, len(items))
	copy(out, items)

	// Plain Group: a failure must not cancel the other calls.
	var g errgroup.Group
	for i := range out {
		item := &out[i]
		g.Go(func() error {
			p.analyze(ctx, item, meta)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (p AttachmentProcessor) analyze(ctx context.Context, item *models.EvidenceItem, meta ai.ImageMetadata) {
	log := p.Logger.With().Str("file", item.SourceName).Str("kind", string(item.Kind)).Logger()
	switch item.Kind {
	case models.KindDocument:
		cctx, cancel := withTimeout(ctx, p.Timeout)
		defer cancel()
		res, err := p.Extractor.Extract(cctx, item.SourceName, item.Data)
		if err != nil {
			log.Warn().Err(err).Msg("text extraction failed")
			return
		}
		item.ExtractedText = res.Text

	case models.KindImage:
		cctx, cancel := withTimeout(ctx, p.VisionTimeout)
		defer cancel()
		res, err := p.Vision.AnalyzeImage(cctx, ai.ImageInput{
			FileName: item.SourceName,
			MimeType: item.SourceMimeType,
			Data:     item.Data,
			Metadata: meta,
		})
		if err != nil {
			log.Warn().Err(err).Msg("vision analysis failed")
			return
		}
		if !res.SeverityHint.Valid() {
			res.SeverityHint = ""
		}
		item.Vision = &res

	case models.KindAudio:
		cctx, cancel := withTimeout(ctx, p.Timeout)
		defer cancel()
		res, err := p.Transcriber.Transcribe(cctx, item.SourceName, item.Data)
		if err != nil {
			log.Warn().Err(err).Msg("transcription failed")
			return
		}
		item.Transcript = &res
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
