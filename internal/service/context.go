package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/smartclaim/intake/internal/ai"
	"github.com/smartclaim/intake/internal/utils"
)

const (
	retrievalQueryRunes = 500
	excerptRunes        = 300
	contextHeader       = "[Relevant context]"
)

// ContextAugmenter appends related historical context to a narrative.
type ContextAugmenter struct {
	Retriever ai.Retriever
	TopK      int
	Timeout   time.Duration
	Logger    zerolog.Logger
}

// Augment never fails: on error or an empty result the narrative is returned unchanged.
func (a ContextAugmenter) Augment(ctx context.Context, narrative string) string {
	query := strings.TrimSpace(utils.Truncate(narrative, retrievalQueryRunes))
	if query == "" || a.Retriever == nil {
		return narrative
	}
	topK := a.TopK
	if topK <= 0 {
		topK = 3
	}

	cctx, cancel := withTimeout(ctx, a.Timeout)
	defer cancel()
	excerpts, err := a.Retriever.Retrieve(cctx, query, topK)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("context retrieval failed")
		return narrative
	}

	var lines []string
	for _, e := range excerpts {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		lines = append(lines, "- "+utils.Truncate(e, excerptRunes))
	}
	if len(lines) == 0 {
		return narrative
	}
	block := contextHeader + "\n" + strings.Join(lines, "\n")
	return narrative + "\n\n" + block
}
