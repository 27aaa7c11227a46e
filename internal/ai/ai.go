package ai

import (
	"context"

	"github.com/smartclaim/intake/internal/models"
)

type Extraction struct {
	Text string `json:"text"`
}

type Extractor interface {
	Extract(ctx context.Context, fileName string, data []byte) (Extraction, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, fileName string, data []byte) (models.Transcript, error)
}

// ImageMetadata is the submission context forwarded with every image.
type ImageMetadata struct {
	UserID        string `json:"user_id,omitempty"`
	Source        string `json:"source,omitempty"`
	ReportedIssue string `json:"reported_issue,omitempty"`
}

type ImageInput struct {
	FileName string
	MimeType string
	Data     []byte
	Metadata ImageMetadata
}

type VisionAnalyzer interface {
	AnalyzeImage(ctx context.Context, img ImageInput) (models.VisionResult, error)
}

type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]string, error)
}

type ClassifyRequest struct {
	Text              string
	UserID            string
	HasVisualEvidence bool
	VisualSeverity    *models.Severity
}

type Classifier interface {
	Classify(ctx context.Context, req ClassifyRequest) (models.Classification, error)
}

type SLARequest struct {
	Category            string           `json:"category"`
	Priority            string           `json:"priority"`
	DescriptionLength   int              `json:"description_length"`
	HasAttachments      bool             `json:"has_attachments"`
	HasVisualEvidence   bool             `json:"has_visual_evidence"`
	VisualSeverity      *models.Severity `json:"visual_severity"`
	SourceCount         int              `json:"source_count"`
	Confidence          float64          `json:"confidence_score"`
	RequiresHumanReview bool             `json:"requires_human_review"`
	Keywords            []string         `json:"keywords"`
}

type SLAPredictor interface {
	Predict(ctx context.Context, req SLARequest) (models.SLAPrediction, error)
}

type Indexer interface {
	IndexTicket(ctx context.Context, ticketID string) error
}

// Collaborators bundles every analysis service the intake pipeline talks to.
type Collaborators struct {
	Extractor   Extractor
	Transcriber Transcriber
	Vision      VisionAnalyzer
	Retriever   Retriever
	Classifier  Classifier
	SLA         SLAPredictor
	Indexer     Indexer
}
