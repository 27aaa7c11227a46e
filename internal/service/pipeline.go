package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/smartclaim/intake/internal/ai"
	"github.com/smartclaim/intake/internal/config"
	"github.com/smartclaim/intake/internal/dispatch"
	"github.com/smartclaim/intake/internal/models"
	"github.com/smartclaim/intake/internal/mq"
	"github.com/smartclaim/intake/internal/storage"
	"github.com/smartclaim/intake/internal/utils"
)

const (
	EventTicketCreated = "ticket.created"
	reportedIssueRunes = 500
	imageSource        = "claim_intake"
)

// ErrEmptySubmission is returned for a submission with no text, files or voice.
var ErrEmptySubmission = errors.New("submission has no description, files or voice")

// RecordStore is the persistence surface the pipeline needs.
type RecordStore interface {
	TicketWriter
	NotificationStore
	ListDepartments(ctx context.Context) ([]models.Department, error)
}

// TaskSubmitter runs post-commit work off the request path.
type TaskSubmitter interface {
	Submit(task dispatch.Task)
}

type Deps struct {
	Store      RecordStore
	Storage    storage.Store
	AI         ai.Collaborators
	Routing    RoutingTable
	Publisher  mq.Publisher
	Dispatcher TaskSubmitter
	Logger     zerolog.Logger
}

// Pipeline runs one submission through the intake stages:
// collect, analyze, aggregate, augment, classify, route, predict, persist,
// then hands notification, indexing and the created event to the dispatcher.
type Pipeline struct {
	store        RecordStore
	collector    Collector
	processor    AttachmentProcessor
	augmenter    ContextAugmenter
	classifier   ClassifierStage
	sla          SLAStage
	notifier     Notifier
	routing      RoutingTable
	indexer      ai.Indexer
	publisher    mq.Publisher
	dispatcher   TaskSubmitter
	indexTimeout time.Duration
	storeTimeout time.Duration
	logger       zerolog.Logger
}

func NewPipeline(cfg config.Config, deps Deps) *Pipeline {
	routing := deps.Routing
	if routing == nil {
		routing = DefaultRoutingTable()
	}
	logger := deps.Logger.With().Str("component", "intake").Logger()
	stage := func(name string) zerolog.Logger {
		return logger.With().Str("stage", name).Logger()
	}
	return &Pipeline{
		store:     deps.Store,
		collector: Collector{Storage: deps.Storage, Logger: stage("collect")},
		processor: AttachmentProcessor{
			Extractor:     deps.AI.Extractor,
			Transcriber:   deps.AI.Transcriber,
			Vision:        deps.AI.Vision,
			Timeout:       cfg.Timeouts.AI,
			VisionTimeout: cfg.Timeouts.Vision,
			Logger:        stage("analyze"),
		},
		augmenter:    ContextAugmenter{Retriever: deps.AI.Retriever, TopK: cfg.RetrievalTopK, Timeout: cfg.Timeouts.AI, Logger: stage("augment")},
		classifier:   ClassifierStage{Classifier: deps.AI.Classifier, Timeout: cfg.Timeouts.AI, Logger: stage("classify")},
		sla:          SLAStage{Predictor: deps.AI.SLA, Timeout: cfg.Timeouts.AI, Logger: stage("sla")},
		notifier:     Notifier{Store: deps.Store, Logger: stage("notify")},
		routing:      routing,
		indexer:      deps.AI.Indexer,
		publisher:    deps.Publisher,
		dispatcher:   deps.Dispatcher,
		indexTimeout: cfg.Timeouts.Index,
		storeTimeout: cfg.Timeouts.Store,
		logger:       logger,
	}
}

// Result is what a successful run reports back to the submitter.
type Result struct {
	Ticket                 models.Ticket         `json:"ticket"`
	Classification         models.Classification `json:"classification"`
	ClassificationFallback bool                  `json:"classification_fallback"`
	RoutingStage           ResolutionStage       `json:"routing_stage"`
	SLA                    *models.SLAPrediction `json:"sla"`
	VisualSeverity         *models.Severity      `json:"visual_severity"`
	RequiresReview         bool                  `json:"requires_human_review"`
	Warnings               []string              `json:"warnings"`
}

// Submit runs the pipeline. The only error besides ErrEmptySubmission wraps
// ErrPersist; every collaborator failure degrades instead.
func (p *Pipeline) Submit(ctx context.Context, sub Submission) (Result, error) {
	if sub.Empty() {
		return Result{}, ErrEmptySubmission
	}
	start := time.Now()
	log := p.logger.With().Str("submitter", sub.SubmitterID).Logger()

	items, warnings := p.collector.Collect(ctx, sub)

	items = p.processor.Process(ctx, items, ai.ImageMetadata{
		UserID:        sub.SubmitterID,
		Source:        imageSource,
		ReportedIssue: utils.Truncate(sub.Description, reportedIssueRunes),
	})
	for _, item := range items {
		if !item.Analyzed() {
			warnings = append(warnings, "analysis unavailable: "+item.SourceName)
		}
	}

	agg := AggregateEvidence(sub.Description, items)

	narrative := p.augmenter.Augment(ctx, agg.Narrative)

	classification, fallback := p.classifier.Classify(ctx, ai.ClassifyRequest{
		Text:              narrative,
		UserID:            sub.SubmitterID,
		HasVisualEvidence: agg.HasVisualEvidence,
		VisualSeverity:    agg.VisualSeverity,
	})
	if fallback {
		warnings = append(warnings, "classification unavailable, defaults applied")
	}

	resolution := p.route(ctx, classification)

	// No deadline without a real classification.
	var prediction *models.SLAPrediction
	if !fallback {
		prediction = p.sla.Predict(ctx, buildSLARequest(classification, agg, narrative, len(items)))
	}
	if prediction == nil {
		warnings = append(warnings, "sla prediction unavailable")
	}

	bundle := buildBundle(draft{
		sub:            sub,
		items:          items,
		narrative:      narrative,
		classification: classification,
		resolution:     resolution,
		sla:            prediction,
	})
	sctx, cancel := p.storeContext(ctx)
	ticket, err := persist(sctx, p.store, bundle)
	cancel()
	if err != nil {
		log.Error().Err(err).Msg("ticket persistence failed")
		return Result{}, err
	}

	p.afterCommit(ticket)

	log.Info().
		Str("ticket", ticket.Number).
		Str("category", ticket.Category).
		Str("priority", ticket.Priority).
		Str("routing_stage", string(resolution.Stage)).
		Bool("assigned", ticket.AssignedDepartment != nil).
		Bool("deadline", ticket.SLADeadline != nil).
		Int("evidence", len(items)).
		Bool("classification_fallback", fallback).
		Dur("elapsed", time.Since(start)).
		Msg("ticket created")

	if warnings == nil {
		warnings = []string{}
	}
	return Result{
		Ticket:                 ticket,
		Classification:         classification,
		ClassificationFallback: fallback,
		RoutingStage:           resolution.Stage,
		SLA:                    prediction,
		VisualSeverity:         agg.VisualSeverity,
		RequiresReview:         agg.RequiresReview,
		Warnings:               warnings,
	}, nil
}

// storeContext keeps request values but drops the request deadline, which the
// collaborator stages may already have spent.
func (p *Pipeline) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return withTimeout(context.WithoutCancel(ctx), p.storeTimeout)
}

func (p *Pipeline) route(ctx context.Context, c models.Classification) Resolution {
	sctx, cancel := p.storeContext(ctx)
	defer cancel()
	departments, err := p.store.ListDepartments(sctx)
	if err != nil {
		p.logger.Warn().Err(err).Msg("department lookup failed, ticket stays unassigned")
		return Resolution{Stage: StageNone}
	}
	return ResolveDepartment(c.SuggestedDepartment, c.Category, departments, p.routing)
}

// TicketCreatedEvent is published once per committed ticket.
type TicketCreatedEvent struct {
	TicketID   string    `json:"ticket_id"`
	Number     string    `json:"number"`
	Category   string    `json:"category"`
	Priority   string    `json:"priority"`
	Department *string   `json:"department"`
	CreatedAt  time.Time `json:"created_at"`
}

// afterCommit enqueues the side effects of a committed ticket. Each runs once.
func (p *Pipeline) afterCommit(t models.Ticket) {
	if p.dispatcher == nil {
		return
	}
	if t.AssignedDepartment != nil {
		p.dispatcher.Submit(dispatch.Task{Name: "notify:" + t.Number, Run: func(ctx context.Context) error {
			cctx, cancel := withTimeout(ctx, p.indexTimeout)
			defer cancel()
			return p.notifier.Fanout(cctx, t)
		}})
	}
	p.Reindex(t.ID)
	if p.publisher != nil {
		evt := TicketCreatedEvent{
			TicketID:   t.ID,
			Number:     t.Number,
			Category:   t.Category,
			Priority:   t.Priority,
			Department: t.AssignedDepartment,
			CreatedAt:  t.CreatedAt,
		}
		p.dispatcher.Submit(dispatch.Task{Name: "event:" + t.Number, Run: func(ctx context.Context) error {
			cctx, cancel := withTimeout(ctx, p.indexTimeout)
			defer cancel()
			return p.publisher.Publish(cctx, EventTicketCreated, evt)
		}})
	}
}

// Reindex schedules an index sync for one ticket.
func (p *Pipeline) Reindex(ticketID string) {
	if p.dispatcher == nil || p.indexer == nil {
		return
	}
	p.dispatcher.Submit(dispatch.Task{Name: "index:" + ticketID, Run: func(ctx context.Context) error {
		cctx, cancel := withTimeout(ctx, p.indexTimeout)
		defer cancel()
		return p.indexer.IndexTicket(cctx, ticketID)
	}})
}
