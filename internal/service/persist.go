package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/smartclaim/intake/internal/models"
	"github.com/smartclaim/intake/internal/utils"
)

const (
	titleRunes      = 100
	untitledClaim   = "Untitled claim"
	ActivityCreated = "created"
)

// ErrPersist marks the only fatal failure of an intake run.
var ErrPersist = errors.New("ticket persistence failed")

type persistError struct {
	cause error
}

func (e persistError) Error() string        { return ErrPersist.Error() + ": " + e.cause.Error() }
func (e persistError) Unwrap() error        { return e.cause }
func (e persistError) Is(target error) bool { return target == ErrPersist }

// TicketWriter performs the single atomic intake write.
type TicketWriter interface {
	CreateTicket(ctx context.Context, b models.TicketBundle) (models.Ticket, error)
}

type snapshotFile struct {
	Name string              `json:"name"`
	Kind models.EvidenceKind `json:"kind"`
	Size int64               `json:"size"`
	Mime string              `json:"mime"`
}

type snapshot struct {
	Description string         `json:"description"`
	Attachments []snapshotFile `json:"attachments"`
	Voice       *snapshotFile  `json:"voice"`
}

// originalSnapshot records what the submitter sent, before any analysis.
func originalSnapshot(sub Submission) json.RawMessage {
	s := snapshot{Description: sub.Description, Attachments: []snapshotFile{}}
	for _, f := range sub.Files {
		s.Attachments = append(s.Attachments, snapshotFile{
			Name: f.FileName, Kind: KindOf(f.FileName, f.MimeType), Size: int64(len(f.Data)), Mime: f.MimeType,
		})
	}
	if sub.Voice != nil {
		s.Voice = &snapshotFile{
			Name: sub.Voice.FileName, Kind: models.KindAudio, Size: int64(len(sub.Voice.Data)), Mime: sub.Voice.MimeType,
		}
	}
	raw, _ := json.Marshal(s)
	return raw
}

// analysisBlob is the persisted analysis of one item; empty when analysis failed.
func analysisBlob(item models.EvidenceItem) string {
	switch item.Kind {
	case models.KindDocument:
		return item.ExtractedText
	case models.KindAudio:
		if item.Transcript != nil {
			return item.Transcript.Text
		}
	case models.KindImage:
		if item.Vision != nil {
			raw, err := json.Marshal(item.Vision)
			if err == nil {
				return string(raw)
			}
		}
	}
	return ""
}

func ticketTitle(c models.Classification, narrative string) string {
	if c.Summary != "" {
		return c.Summary
	}
	if t := strings.TrimSpace(utils.Truncate(narrative, titleRunes)); t != "" {
		return t
	}
	return untitledClaim
}

type draft struct {
	sub            Submission
	items          []models.EvidenceItem
	narrative      string
	classification models.Classification
	resolution     Resolution
	sla            *models.SLAPrediction
}

func buildBundle(d draft) models.TicketBundle {
	ticketID := uuid.NewString()
	t := models.Ticket{
		ID:              ticketID,
		Title:           ticketTitle(d.classification, d.narrative),
		Description:     d.narrative,
		Category:        d.classification.Category,
		Priority:        d.classification.Priority,
		Status:          models.StatusNew,
		CreatedBy:       d.sub.SubmitterID,
		InputType:       d.sub.InputType(),
		OriginalContent: originalSnapshot(d.sub),
		ConfidenceScore: d.classification.Confidence,
		AISummary:       d.classification.Summary,
	}
	if d.resolution.Department != nil {
		id := d.resolution.Department.ID
		t.AssignedDepartment = &id
	}
	if d.sla != nil && d.sla.Deadline != nil {
		deadline := d.sla.Deadline.UTC()
		t.SLADeadline = &deadline
	}

	attachments := make([]models.Attachment, 0, len(d.items))
	for _, item := range d.items {
		attachments = append(attachments, models.Attachment{
			ID:           uuid.NewString(),
			TicketID:     ticketID,
			FileName:     item.SourceName,
			FileType:     item.SourceMimeType,
			FileSize:     item.SourceSize,
			StorageURL:   item.StorageLocation,
			AnalysisBlob: analysisBlob(item),
		})
	}

	return models.TicketBundle{
		Ticket:      t,
		Attachments: attachments,
		Activity: models.Activity{
			ID:          uuid.NewString(),
			TicketID:    ticketID,
			ActorID:     d.sub.SubmitterID,
			Type:        ActivityCreated,
			Description: "Ticket created from " + string(t.InputType) + " submission",
		},
	}
}

func persist(ctx context.Context, w TicketWriter, b models.TicketBundle) (models.Ticket, error) {
	t, err := w.CreateTicket(ctx, b)
	if err != nil {
		return models.Ticket{}, persistError{cause: err}
	}
	return t, nil
}
