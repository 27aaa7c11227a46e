package models

import (
	"encoding/json"
	"time"
)

type TicketStatus string

const (
	StatusNew           TicketStatus = "new"
	StatusInProgress    TicketStatus = "in_progress"
	StatusPendingReview TicketStatus = "pending_review"
	StatusResolved      TicketStatus = "resolved"
	StatusClosed        TicketStatus = "closed"
	StatusRejected      TicketStatus = "rejected"
)

var statusRank = map[TicketStatus]int{
	StatusNew:           0,
	StatusInProgress:    1,
	StatusPendingReview: 2,
	StatusResolved:      3,
	StatusClosed:        4,
}

// CanTransition reports whether a ticket may move from one status to another.
// Statuses only move forward; rejected is reachable from any open status and is terminal.
func CanTransition(from, to TicketStatus) bool {
	if from == StatusRejected || from == StatusClosed {
		return false
	}
	if to == StatusRejected {
		_, ok := statusRank[from]
		return ok
	}
	fr, ok := statusRank[from]
	if !ok {
		return false
	}
	tr, ok := statusRank[to]
	if !ok {
		return false
	}
	return tr > fr
}

type InputType string

const (
	InputText     InputType = "text"
	InputVoice    InputType = "voice"
	InputFile     InputType = "file"
	InputCombined InputType = "combined"
)

const (
	CategorySafety      = "safety"
	CategoryQuality     = "quality"
	CategoryMaintenance = "maintenance"
	CategoryLogistics   = "logistics"
	CategoryHR          = "hr"
	CategoryOther       = "other"
)

const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities low<medium<high<critical. Unknown values rank -1.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	default:
		return -1
	}
}

func (s Severity) Valid() bool {
	return s.Rank() >= 0
}

type EvidenceKind string

const (
	KindDocument EvidenceKind = "document"
	KindImage    EvidenceKind = "image"
	KindAudio    EvidenceKind = "audio"
)

type IssueHypothesis struct {
	Type       string  `json:"issue_type"`
	Confidence float64 `json:"confidence"`
}

type VisionResult struct {
	Summary             string            `json:"visual_summary"`
	DetectedObjects     []string          `json:"detected_objects"`
	SceneType           string            `json:"scene_type"`
	IssueDetected       bool              `json:"potential_issue_detected"`
	IssueHypotheses     []IssueHypothesis `json:"issue_hypotheses"`
	SeverityHint        Severity          `json:"visual_severity_hint"`
	ImageQuality        string            `json:"image_quality"`
	RequiresHumanReview bool              `json:"requires_human_review"`
}

type Transcript struct {
	Text       string   `json:"text"`
	Language   string   `json:"language,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// EvidenceItem is one analyzable unit of a submission. Data holds the raw bytes
// for analysis and is never persisted.
type EvidenceItem struct {
	Kind            EvidenceKind  `json:"kind"`
	SourceName      string        `json:"source_name"`
	SourceSize      int64         `json:"source_size"`
	SourceMimeType  string        `json:"source_mime_type"`
	StorageLocation string        `json:"storage_location"`
	ExtractedText   string        `json:"extracted_text,omitempty"`
	Vision          *VisionResult `json:"vision,omitempty"`
	Transcript      *Transcript   `json:"transcript,omitempty"`
	Data            []byte        `json:"-"`
}

// Analyzed reports whether any analysis contributed to the item.
func (e EvidenceItem) Analyzed() bool {
	switch e.Kind {
	case KindDocument:
		return e.ExtractedText != ""
	case KindImage:
		return e.Vision != nil
	case KindAudio:
		return e.Transcript != nil && e.Transcript.Text != ""
	}
	return false
}

type Classification struct {
	Category            string   `json:"category"`
	Priority            string   `json:"priority"`
	Summary             string   `json:"summary"`
	Confidence          float64  `json:"confidence"`
	SuggestedDepartment string   `json:"suggested_department,omitempty"`
	Keywords            []string `json:"keywords"`
	Reasoning           string   `json:"reasoning,omitempty"`
}

type SLAFactor struct {
	Name   string  `json:"name"`
	Impact string  `json:"impact"`
	Weight float64 `json:"weight"`
}

type SLAPrediction struct {
	PredictedResolutionHours float64     `json:"predicted_resolution_hours"`
	BreachProbability        float64     `json:"breach_probability"`
	RiskLevel                string      `json:"risk_level"`
	Deadline                 *time.Time  `json:"deadline,omitempty"`
	Factors                  []SLAFactor `json:"factors"`
}

type Ticket struct {
	ID                 string          `json:"id"`
	Number             string          `json:"number"`
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	Category           string          `json:"category"`
	Priority           string          `json:"priority"`
	Status             TicketStatus    `json:"status"`
	CreatedBy          string          `json:"created_by"`
	AssignedDepartment *string         `json:"assigned_department"`
	AssignedUser       *string         `json:"assigned_user"`
	InputType          InputType       `json:"input_type"`
	OriginalContent    json.RawMessage `json:"original_content"`
	ConfidenceScore    float64         `json:"confidence_score"`
	AISummary          string          `json:"ai_summary"`
	SLADeadline        *time.Time      `json:"sla_deadline"`
	CreatedAt          time.Time       `json:"created_at"`
	ResolvedAt         *time.Time      `json:"resolved_at"`
	ClosedAt           *time.Time      `json:"closed_at"`
}

type Attachment struct {
	ID           string    `json:"id"`
	TicketID     string    `json:"ticket_id"`
	FileName     string    `json:"file_name"`
	FileType     string    `json:"file_type"`
	FileSize     int64     `json:"file_size"`
	StorageURL   string    `json:"storage_url"`
	AnalysisBlob string    `json:"analysis"`
	CreatedAt    time.Time `json:"created_at"`
}

type Activity struct {
	ID          string    `json:"id"`
	TicketID    string    `json:"ticket_id"`
	ActorID     string    `json:"actor_id"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type Notification struct {
	ID          string    `json:"id"`
	RecipientID string    `json:"recipient_id"`
	TicketID    string    `json:"ticket_id"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	Type        string    `json:"type"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

type Department struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

const RoleDepartmentManager = "department_manager"

type User struct {
	ID           string  `json:"id"`
	DisplayName  string  `json:"display_name"`
	Role         string  `json:"role"`
	DepartmentID *string `json:"department_id"`
}

// TicketBundle is everything written by the single atomic intake transaction.
type TicketBundle struct {
	Ticket      Ticket
	Attachments []Attachment
	Activity    Activity
}
