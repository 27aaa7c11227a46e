package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/smartclaim/intake/internal/models"
)

// APIError is returned for non-2xx collaborator responses.
type APIError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s http %d: %s", e.Service, e.StatusCode, e.Body)
}

var errUnsuccessful = errors.New("collaborator reported failure")

func defaultClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: 90 * time.Second}
}

func postJSON(ctx context.Context, client *http.Client, service, url string, in any, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return do(client, service, req, out)
}

func postFile(ctx context.Context, client *http.Client, service, url, fileName string, data []byte, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", fileName)
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return do(client, service, req, out)
}

func do(client *http.Client, service string, req *http.Request, out any) error {
	resp, err := defaultClient(client).Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{Service: service, StatusCode: resp.StatusCode, Body: string(body)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s decode: %w", service, err)
	}
	return nil
}

func endpoint(base, path string) string {
	return strings.TrimRight(base, "/") + path
}

type HTTPExtractor struct {
	BaseURL string
	Client  *http.Client
}

func (h HTTPExtractor) Extract(ctx context.Context, fileName string, data []byte) (Extraction, error) {
	var r struct {
		Success bool   `json:"success"`
		Text    string `json:"text"`
	}
	if err := postFile(ctx, h.Client, "extractor", endpoint(h.BaseURL, "/extract"), fileName, data, &r); err != nil {
		return Extraction{}, err
	}
	if !r.Success {
		return Extraction{}, fmt.Errorf("extractor: %w", errUnsuccessful)
	}
	return Extraction{Text: r.Text}, nil
}

type HTTPTranscriber struct {
	BaseURL string
	Client  *http.Client
}

func (h HTTPTranscriber) Transcribe(ctx context.Context, fileName string, data []byte) (models.Transcript, error) {
	var r struct {
		Success    bool     `json:"success"`
		Text       string   `json:"text"`
		Language   string   `json:"language"`
		Confidence *float64 `json:"confidence"`
	}
	if err := postFile(ctx, h.Client, "transcriber", endpoint(h.BaseURL, "/transcribe"), fileName, data, &r); err != nil {
		return models.Transcript{}, err
	}
	if !r.Success {
		return models.Transcript{}, fmt.Errorf("transcriber: %w", errUnsuccessful)
	}
	return models.Transcript{Text: r.Text, Language: r.Language, Confidence: r.Confidence}, nil
}

type HTTPVision struct {
	BaseURL string
	Client  *http.Client
}

func (h HTTPVision) AnalyzeImage(ctx context.Context, img ImageInput) (models.VisionResult, error) {
	mime := img.MimeType
	if mime == "" {
		mime = "image/jpeg"
	}
	payload := struct {
		ImageURL string        `json:"image_url"`
		Metadata ImageMetadata `json:"metadata"`
	}{
		ImageURL: "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data),
		Metadata: img.Metadata,
	}

	var r struct {
		models.VisionResult
		Error string `json:"error"`
	}
	if err := postJSON(ctx, h.Client, "vision", endpoint(h.BaseURL, "/analyze"), payload, &r); err != nil {
		return models.VisionResult{}, err
	}
	if r.Error != "" {
		return models.VisionResult{}, fmt.Errorf("vision: %s", r.Error)
	}
	return r.VisionResult, nil
}

type HTTPRetriever struct {
	BaseURL string
	Client  *http.Client
}

type retrievalSource struct {
	TicketNumber   string  `json:"ticket_number"`
	Category       string  `json:"category"`
	ChunkType      string  `json:"chunk_type"`
	RelevanceScore float64 `json:"relevance_score"`
}

func (h HTTPRetriever) Retrieve(ctx context.Context, query string, topK int) ([]string, error) {
	payload := map[string]any{
		"query":           query,
		"user_context":    map[string]any{"user_id": "intake-pipeline", "role": "admin"},
		"include_sources": true,
		"rerank":          false,
		"top_k":           topK,
	}
	var r struct {
		Answer      string            `json:"answer"`
		Sources     []retrievalSource `json:"sources"`
		ContextUsed bool              `json:"context_used"`
	}
	if err := postJSON(ctx, h.Client, "retrieval", endpoint(h.BaseURL, "/query"), payload, &r); err != nil {
		return nil, err
	}
	if !r.ContextUsed {
		return nil, nil
	}
	return retrievalExcerpts(r.Answer, r.Sources, topK), nil
}

func retrievalExcerpts(answer string, sources []retrievalSource, topK int) []string {
	var out []string
	if s := strings.TrimSpace(answer); s != "" {
		out = append(out, s)
	}
	for i, src := range sources {
		if topK > 0 && i >= topK {
			break
		}
		if src.TicketNumber == "" {
			continue
		}
		out = append(out, fmt.Sprintf("Ticket %s (%s, relevance %.2f)", src.TicketNumber, src.Category, src.RelevanceScore))
	}
	return out
}

type HTTPClassifier struct {
	BaseURL string
	Client  *http.Client
}

func (h HTTPClassifier) Classify(ctx context.Context, req ClassifyRequest) (models.Classification, error) {
	hints := map[string]any{"has_visual_evidence": req.HasVisualEvidence}
	if req.VisualSeverity != nil {
		hints["visual_severity"] = string(*req.VisualSeverity)
	}
	payload := map[string]any{
		"text":    req.Text,
		"context": hints,
		"user_id": req.UserID,
	}
	var r struct {
		Category            string   `json:"category"`
		Priority            string   `json:"priority"`
		Summary             string   `json:"summary"`
		Confidence          float64  `json:"confidence"`
		SuggestedDepartment *string  `json:"suggested_department"`
		Keywords            []string `json:"keywords"`
		Reasoning           *string  `json:"reasoning"`
	}
	if err := postJSON(ctx, h.Client, "classifier", endpoint(h.BaseURL, "/classify"), payload, &r); err != nil {
		return models.Classification{}, err
	}
	if strings.TrimSpace(r.Category) == "" {
		return models.Classification{}, fmt.Errorf("classifier: response missing category")
	}
	c := models.Classification{
		Category:   r.Category,
		Priority:   r.Priority,
		Summary:    r.Summary,
		Confidence: r.Confidence,
		Keywords:   r.Keywords,
	}
	if r.SuggestedDepartment != nil {
		c.SuggestedDepartment = *r.SuggestedDepartment
	}
	if r.Reasoning != nil {
		c.Reasoning = *r.Reasoning
	}
	return c, nil
}

type HTTPSLAPredictor struct {
	BaseURL string
	Client  *http.Client
}

func (h HTTPSLAPredictor) Predict(ctx context.Context, req SLARequest) (models.SLAPrediction, error) {
	var r struct {
		PredictedResolutionHours float64            `json:"predicted_resolution_hours"`
		BreachProbability        float64            `json:"breach_probability"`
		RiskLevel                string             `json:"risk_level"`
		Factors                  []models.SLAFactor `json:"factors"`
		Deadline                 *string            `json:"sla_deadline"`
	}
	if err := postJSON(ctx, h.Client, "sla", endpoint(h.BaseURL, "/predict"), req, &r); err != nil {
		return models.SLAPrediction{}, err
	}
	p := models.SLAPrediction{
		PredictedResolutionHours: r.PredictedResolutionHours,
		BreachProbability:        r.BreachProbability,
		RiskLevel:                r.RiskLevel,
		Factors:                  r.Factors,
	}
	if r.Deadline != nil && *r.Deadline != "" {
		d, err := ParseDeadline(*r.Deadline)
		if err != nil {
			return models.SLAPrediction{}, fmt.Errorf("sla: %w", err)
		}
		p.Deadline = &d
	}
	return p, nil
}

var deadlineLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

// ParseDeadline accepts RFC3339 or a naive ISO timestamp, which is read as UTC.
func ParseDeadline(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized deadline %q", value)
}

type HTTPIndexer struct {
	BaseURL string
	Client  *http.Client
}

func (h HTTPIndexer) IndexTicket(ctx context.Context, ticketID string) error {
	var r struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := postJSON(ctx, h.Client, "index", endpoint(h.BaseURL, "/ingest/ticket"), map[string]string{"ticket_id": ticketID}, &r); err != nil {
		return err
	}
	if !r.Success {
		return fmt.Errorf("index: %s: %w", r.Message, errUnsuccessful)
	}
	return nil
}
