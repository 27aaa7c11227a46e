package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/smartclaim/intake/internal/ai"
	"github.com/smartclaim/intake/internal/config"
	"github.com/smartclaim/intake/internal/dispatch"
	"github.com/smartclaim/intake/internal/models"
)

type fakeStore struct {
	mu            sync.Mutex
	departments   []models.Department
	users         []models.User
	tickets       []models.Ticket
	attachments   []models.Attachment
	activities    []models.Activity
	notifications []models.Notification
	createErr     error
	notifyErr     error
	seq           int
}

func (s *fakeStore) CreateTicket(ctx context.Context, b models.TicketBundle) (models.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return models.Ticket{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return models.Ticket{}, s.createErr
	}
	s.seq++
	t := b.Ticket
	t.Number = fmt.Sprintf("CLM-%06d", s.seq)
	t.CreatedAt = time.Now().UTC()
	s.tickets = append(s.tickets, t)
	s.attachments = append(s.attachments, b.Attachments...)
	s.activities = append(s.activities, b.Activity)
	return t, nil
}

func (s *fakeStore) ListDepartments(ctx context.Context) ([]models.Department, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.departments, nil
}

func (s *fakeStore) ListDepartmentManagers(ctx context.Context, departmentID string) ([]models.User, error) {
	var out []models.User
	for _, u := range s.users {
		if u.Role == models.RoleDepartmentManager && u.DepartmentID != nil && *u.DepartmentID == departmentID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *fakeStore) GetUser(ctx context.Context, id string) (models.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return models.User{}, errors.New("not found")
}

func (s *fakeStore) InsertNotifications(ctx context.Context, notes []models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.notifyErr != nil {
		return s.notifyErr
	}
	s.notifications = append(s.notifications, notes...)
	return nil
}

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	fail    map[string]bool
}

func (m *memStorage) Put(ctx context.Context, fileName string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[fileName] {
		return "", errors.New("disk full")
	}
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	key := fmt.Sprintf("/files/%d-%s", len(m.objects), fileName)
	m.objects[key] = data
	return key, nil
}

// inlineDispatcher runs tasks synchronously and records their names.
type inlineDispatcher struct {
	mu    sync.Mutex
	names []string
	errs  []error
}

func (d *inlineDispatcher) Submit(task dispatch.Task) {
	err := task.Run(context.Background())
	d.mu.Lock()
	d.names = append(d.names, task.Name)
	d.errs = append(d.errs, err)
	d.mu.Unlock()
}

type stubClassifier struct {
	mu   sync.Mutex
	resp models.Classification
	err  error
	// block waits for context cancellation before returning.
	block bool
	// delay holds the response back regardless of the context.
	delay time.Duration
	reqs  []ai.ClassifyRequest
}

func (c *stubClassifier) Classify(ctx context.Context, req ai.ClassifyRequest) (models.Classification, error) {
	c.mu.Lock()
	c.reqs = append(c.reqs, req)
	c.mu.Unlock()
	if c.block {
		<-ctx.Done()
		return models.Classification{}, ctx.Err()
	}
	time.Sleep(c.delay)
	return c.resp, c.err
}

type stubVision struct {
	results map[string]models.VisionResult
	fail    map[string]bool
}

func (v stubVision) AnalyzeImage(ctx context.Context, img ai.ImageInput) (models.VisionResult, error) {
	if v.fail[img.FileName] {
		return models.VisionResult{}, errors.New("vision down")
	}
	return v.results[img.FileName], nil
}

// hangingVision and hangingRetriever never answer before their deadline.
type hangingVision struct{}

func (hangingVision) AnalyzeImage(ctx context.Context, img ai.ImageInput) (models.VisionResult, error) {
	<-ctx.Done()
	return models.VisionResult{}, ctx.Err()
}

type hangingRetriever struct{}

func (hangingRetriever) Retrieve(ctx context.Context, query string, topK int) ([]string, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type failingIndexer struct{}

func (failingIndexer) IndexTicket(ctx context.Context, ticketID string) error {
	return errors.New("index unavailable")
}

type failingSLA struct{}

func (failingSLA) Predict(ctx context.Context, req ai.SLARequest) (models.SLAPrediction, error) {
	return models.SLAPrediction{}, errors.New("sla down")
}

type countingIndexer struct {
	mu  sync.Mutex
	ids []string
}

func (i *countingIndexer) IndexTicket(ctx context.Context, ticketID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.ids = append(i.ids, ticketID)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	keys   []string
	events []any
}

func (p *recordingPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	p.events = append(p.events, payload)
	return nil
}

type harness struct {
	store      *fakeStore
	storage    *memStorage
	classifier *stubClassifier
	indexer    *countingIndexer
	publisher  *recordingPublisher
	dispatcher *inlineDispatcher
	collab     ai.Collaborators
	cfg        config.Config
}

func newHarness() *harness {
	h := &harness{
		store:      &fakeStore{},
		storage:    &memStorage{},
		classifier: &stubClassifier{},
		indexer:    &countingIndexer{},
		publisher:  &recordingPublisher{},
		dispatcher: &inlineDispatcher{},
	}
	h.collab = ai.Collaborators{
		Extractor:   ai.MockExtractor{},
		Transcriber: ai.MockTranscriber{},
		Vision:      ai.MockVision{},
		Retriever:   ai.MockRetriever{},
		Classifier:  h.classifier,
		SLA:         ai.MockSLAPredictor{},
		Indexer:     h.indexer,
	}
	h.cfg = config.Config{
		RetrievalTopK: 3,
		Timeouts:      config.Timeouts{AI: time.Second, Vision: time.Second, Index: time.Second, Store: time.Second},
	}
	return h
}

func (h *harness) pipeline() *Pipeline {
	return NewPipeline(h.cfg, Deps{
		Store:      h.store,
		Storage:    h.storage,
		AI:         h.collab,
		Routing:    DefaultRoutingTable(),
		Publisher:  h.publisher,
		Dispatcher: h.dispatcher,
		Logger:     zerolog.Nop(),
	})
}

func strPtr(s string) *string { return &s }
