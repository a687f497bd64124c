package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/BerylCAtieno/loan-intelligence-api/internal/analyzer"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/models"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/utils"
)

type fakeStore struct {
	mu      sync.Mutex
	apps    map[string]*models.Application
	docs    []models.Document
	saved   map[string]any
	listErr error
	saveErr error
}

func newFakeStore(apps ...*models.Application) *fakeStore {
	s := &fakeStore{apps: map[string]*models.Application{}, saved: map[string]any{}}
	for _, a := range apps {
		s.apps[a.ID] = a
	}
	return s
}

func (s *fakeStore) addDocument(doc models.Document) {
	s.docs = append(s.docs, doc)
}

func (s *fakeStore) GetApplication(_ context.Context, id string) (*models.Application, error) {
	app, ok := s.apps[id]
	if !ok {
		return nil, fmt.Errorf("application %s: %w", id, utils.ErrNotFound)
	}
	return app, nil
}

func (s *fakeStore) ListDocuments(_ context.Context, applicationID string) ([]models.Document, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []models.Document
	for _, d := range s.docs {
		if d.ApplicationID == applicationID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *fakeStore) GetDocument(_ context.Context, id string) (*models.Document, error) {
	for i := range s.docs {
		if s.docs[i].ID == id {
			doc := s.docs[i]
			return &doc, nil
		}
	}
	return nil, fmt.Errorf("document %s: %w", id, utils.ErrNotFound)
}

func (s *fakeStore) SaveAnalysis(_ context.Context, documentID, key string, blob any) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[documentID+"/"+key] = blob
	return nil
}

func (s *fakeStore) savedAnalysis(documentID, key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.saved[documentID+"/"+key]
	return v, ok
}

// fakeExtractor serves text by document id.
type fakeExtractor struct {
	texts map[string]string
	errs  map[string]error
}

func (e *fakeExtractor) ExtractText(_ context.Context, doc *models.Document) (string, error) {
	if err, ok := e.errs[doc.ID]; ok {
		return "", err
	}
	text, ok := e.texts[doc.ID]
	if !ok {
		return "", fmt.Errorf("no text for %s: %w", doc.ID, utils.ErrExtractionUnavailable)
	}
	return text, nil
}

// fakeInferencer answers by task with raw JSON, or fails.
type fakeInferencer struct {
	mu        sync.Mutex
	responses map[string]string
	err       error
	calls     []string
}

func (f *fakeInferencer) Infer(_ context.Context, req analyzer.Request, out any) error {
	f.mu.Lock()
	f.calls = append(f.calls, req.Task)
	f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	raw, ok := f.responses[req.Task]
	if !ok {
		return fmt.Errorf("no response for %s: %w", req.Task, utils.ErrInferenceUnavailable)
	}
	return json.Unmarshal([]byte(raw), out)
}

func (f *fakeInferencer) called(task string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == task {
			n++
		}
	}
	return n
}

// staticFields is a FieldSource keyed by document id.
type staticFields struct {
	fields map[string][]models.ExtractedField
	errs   map[string]error
}

func (s staticFields) Fields(_ context.Context, doc *models.Document) ([]models.ExtractedField, error) {
	if err, ok := s.errs[doc.ID]; ok {
		return nil, err
	}
	return s.fields[doc.ID], nil
}

func field(label, value string, confidence float64, method models.ExtractionMethod) models.ExtractedField {
	return models.ExtractedField{Label: label, Value: value, Confidence: confidence, Method: method}
}

func floatPtr(v float64) *float64 {
	return &v
}
