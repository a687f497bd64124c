package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/BerylCAtieno/loan-intelligence-api/internal/models"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/utils"
)

type fakePipeline struct {
	batchIDs []string
}

func (f *fakePipeline) AggregateFields(_ context.Context, id string) (*models.AggregatedFields, error) {
	if id != "app-1" {
		return nil, fmt.Errorf("application %s: %w", id, utils.ErrNotFound)
	}
	agg := models.NewAggregatedFields(id)
	agg.ConsensusFields["Business Name"] = "Acme Inc"
	return agg, nil
}

func (f *fakePipeline) CheckDiscrepancies(_ context.Context, id string) (*models.DiscrepancyReport, error) {
	return &models.DiscrepancyReport{ApplicationID: id, OverallRisk: models.SeverityLow}, nil
}

func (f *fakePipeline) AnalyzeBanking(_ context.Context, id string) (*models.BankingAnalysis, error) {
	if id == "scan" {
		return nil, fmt.Errorf("document %s: %w", id, utils.ErrExtractionUnavailable)
	}
	return &models.BankingAnalysis{DocumentID: id}, nil
}

func (f *fakePipeline) AnalyzeBankingBatch(_ context.Context, ids []string) *models.BatchBankingResult {
	f.batchIDs = ids
	return &models.BatchBankingResult{Analyses: []models.BankingAnalysis{}, Errors: []models.BatchItemError{}}
}

func (f *fakePipeline) NSFTrends(_ context.Context, id string) (*models.NSFTrendAnalysis, error) {
	return &models.NSFTrendAnalysis{DocumentID: id}, nil
}

func (f *fakePipeline) ScoreApplication(_ context.Context, id string) (*models.RiskScoreAnalysis, error) {
	return nil, fmt.Errorf("database is locked")
}

type fakeDocumentService struct {
	uploaded *models.UploadRequest
}

func (f *fakeDocumentService) CreateApplication(_ context.Context, app *models.Application) (*models.Application, error) {
	if app.BusinessName == "" {
		return nil, utils.NewBadRequestError("Application requires a business or legal name")
	}
	app.ID = "app-1"
	return app, nil
}

func (f *fakeDocumentService) UploadDocument(_ context.Context, req *models.UploadRequest) (*models.UploadResponse, error) {
	f.uploaded = req
	return &models.UploadResponse{ID: "doc-1", Filename: req.Filename, FileSize: int64(len(req.File)), CreatedAt: time.Now()}, nil
}

func (f *fakeDocumentService) GetDocument(_ context.Context, id string) (*models.Document, error) {
	return nil, utils.NewNotFoundError("Document not found")
}

func withID(r *http.Request, id string) *http.Request {
	return mux.SetURLVars(r, map[string]string{"id": id})
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body is not JSON: %q", rec.Body.String())
	}
	return body["error"]
}

func TestPipelineHandlerStatuses(t *testing.T) {
	h := NewPipelineHandler(&fakePipeline{}, nil)

	tests := []struct {
		name    string
		handler http.HandlerFunc
		id      string
		want    int
	}{
		{"fields", h.AggregateFields(), "app-1", http.StatusOK},
		{"fields for unknown application", h.AggregateFields(), "nope", http.StatusNotFound},
		{"discrepancies", h.CheckDiscrepancies(), "app-1", http.StatusOK},
		{"banking", h.AnalyzeBanking(), "stmt-1", http.StatusOK},
		{"banking on unreadable document", h.AnalyzeBanking(), "scan", http.StatusUnprocessableEntity},
		{"nsf", h.NSFTrends(), "stmt-1", http.StatusOK},
		{"score with storage failure", h.ScoreApplication(), "app-1", http.StatusInternalServerError},
		{"missing id", h.ScoreApplication(), " ", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handler(rec, withID(httptest.NewRequest(http.MethodGet, "/", nil), tt.id))

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
		})
	}
}

func TestInternalErrorsHideDetails(t *testing.T) {
	h := NewPipelineHandler(&fakePipeline{}, nil)
	rec := httptest.NewRecorder()
	h.ScoreApplication()(rec, withID(httptest.NewRequest(http.MethodGet, "/", nil), "app-1"))

	if msg := decodeError(t, rec); strings.Contains(msg, "locked") {
		t.Errorf("internal error leaked: %q", msg)
	}
}

func TestAnalyzeBankingBatch(t *testing.T) {
	pipeline := &fakePipeline{}
	h := NewPipelineHandler(pipeline, nil)

	rec := httptest.NewRecorder()
	h.AnalyzeBankingBatch(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"documentIds": ["a", " ", "b"]}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Join(pipeline.batchIDs, ",") != "a,b" {
		t.Errorf("batch ids = %v", pipeline.batchIDs)
	}

	for _, body := range []string{`{"documentIds": []}`, `not json`} {
		rec := httptest.NewRecorder()
		h.AnalyzeBankingBatch(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestCreateApplicationHandler(t *testing.T) {
	h := NewDocumentHandler(&fakeDocumentService{}, 0, nil)

	rec := httptest.NewRecorder()
	h.CreateApplication(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"business_name": "Acme Inc", "amount_requested": 250000}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var app models.Application
	if err := json.Unmarshal(rec.Body.Bytes(), &app); err != nil || app.ID != "app-1" || app.AmountRequested != 250000 {
		t.Errorf("response = %+v, %v", app, err)
	}

	rec = httptest.NewRecorder()
	h.CreateApplication(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"business_name": "Acme", "unknown": 1}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown field: status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.CreateApplication(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount_requested": 1}`)))
	if rec.Code != http.StatusBadRequest || !strings.Contains(decodeError(t, rec), "business or legal name") {
		t.Errorf("validation: status = %d body %s", rec.Code, rec.Body.String())
	}
}

func multipartBody(t *testing.T, filename string, content []byte, documentType string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if documentType != "" {
		if err := mw.WriteField("document_type", documentType); err != nil {
			t.Fatal(err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write(content); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func TestUploadDocumentHandler(t *testing.T) {
	svc := &fakeDocumentService{}
	h := NewDocumentHandler(svc, 1<<20, nil)

	body, contentType := multipartBody(t, "statement.txt", []byte("01/05/2024 Deposit 2,000.00 7,000.00"), "bank_statement")
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.UploadDocument(rec, withID(req, "app-1"))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if svc.uploaded.ApplicationID != "app-1" || svc.uploaded.DocumentType != "bank_statement" || svc.uploaded.Filename != "statement.txt" {
		t.Errorf("upload request = %+v", svc.uploaded)
	}

	tests := []struct {
		name     string
		filename string
		content  []byte
	}{
		{"no file", "", nil},
		{"empty file", "empty.txt", []byte{}},
		{"too large", "big.txt", bytes.Repeat([]byte("a"), 2<<20)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, contentType := multipartBody(t, tt.filename, tt.content, "")
			req := httptest.NewRequest(http.MethodPost, "/", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			h.UploadDocument(rec, withID(req, "app-1"))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	h := NewDocumentHandler(&fakeDocumentService{}, 0, nil)
	rec := httptest.NewRecorder()
	h.GetDocument(rec, withID(httptest.NewRequest(http.MethodGet, "/", nil), "doc-9"))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "Document not found" {
		t.Errorf("error = %q", msg)
	}
}
