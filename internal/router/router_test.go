package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/BerylCAtieno/loan-intelligence-api/internal/models"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/utils"
)

type stubPipeline struct{}

func (stubPipeline) AggregateFields(_ context.Context, id string) (*models.AggregatedFields, error) {
	return models.NewAggregatedFields(id), nil
}

func (stubPipeline) CheckDiscrepancies(_ context.Context, id string) (*models.DiscrepancyReport, error) {
	return &models.DiscrepancyReport{ApplicationID: id}, nil
}

func (stubPipeline) AnalyzeBanking(_ context.Context, id string) (*models.BankingAnalysis, error) {
	return &models.BankingAnalysis{DocumentID: id}, nil
}

func (stubPipeline) AnalyzeBankingBatch(context.Context, []string) *models.BatchBankingResult {
	return &models.BatchBankingResult{}
}

func (stubPipeline) NSFTrends(_ context.Context, id string) (*models.NSFTrendAnalysis, error) {
	return &models.NSFTrendAnalysis{DocumentID: id}, nil
}

func (stubPipeline) ScoreApplication(_ context.Context, id string) (*models.RiskScoreAnalysis, error) {
	return &models.RiskScoreAnalysis{ApplicationID: id, OverallScore: 4.2, RiskLevel: models.RiskMedium}, nil
}

type stubDocuments struct{}

func (stubDocuments) CreateApplication(_ context.Context, app *models.Application) (*models.Application, error) {
	return app, nil
}

func (stubDocuments) UploadDocument(context.Context, *models.UploadRequest) (*models.UploadResponse, error) {
	return &models.UploadResponse{ID: "doc-1"}, nil
}

func (stubDocuments) GetDocument(_ context.Context, id string) (*models.Document, error) {
	return &models.Document{ID: id}, nil
}

func TestRoutes(t *testing.T) {
	handler := NewRouter(stubDocuments{}, stubPipeline{}, 0, utils.NewNopLogger())

	tests := []struct {
		method string
		path   string
		body   string
		want   int
		expect string
	}{
		{http.MethodGet, "/api/v1/health", "", http.StatusOK, "healthy"},
		{http.MethodPost, "/api/v1/applications", `{"business_name": "Acme"}`, http.StatusCreated, "Acme"},
		{http.MethodGet, "/api/v1/documents/doc-7", "", http.StatusOK, "doc-7"},
		{http.MethodGet, "/api/v1/applications/app-1/fields", "", http.StatusOK, "consensusFields"},
		{http.MethodGet, "/api/v1/applications/app-1/discrepancies", "", http.StatusOK, "app-1"},
		{http.MethodGet, "/api/v1/applications/app-1/risk-score", "", http.StatusOK, `"riskLevel":"medium"`},
		{http.MethodPost, "/api/v1/documents/stmt-1/banking-analysis", "", http.StatusOK, "stmt-1"},
		{http.MethodGet, "/api/v1/documents/stmt-1/nsf-trends", "", http.StatusOK, "stmt-1"},
		{http.MethodPost, "/api/v1/banking-analysis/batch", `{"documentIds": ["a"]}`, http.StatusOK, "analyses"},
		{http.MethodGet, "/api/v1/documents/stmt-1/banking-analysis", "", http.StatusMethodNotAllowed, ""},
		{http.MethodGet, "/api/v1/unknown", "", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
			if tt.expect != "" && !strings.Contains(rec.Body.String(), tt.expect) {
				t.Errorf("body %s does not contain %q", rec.Body.String(), tt.expect)
			}
			if tt.want == http.StatusOK && rec.Header().Get("Access-Control-Allow-Origin") != "*" {
				t.Error("CORS middleware not applied")
			}
		})
	}
}
