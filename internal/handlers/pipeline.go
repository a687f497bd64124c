package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/BerylCAtieno/loan-intelligence-api/internal/models"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/services"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/utils"
)

const maxBatchDocuments = 50

// PipelineService is the part of services.Pipeline the HTTP layer needs.
type PipelineService interface {
	AggregateFields(ctx context.Context, applicationID string) (*models.AggregatedFields, error)
	CheckDiscrepancies(ctx context.Context, applicationID string) (*models.DiscrepancyReport, error)
	AnalyzeBanking(ctx context.Context, documentID string) (*models.BankingAnalysis, error)
	AnalyzeBankingBatch(ctx context.Context, documentIDs []string) *models.BatchBankingResult
	NSFTrends(ctx context.Context, documentID string) (*models.NSFTrendAnalysis, error)
	ScoreApplication(ctx context.Context, applicationID string) (*models.RiskScoreAnalysis, error)
}

var _ PipelineService = (*services.Pipeline)(nil)

type PipelineHandler struct {
	responder
	pipeline PipelineService
}

func NewPipelineHandler(pipeline PipelineService, logger *utils.Logger) *PipelineHandler {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &PipelineHandler{responder: responder{logger: logger}, pipeline: pipeline}
}

// byID adapts a pipeline call keyed by the {id} route variable into a handler.
func byID[T any](h *PipelineHandler, label string, call func(ctx context.Context, id string) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(mux.Vars(r)["id"])
		if id == "" {
			h.respondError(w, utils.NewBadRequestError(label+" ID is required"))
			return
		}

		result, err := call(r.Context(), id)
		if err != nil {
			h.respondError(w, err)
			return
		}
		h.respondJSON(w, http.StatusOK, result)
	}
}

func (h *PipelineHandler) AggregateFields() http.HandlerFunc {
	return byID(h, "Application", h.pipeline.AggregateFields)
}

func (h *PipelineHandler) CheckDiscrepancies() http.HandlerFunc {
	return byID(h, "Application", h.pipeline.CheckDiscrepancies)
}

func (h *PipelineHandler) ScoreApplication() http.HandlerFunc {
	return byID(h, "Application", h.pipeline.ScoreApplication)
}

func (h *PipelineHandler) AnalyzeBanking() http.HandlerFunc {
	return byID(h, "Document", h.pipeline.AnalyzeBanking)
}

func (h *PipelineHandler) NSFTrends() http.HandlerFunc {
	return byID(h, "Document", h.pipeline.NSFTrends)
}

type batchRequest struct {
	DocumentIDs []string `json:"documentIds"`
}

func (h *PipelineHandler) AnalyzeBankingBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		h.respondError(w, utils.NewBadRequestError("Invalid batch payload"))
		return
	}

	ids := make([]string, 0, len(req.DocumentIDs))
	for _, id := range req.DocumentIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	switch {
	case len(ids) == 0:
		h.respondError(w, utils.NewBadRequestError("documentIds must list at least one document"))
		return
	case len(ids) > maxBatchDocuments:
		h.respondError(w, utils.NewBadRequestError("Too many documents in one batch"))
		return
	}

	h.respondJSON(w, http.StatusOK, h.pipeline.AnalyzeBankingBatch(r.Context(), ids))
}
