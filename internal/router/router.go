package router

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/BerylCAtieno/loan-intelligence-api/internal/handlers"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/middleware"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/services"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/utils"
)

func NewRouter(docService services.DocumentService, pipeline handlers.PipelineService, maxFileSize int64, logger *utils.Logger) http.Handler {
	r := mux.NewRouter()

	// Middlewares
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS())
	r.Use(middleware.Recovery(logger))

	docHandler := handlers.NewDocumentHandler(docService, maxFileSize, logger)
	pipeHandler := handlers.NewPipelineHandler(pipeline, logger)

	api := r.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	// Ingest
	api.HandleFunc("/applications", docHandler.CreateApplication).Methods(http.MethodPost)
	api.HandleFunc("/applications/{id}/documents", docHandler.UploadDocument).Methods(http.MethodPost)
	api.HandleFunc("/documents/{id}", docHandler.GetDocument).Methods(http.MethodGet)

	// Application analyses
	api.HandleFunc("/applications/{id}/fields", pipeHandler.AggregateFields()).Methods(http.MethodGet)
	api.HandleFunc("/applications/{id}/discrepancies", pipeHandler.CheckDiscrepancies()).Methods(http.MethodGet)
	api.HandleFunc("/applications/{id}/risk-score", pipeHandler.ScoreApplication()).Methods(http.MethodGet)

	// Statement analyses
	api.HandleFunc("/documents/{id}/banking-analysis", pipeHandler.AnalyzeBanking()).Methods(http.MethodPost)
	api.HandleFunc("/documents/{id}/nsf-trends", pipeHandler.NSFTrends()).Methods(http.MethodGet)
	api.HandleFunc("/banking-analysis/batch", pipeHandler.AnalyzeBankingBatch).Methods(http.MethodPost)

	return r
}
