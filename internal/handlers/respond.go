package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/BerylCAtieno/loan-intelligence-api/internal/utils"
)

// responder writes JSON bodies and maps errors onto AppError statuses.
type responder struct {
	logger *utils.Logger
}

func (h responder) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", "error", err)
	}
}

func (h responder) respondError(w http.ResponseWriter, err error) {
	appErr := utils.ToAppError(err)
	if appErr.StatusCode >= http.StatusInternalServerError {
		h.logger.Error("Request error", "status", appErr.StatusCode, "error", err)
	} else {
		h.logger.Warn("Request error", "status", appErr.StatusCode, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": appErr.Message})
}
