package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/BerylCAtieno/loan-intelligence-api/internal/models"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/services"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/utils"
)

// DefaultMaxFileSize applies when the handler is built without a limit.
const DefaultMaxFileSize = 10 << 20

type DocumentHandler struct {
	responder
	service     services.DocumentService
	maxFileSize int64
}

func NewDocumentHandler(service services.DocumentService, maxFileSize int64, logger *utils.Logger) *DocumentHandler {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &DocumentHandler{
		responder:   responder{logger: logger},
		service:     service,
		maxFileSize: maxFileSize,
	}
}

func (h *DocumentHandler) CreateApplication(w http.ResponseWriter, r *http.Request) {
	var app models.Application
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&app); err != nil {
		h.respondError(w, utils.NewBadRequestError("Invalid application payload"))
		return
	}

	created, err := h.service.CreateApplication(r.Context(), &app)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, created)
}

func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	applicationID := mux.Vars(r)["id"]
	if applicationID == "" {
		h.respondError(w, utils.NewBadRequestError("Application ID is required"))
		return
	}

	tooLarge := utils.NewBadRequestError(fmt.Sprintf("File size exceeds %dMB limit", h.maxFileSize>>20))

	// Reject oversized requests before reading the body.
	if r.ContentLength > h.maxFileSize {
		h.respondError(w, tooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize)

	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
			h.respondError(w, tooLarge)
			return
		}
		h.respondError(w, utils.NewBadRequestError("Invalid form data"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, utils.NewBadRequestError("No file provided"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxFileSize+1))
	if err != nil {
		h.respondError(w, utils.NewInternalError("Failed to read file"))
		return
	}
	if int64(len(data)) > h.maxFileSize {
		h.respondError(w, tooLarge)
		return
	}
	if len(data) == 0 {
		h.respondError(w, utils.NewBadRequestError("Uploaded file is empty"))
		return
	}

	h.logger.Info("File upload attempt",
		"application_id", applicationID,
		"filename", header.Filename,
		"reported_content_type", header.Header.Get("Content-Type"),
		"size", len(data))

	resp, err := h.service.UploadDocument(r.Context(), &models.UploadRequest{
		ApplicationID: applicationID,
		DocumentType:  r.FormValue("document_type"),
		File:          data,
		Filename:      header.Filename,
		ContentType:   header.Header.Get("Content-Type"),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, resp)
}

func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		h.respondError(w, utils.NewBadRequestError("Document ID is required"))
		return
	}

	doc, err := h.service.GetDocument(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, doc)
}
