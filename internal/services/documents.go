package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BerylCAtieno/loan-intelligence-api/internal/extractor"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/models"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/repository"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/storage"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/utils"
)

// DocumentService registers applications and ingests their supporting documents.
type DocumentService interface {
	CreateApplication(ctx context.Context, app *models.Application) (*models.Application, error)
	UploadDocument(ctx context.Context, req *models.UploadRequest) (*models.UploadResponse, error)
	GetDocument(ctx context.Context, id string) (*models.Document, error)
}

type documentService struct {
	repo    repository.Repository
	storage storage.Storage
	logger  *utils.Logger
}

func NewDocumentService(repo repository.Repository, store storage.Storage, logger *utils.Logger) DocumentService {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &documentService{
		repo:    repo,
		storage: store,
		logger:  logger,
	}
}

func (s *documentService) CreateApplication(ctx context.Context, app *models.Application) (*models.Application, error) {
	if strings.TrimSpace(app.BusinessName) == "" && strings.TrimSpace(app.LegalName) == "" {
		return nil, utils.NewBadRequestError("Application requires a business or legal name")
	}
	if app.AmountRequested < 0 {
		return nil, utils.NewBadRequestError("Requested amount cannot be negative")
	}
	if app.ID == "" {
		app.ID = utils.GenerateID()
	}

	if err := s.repo.CreateApplication(ctx, app); err != nil {
		s.logger.Error("Failed to save application", "error", err, "application_id", app.ID)
		return nil, utils.NewInternalError("Failed to save application")
	}

	s.logger.Info("Application created", "application_id", app.ID, "business_name", app.BusinessName)
	return app, nil
}

func (s *documentService) UploadDocument(ctx context.Context, req *models.UploadRequest) (*models.UploadResponse, error) {
	if _, err := s.repo.GetApplication(ctx, req.ApplicationID); err != nil {
		return nil, utils.ToAppError(err)
	}

	contentType := extractor.DetectContentType(req.Filename, req.ContentType)
	if !extractor.IsSupportedContentType(contentType) {
		s.logger.Warn("Unsupported content type", "content_type", req.ContentType, "filename", req.Filename)
		return nil, utils.NewBadRequestError(fmt.Sprintf("Unsupported file type '%s'. Allowed: PDF, DOCX, XLSX, HTML, TXT", req.ContentType))
	}

	extractedText, err := extractor.Extract(contentType, req.File)
	if err != nil {
		s.logger.Error("Failed to extract text", "error", err, "content_type", contentType, "filename", req.Filename)
		return nil, utils.NewUnprocessableError("Failed to extract text from document", fmt.Errorf("%v: %w", err, utils.ErrExtractionUnavailable))
	}

	if strings.TrimSpace(extractedText) == "" {
		s.logger.Warn("No text extracted from document", "filename", req.Filename)
		return nil, utils.NewBadRequestError("No text could be extracted from the document. The file may be empty or corrupted")
	}

	docID := utils.GenerateID()
	s3Key := storage.DocumentKey(req.ApplicationID, docID, req.Filename)
	if err := s.storage.Upload(ctx, s3Key, req.File, contentType); err != nil {
		s.logger.Error("Failed to upload to S3", "error", err, "s3_key", s3Key)
		return nil, utils.NewInternalError("Failed to store document")
	}

	now := time.Now().UTC()
	doc := &models.Document{
		ID:            docID,
		ApplicationID: req.ApplicationID,
		Filename:      req.Filename,
		DocumentType:  req.DocumentType,
		FileSize:      int64(len(req.File)),
		ContentType:   contentType,
		S3Key:         s3Key,
		ExtractedText: extractedText,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.CreateDocument(ctx, doc); err != nil {
		s.logger.Error("Failed to save document to database", "error", err, "document_id", docID)
		// Attempt to cleanup S3
		_ = s.storage.Delete(ctx, s3Key)
		return nil, utils.NewInternalError("Failed to save document metadata")
	}

	s.logger.Info("Document uploaded successfully",
		"document_id", docID,
		"application_id", req.ApplicationID,
		"filename", req.Filename,
		"content_type", contentType,
		"text_length", len(extractedText))

	return &models.UploadResponse{
		ID:          docID,
		Filename:    req.Filename,
		FileSize:    doc.FileSize,
		ContentType: doc.ContentType,
		CreatedAt:   now,
	}, nil
}

func (s *documentService) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	doc, err := s.repo.GetDocument(ctx, id)
	if err != nil {
		return nil, utils.ToAppError(err)
	}
	return doc, nil
}
