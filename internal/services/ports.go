package services

import (
	"context"

	"github.com/BerylCAtieno/loan-intelligence-api/internal/analyzer"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/models"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/repository"
)

// DocumentStore reads applications and documents and attaches analyses to documents.
type DocumentStore interface {
	GetApplication(ctx context.Context, id string) (*models.Application, error)
	ListDocuments(ctx context.Context, applicationID string) ([]models.Document, error)
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	SaveAnalysis(ctx context.Context, documentID, key string, blob any) error
}

// TextExtractor turns a stored document into raw text.
type TextExtractor interface {
	ExtractText(ctx context.Context, doc *models.Document) (string, error)
}

// Inferencer is the optional structured inference capability. Callers treat a nil
// Inferencer as disabled and must tolerate every error it returns.
type Inferencer interface {
	Infer(ctx context.Context, req analyzer.Request, out any) error
}

// FieldSource yields the extracted fields of one document.
type FieldSource interface {
	Fields(ctx context.Context, doc *models.Document) ([]models.ExtractedField, error)
}

var (
	_ DocumentStore = (repository.Repository)(nil)
	_ Inferencer    = (*analyzer.Client)(nil)
	_ FieldSource   = (*FieldExtractor)(nil)
)
