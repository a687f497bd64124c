package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BerylCAtieno/loan-intelligence-api/internal/models"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/storage"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/utils"
)

const (
	ContentTypePDF  = "application/pdf"
	ContentTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeHTML = "text/html"
	ContentTypeText = "text/plain"
)

// Service turns stored documents into plain text.
type Service struct {
	storage storage.Storage
	logger  *utils.Logger
}

func NewService(store storage.Storage, logger *utils.Logger) *Service {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Service{storage: store, logger: logger}
}

// ExtractText returns the document's cached text when present, otherwise downloads and
// parses the original. Every failure wraps utils.ErrExtractionUnavailable.
func (s *Service) ExtractText(ctx context.Context, doc *models.Document) (string, error) {
	if strings.TrimSpace(doc.ExtractedText) != "" {
		return doc.ExtractedText, nil
	}

	if s.storage == nil || doc.S3Key == "" {
		return "", fmt.Errorf("document %s has no stored content: %w", doc.ID, utils.ErrExtractionUnavailable)
	}

	data, err := s.storage.Download(ctx, doc.S3Key)
	if err != nil {
		return "", fmt.Errorf("download document %s: %v: %w", doc.ID, err, utils.ErrExtractionUnavailable)
	}

	text, err := Extract(DetectContentType(doc.Filename, doc.ContentType), data)
	if err != nil {
		s.logger.Warn("Text extraction failed", "document_id", doc.ID, "content_type", doc.ContentType, "error", err)
		return "", fmt.Errorf("extract document %s: %v: %w", doc.ID, err, utils.ErrExtractionUnavailable)
	}

	return text, nil
}

// Extract dispatches on a normalized content type. Unknown types are accepted as plain
// text only when the bytes look like text.
func Extract(contentType string, data []byte) (string, error) {
	switch contentType {
	case ContentTypePDF:
		return ExtractPDF(data)
	case ContentTypeDOCX:
		return ExtractDOCX(data)
	case ContentTypeXLSX:
		return ExtractXLSX(data)
	case ContentTypeHTML:
		return ExtractHTML(data)
	case ContentTypeText:
		return ExtractTXT(data)
	}

	if err := ValidateTXT(data); err != nil {
		return "", fmt.Errorf("unsupported content type %q: %w", contentType, err)
	}
	return ExtractTXT(data)
}

// DetectContentType prefers the filename extension and falls back to the declared header.
func DetectContentType(filename, headerContentType string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return ContentTypePDF
	case ".docx":
		return ContentTypeDOCX
	case ".xlsx":
		return ContentTypeXLSX
	case ".html", ".htm":
		return ContentTypeHTML
	case ".txt", ".csv":
		return ContentTypeText
	}

	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(headerContentType, ";")[0]))
	switch mediaType {
	case ContentTypePDF:
		return ContentTypePDF
	case ContentTypeDOCX, "application/vnd.openxmlformats-officedocument.wordprocessingml":
		return ContentTypeDOCX
	case ContentTypeXLSX:
		return ContentTypeXLSX
	case ContentTypeHTML, "application/xhtml+xml":
		return ContentTypeHTML
	case ContentTypeText, "text/txt", "application/txt", "application/x-txt", "text/csv":
		return ContentTypeText
	}
	return mediaType
}

// IsSupportedContentType reports whether Extract has a dedicated parser for the type.
func IsSupportedContentType(contentType string) bool {
	switch contentType {
	case ContentTypePDF, ContentTypeDOCX, ContentTypeXLSX, ContentTypeHTML, ContentTypeText:
		return true
	}
	return false
}
