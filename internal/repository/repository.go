package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/BerylCAtieno/loan-intelligence-api/internal/models"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/utils"
)

type Repository interface {
	CreateApplication(ctx context.Context, app *models.Application) error
	GetApplication(ctx context.Context, id string) (*models.Application, error)
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context, applicationID string) ([]models.Document, error)
	SaveAnalysis(ctx context.Context, documentID, key string, blob any) error
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

var documentColumns = []string{
	"id", "application_id", "filename", "document_type", "file_size", "content_type",
	"s3_key", "extracted_text", "metadata", "created_at", "updated_at", "analyzed_at",
}

// documentRow carries the JSON metadata column alongside the mapped document.
type documentRow struct {
	models.Document
	Metadata sql.NullString `db:"metadata"`
}

func (row documentRow) toDocument() (models.Document, error) {
	doc := row.Document
	if row.Metadata.Valid && row.Metadata.String != "" {
		if err := json.Unmarshal([]byte(row.Metadata.String), &doc.Metadata); err != nil {
			return models.Document{}, fmt.Errorf("decode metadata for document %s: %w", doc.ID, err)
		}
	}
	return doc, nil
}

func (r *repository) CreateApplication(ctx context.Context, app *models.Application) error {
	now := time.Now().UTC()
	if app.CreatedAt.IsZero() {
		app.CreatedAt = now
	}
	app.UpdatedAt = now

	query := `
		INSERT INTO applications (id, business_name, legal_name, tax_id, business_address, owner_name,
			industry, years_in_business, amount_requested, monthly_revenue, annual_revenue, use_of_funds,
			created_at, updated_at)
		VALUES (:id, :business_name, :legal_name, :tax_id, :business_address, :owner_name,
			:industry, :years_in_business, :amount_requested, :monthly_revenue, :annual_revenue, :use_of_funds,
			:created_at, :updated_at)
	`

	if _, err := r.db.NamedExecContext(ctx, query, app); err != nil {
		return fmt.Errorf("insert application %s: %w", app.ID, err)
	}
	return nil
}

func (r *repository) GetApplication(ctx context.Context, id string) (*models.Application, error) {
	var app models.Application

	query := `
		SELECT id, business_name, legal_name, tax_id, business_address, owner_name, industry,
		       years_in_business, amount_requested, monthly_revenue, annual_revenue, use_of_funds,
		       created_at, updated_at
		FROM applications
		WHERE id = ?
	`

	err := r.db.GetContext(ctx, &app, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("application %s: %w", id, utils.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get application %s: %w", id, err)
	}

	return &app, nil
}

func (r *repository) CreateDocument(ctx context.Context, doc *models.Document) error {
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	var metadata interface{}
	if len(doc.Metadata) > 0 {
		raw, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata for document %s: %w", doc.ID, err)
		}
		metadata = string(raw)
	}

	query, args, err := sq.Insert("documents").
		Columns(documentColumns...).
		Values(doc.ID, doc.ApplicationID, doc.Filename, doc.DocumentType, doc.FileSize, doc.ContentType,
			doc.S3Key, doc.ExtractedText, metadata, doc.CreatedAt, doc.UpdatedAt, doc.AnalyzedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert document %s: %w", doc.ID, err)
	}
	return nil
}

func (r *repository) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	query, args, err := sq.Select(documentColumns...).
		From("documents").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var row documentRow
	err = r.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, utils.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}

	doc, err := row.toDocument()
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListDocuments returns an application's documents in upload order.
func (r *repository) ListDocuments(ctx context.Context, applicationID string) ([]models.Document, error) {
	query, args, err := sq.Select(documentColumns...).
		From("documents").
		Where(sq.Eq{"application_id": applicationID}).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var rows []documentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list documents for application %s: %w", applicationID, err)
	}

	docs := make([]models.Document, 0, len(rows))
	for _, row := range rows {
		doc, err := row.toDocument()
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// SaveAnalysis attaches an analysis artifact to the document's metadata under key.
func (r *repository) SaveAnalysis(ctx context.Context, documentID, key string, blob any) error {
	doc, err := r.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(blob)
	if err != nil {
		return fmt.Errorf("encode analysis %s: %w", key, err)
	}
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("decode analysis %s: %w", key, err)
	}

	if doc.Metadata == nil {
		doc.Metadata = map[string]interface{}{}
	}
	doc.Metadata[key] = decoded

	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata for document %s: %w", documentID, err)
	}

	now := time.Now().UTC()
	query, args, err := sq.Update("documents").
		Set("metadata", string(metadataJSON)).
		Set("analyzed_at", now).
		Set("updated_at", now).
		Where(sq.Eq{"id": documentID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save analysis %s on document %s: %w", key, documentID, err)
	}
	return nil
}
