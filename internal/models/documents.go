package models

import (
	"time"
)

type Document struct {
	ID            string                 `json:"id" db:"id"`
	ApplicationID string                 `json:"application_id" db:"application_id"`
	Filename      string                 `json:"filename" db:"filename"`
	DocumentType  string                 `json:"document_type" db:"document_type"`
	FileSize      int64                  `json:"file_size" db:"file_size"`
	ContentType   string                 `json:"content_type" db:"content_type"`
	S3Key         string                 `json:"s3_key" db:"s3_key"`
	ExtractedText string                 `json:"extracted_text,omitempty" db:"extracted_text"`
	Metadata      map[string]interface{} `json:"metadata,omitempty" db:"-"`
	CreatedAt     time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at" db:"updated_at"`
	AnalyzedAt    *time.Time             `json:"analyzed_at,omitempty" db:"analyzed_at"`
}

// Application is the applicant's self-reported loan application record.
type Application struct {
	ID              string    `json:"id" db:"id"`
	BusinessName    string    `json:"business_name" db:"business_name"`
	LegalName       string    `json:"legal_name" db:"legal_name"`
	TaxID           string    `json:"tax_id" db:"tax_id"`
	BusinessAddress string    `json:"business_address" db:"business_address"`
	OwnerName       string    `json:"owner_name" db:"owner_name"`
	Industry        string    `json:"industry" db:"industry"`
	YearsInBusiness *float64  `json:"years_in_business,omitempty" db:"years_in_business"`
	AmountRequested float64   `json:"amount_requested" db:"amount_requested"`
	MonthlyRevenue  float64   `json:"monthly_revenue" db:"monthly_revenue"`
	AnnualRevenue   float64   `json:"annual_revenue" db:"annual_revenue"`
	UseOfFunds      string    `json:"use_of_funds" db:"use_of_funds"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

type UploadRequest struct {
	ApplicationID string
	DocumentType  string
	File          []byte
	Filename      string
	ContentType   string
}

type UploadResponse struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	FileSize    int64     `json:"file_size"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}
