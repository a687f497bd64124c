package services

import (
	"context"
	"regexp"
	"strings"

	"github.com/BerylCAtieno/loan-intelligence-api/internal/analyzer"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/cache"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/models"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/utils"
)

// Canonical field labels produced by the pattern pass.
const (
	LabelBusinessName     = "Business Name"
	LabelLegalName        = "Legal Name"
	LabelTaxID            = "Tax ID"
	LabelBusinessAddress  = "Business Address"
	LabelOwnerName        = "Owner Name"
	LabelAnnualRevenue    = "Annual Revenue"
	LabelMonthlyRevenue   = "Monthly Revenue"
	LabelPriorYearRevenue = "Prior Year Revenue"
	LabelAccountNumber    = "Account Number"
	LabelBankName         = "Bank Name"
)

const fieldInferenceTextLimit = 6000

type fieldPattern struct {
	label      string
	re         *regexp.Regexp
	confidence float64
}

// Patterns are anchored at line start on a "Label:" prefix; the first capture group is the value.
var fieldPatterns = []fieldPattern{
	{LabelBusinessName, regexp.MustCompile(`(?im)^[ \t]*(?:business|company|dba|trade)[ \t]+name[ \t]*:[ \t]*(.+?)[ \t]*$`), 0.8},
	{LabelLegalName, regexp.MustCompile(`(?im)^[ \t]*(?:legal|registered)(?:[ \t]+business)?[ \t]+name[ \t]*:[ \t]*(.+?)[ \t]*$`), 0.8},
	{LabelTaxID, regexp.MustCompile(`(?im)^[ \t]*(?:tax[ \t]*id|ein|tin|gstin|federal[ \t]+tax[ \t]+id)(?:[ \t]*(?:number|no\.?|#))?[ \t]*:[ \t]*(\d{2}-?\d{7}|\d{3}-?\d{2}-?\d{4}|[0-9A-Z]{15})\b`), 0.85},
	{LabelBusinessAddress, regexp.MustCompile(`(?im)^[ \t]*(?:business|mailing|street)?[ \t]*address[ \t]*:[ \t]*(.+?)[ \t]*$`), 0.7},
	{LabelOwnerName, regexp.MustCompile(`(?im)^[ \t]*(?:owner|proprietor|principal|guarantor)(?:[ \t]+name)?[ \t]*:[ \t]*(.+?)[ \t]*$`), 0.7},
	{LabelAnnualRevenue, regexp.MustCompile(`(?im)^[ \t]*(?:gross[ \t]+|total[ \t]+)?(?:annual|yearly)[ \t]+(?:revenue|sales|income|receipts)[ \t]*:[ \t]*(\(?-?\$?[0-9][0-9,]*(?:\.[0-9]+)?\)?)`), 0.75},
	{LabelMonthlyRevenue, regexp.MustCompile(`(?im)^[ \t]*(?:average[ \t]+|gross[ \t]+)?monthly[ \t]+(?:revenue|sales|income|deposits)[ \t]*:[ \t]*(\(?-?\$?[0-9][0-9,]*(?:\.[0-9]+)?\)?)`), 0.75},
	{LabelPriorYearRevenue, regexp.MustCompile(`(?im)^[ \t]*(?:prior|previous|last)[ \t]+year(?:'s)?[ \t]+(?:revenue|sales|income)[ \t]*:[ \t]*(\(?-?\$?[0-9][0-9,]*(?:\.[0-9]+)?\)?)`), 0.7},
	{LabelAccountNumber, regexp.MustCompile(`(?im)^[ \t]*account[ \t]*(?:number|no\.?|#)[ \t]*:?[ \t]*([X*0-9][X*0-9\-]{3,})`), 0.8},
	{LabelBankName, regexp.MustCompile(`(?im)^[ \t]*(?:bank|financial[ \t]+institution)(?:[ \t]+name)?[ \t]*:[ \t]*(.+?)[ \t]*$`), 0.6},
}

// ExtractPatternFields runs the label pattern pass over raw document text.
func ExtractPatternFields(text string) []models.ExtractedField {
	fields := []models.ExtractedField{}
	for _, p := range fieldPatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		value := strings.TrimSpace(m[1])
		if value == "" {
			continue
		}
		fields = append(fields, models.ExtractedField{
			Label:      p.label,
			Value:      value,
			Confidence: p.confidence,
			Method:     models.MethodPattern,
		})
	}
	return fields
}

// FieldExtractor produces the per-document field list consumed by aggregation.
type FieldExtractor struct {
	extractor  TextExtractor
	inferencer Inferencer
	cache      cache.FieldCache
	logger     *utils.Logger
}

func NewFieldExtractor(extractor TextExtractor, inferencer Inferencer, fieldCache cache.FieldCache, logger *utils.Logger) *FieldExtractor {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &FieldExtractor{
		extractor:  extractor,
		inferencer: inferencer,
		cache:      fieldCache,
		logger:     logger,
	}
}

type inferredFields struct {
	Fields []struct {
		Label      string  `json:"label"`
		Value      string  `json:"value"`
		Confidence float64 `json:"confidence"`
	} `json:"fields"`
}

func (e *FieldExtractor) Fields(ctx context.Context, doc *models.Document) ([]models.ExtractedField, error) {
	if e.cache != nil {
		fields, ok, err := e.cache.Get(ctx, doc.ID)
		if err != nil {
			e.logger.Warn("Field cache read failed", "document_id", doc.ID, "error", err)
		} else if ok {
			return fields, nil
		}
	}

	text, err := e.extractor.ExtractText(ctx, doc)
	if err != nil {
		return nil, err
	}

	fields := ExtractPatternFields(text)
	fields = append(fields, e.inferFields(ctx, doc, text, fields)...)

	if e.cache != nil {
		if err := e.cache.Set(ctx, doc.ID, fields); err != nil {
			e.logger.Warn("Field cache write failed", "document_id", doc.ID, "error", err)
		}
	}

	return fields, nil
}

func (e *FieldExtractor) inferFields(ctx context.Context, doc *models.Document, text string, found []models.ExtractedField) []models.ExtractedField {
	if e.inferencer == nil {
		return nil
	}

	var out inferredFields
	err := e.inferencer.Infer(ctx, analyzer.Request{
		Task: "field_extraction",
		Prompt: "Extract business identity and financial fields from this loan document. " +
			"Use these labels where they apply: Business Name, Legal Name, Tax ID, Business Address, " +
			"Owner Name, Annual Revenue, Monthly Revenue, Prior Year Revenue, Account Number, Bank Name. " +
			"Copy values exactly as written. Omit fields that are not present.",
		Payload: map[string]any{
			"documentType": doc.DocumentType,
			"filename":     doc.Filename,
			"alreadyFound": found,
			"documentText": truncate(text, fieldInferenceTextLimit),
		},
		SchemaHint: `{"fields": [{"label": "Business Name", "value": "...", "confidence": 0.0}]}`,
	}, &out)
	if err != nil {
		e.logger.Debug("Field inference skipped", "document_id", doc.ID, "error", err)
		return nil
	}

	var fields []models.ExtractedField
	for _, f := range out.Fields {
		label, value := strings.TrimSpace(f.Label), strings.TrimSpace(f.Value)
		if label == "" || value == "" {
			continue
		}
		confidence := f.Confidence
		if confidence <= 0 {
			confidence = 0.7
		}
		fields = append(fields, models.ExtractedField{
			Label:      label,
			Value:      value,
			Confidence: clamp(confidence, 0, 1),
			Method:     models.MethodInference,
		})
	}
	return fields
}
