package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/BerylCAtieno/loan-intelligence-api/internal/analyzer"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/models"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/utils"
)

// Keyword tables for conflict severity, matched against the lowercased label.
var (
	criticalFieldKeywords = []string{"business name", "legal name", "company name", "dba", "tax id", "ein", "tin", "gst"}
	highFieldKeywords     = []string{"address", "revenue", "income", "sales", "account number", "routing"}
)

// FieldAggregator merges per-document fields into one view per application.
type FieldAggregator struct {
	store      DocumentStore
	fields     FieldSource
	inferencer Inferencer
	logger     *utils.Logger
}

func NewFieldAggregator(store DocumentStore, fields FieldSource, inferencer Inferencer, logger *utils.Logger) *FieldAggregator {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &FieldAggregator{
		store:      store,
		fields:     fields,
		inferencer: inferencer,
		logger:     logger,
	}
}

// Aggregate fails only when the application or its document list cannot be read.
func (a *FieldAggregator) Aggregate(ctx context.Context, applicationID string) (*models.AggregatedFields, error) {
	if _, err := a.store.GetApplication(ctx, applicationID); err != nil {
		return nil, err
	}

	docs, err := a.store.ListDocuments(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("list documents for application %s: %w", applicationID, err)
	}

	return a.AggregateDocuments(ctx, applicationID, docs)
}

// AggregateDocuments aggregates an already loaded document set. A document whose
// extraction fails contributes no fields.
func (a *FieldAggregator) AggregateDocuments(ctx context.Context, applicationID string, docs []models.Document) (*models.AggregatedFields, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entries []models.FieldEntry
	failed := 0
	for i := range docs {
		doc := &docs[i]
		fields, err := a.fields.Fields(ctx, doc)
		if err != nil {
			a.logger.Warn("Field extraction failed, continuing without document",
				"application_id", applicationID,
				"document_id", doc.ID,
				"error", err)
			failed++
			continue
		}
		for _, f := range fields {
			entries = append(entries, models.FieldEntry{
				ExtractedField: f,
				DocumentID:     doc.ID,
				DocumentType:   doc.DocumentType,
				DocumentName:   doc.Filename,
			})
		}
	}

	agg := MergeFields(applicationID, entries)
	agg.Summary.DocumentsProcessed = len(docs) - failed
	agg.Summary.DocumentsFailed = failed

	a.resolveConflicts(ctx, agg)

	return agg, nil
}

// MergeFields groups entries by exact label, detects conflicts and picks consensus values.
// It is deterministic and never synthesizes a value.
func MergeFields(applicationID string, entries []models.FieldEntry) *models.AggregatedFields {
	agg := models.NewAggregatedFields(applicationID)

	for _, e := range entries {
		if _, ok := agg.FieldMap[e.Label]; !ok {
			agg.Labels = append(agg.Labels, e.Label)
		}
		agg.FieldMap[e.Label] = append(agg.FieldMap[e.Label], e)
	}

	var confidenceSum float64
	for _, label := range agg.Labels {
		group := agg.FieldMap[label]
		for _, e := range group {
			confidenceSum += e.Confidence
		}

		agg.ConsensusFields[label] = consensus(group).Value

		if distinctNormalized(group) < 2 {
			continue
		}
		severity := conflictSeverity(label, group)
		agg.Conflicts = append(agg.Conflicts, models.FieldConflict{
			FieldName:         label,
			ConflictingValues: group,
			Severity:          severity,
			Recommendation:    conflictRecommendation(label, severity),
		})
		agg.Summary.ConflictsBySeverity[severity]++
	}

	agg.Summary.TotalFields = len(agg.Labels)
	agg.Summary.TotalEntries = len(entries)
	agg.Summary.ConflictCount = len(agg.Conflicts)
	if len(entries) > 0 {
		agg.Summary.AverageConfidence = confidenceSum / float64(len(entries))
	}
	return agg
}

// consensus prefers higher confidence, then inference over other methods, then first seen.
func consensus(group []models.FieldEntry) models.FieldEntry {
	best := group[0]
	for _, e := range group[1:] {
		switch {
		case e.Confidence > best.Confidence:
			best = e
		case e.Confidence == best.Confidence &&
			e.Method == models.MethodInference && best.Method != models.MethodInference:
			best = e
		}
	}
	return best
}

func distinctNormalized(group []models.FieldEntry) int {
	seen := make(map[string]struct{}, len(group))
	for _, e := range group {
		seen[normalizeValue(e.Value)] = struct{}{}
	}
	return len(seen)
}

func conflictSeverity(label string, group []models.FieldEntry) models.Severity {
	l := strings.ToLower(label)
	for _, k := range criticalFieldKeywords {
		if containsWord(l, k) {
			return models.SeverityCritical
		}
	}
	for _, k := range highFieldKeywords {
		if containsWord(l, k) {
			return models.SeverityHigh
		}
	}

	var sum float64
	for _, e := range group {
		sum += e.Confidence
	}
	if sum/float64(len(group)) < 0.5 {
		return models.SeverityMedium
	}
	return models.SeverityLow
}

// containsWord matches k on word boundaries so "tin" does not match "routing".
func containsWord(s, k string) bool {
	for i := 0; ; {
		j := strings.Index(s[i:], k)
		if j < 0 {
			return false
		}
		start, end := i+j, i+j+len(k)
		if (start == 0 || !isWordByte(s[start-1])) && (end == len(s) || !isWordByte(s[end])) {
			return true
		}
		i = start + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z') || ('0' <= b && b <= '9')
}

func conflictRecommendation(label string, severity models.Severity) string {
	switch severity {
	case models.SeverityCritical:
		return fmt.Sprintf("Verify %s against registration or tax records before proceeding", label)
	case models.SeverityHigh:
		return fmt.Sprintf("Request supporting documentation that confirms %s", label)
	case models.SeverityMedium:
		return fmt.Sprintf("Values for %s were extracted with low confidence; review the source documents manually", label)
	default:
		return fmt.Sprintf("Confirm %s with the applicant during underwriting", label)
	}
}

type conflictResolution struct {
	Resolution string `json:"resolution"`
}

// resolveConflicts attaches an inference narrative to each conflict. It never touches
// the consensus value.
func (a *FieldAggregator) resolveConflicts(ctx context.Context, agg *models.AggregatedFields) {
	if a.inferencer == nil {
		return
	}

	for i := range agg.Conflicts {
		c := &agg.Conflicts[i]
		values := make([]map[string]any, 0, len(c.ConflictingValues))
		for _, e := range c.ConflictingValues {
			values = append(values, map[string]any{
				"value":      e.Value,
				"confidence": e.Confidence,
				"method":     e.Method,
				"document":   e.DocumentName,
				"type":       e.DocumentType,
			})
		}

		var out conflictResolution
		err := a.inferencer.Infer(ctx, analyzer.Request{
			Task:       "conflict_resolution",
			Prompt:     "Several loan documents disagree on the same field. Explain which value is most likely correct and what an underwriter should verify.",
			Payload:    map[string]any{"field": c.FieldName, "values": values},
			SchemaHint: `{"resolution": "..."}`,
		}, &out)
		if err != nil {
			a.logger.Debug("Conflict resolution skipped", "application_id", agg.ApplicationID, "field", c.FieldName, "error", err)
			continue
		}
		c.Narrative = strings.TrimSpace(out.Resolution)
	}
}
