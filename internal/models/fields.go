package models

// ExtractionMethod records how a field value was obtained.
type ExtractionMethod string

const (
	MethodPattern   ExtractionMethod = "pattern"
	MethodInference ExtractionMethod = "inference"
	MethodManual    ExtractionMethod = "manual"
)

// Severity is the four-level classification shared by conflicts and discrepancies.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Rank orders severities from low (0) to critical (3); unknown values rank as medium.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityHigh:
		return 2
	case SeverityLow:
		return 0
	default:
		return 1
	}
}

// ParseSeverity clamps free-form severity text onto the four allowed levels.
func ParseSeverity(value string, fallback Severity) Severity {
	switch Severity(normalizeEnum(value)) {
	case SeverityCritical:
		return SeverityCritical
	case SeverityHigh:
		return SeverityHigh
	case SeverityMedium:
		return SeverityMedium
	case SeverityLow:
		return SeverityLow
	}
	return fallback
}

type ExtractedField struct {
	Label      string           `json:"label"`
	Value      string           `json:"value"`
	Confidence float64          `json:"confidence"`
	Method     ExtractionMethod `json:"method"`
}

// FieldEntry is an extracted field plus the document it came from.
type FieldEntry struct {
	ExtractedField
	DocumentID   string `json:"documentId"`
	DocumentType string `json:"documentType"`
	DocumentName string `json:"documentName"`
}

type FieldConflict struct {
	FieldName         string       `json:"fieldName"`
	ConflictingValues []FieldEntry `json:"conflictingValues"`
	Severity          Severity     `json:"severity"`
	Recommendation    string       `json:"recommendation"`
	Narrative         string       `json:"narrative,omitempty"`
}

type AggregationSummary struct {
	DocumentsProcessed  int              `json:"documentsProcessed"`
	DocumentsFailed     int              `json:"documentsFailed"`
	TotalFields         int              `json:"totalFields"`
	TotalEntries        int              `json:"totalEntries"`
	ConflictCount       int              `json:"conflictCount"`
	ConflictsBySeverity map[Severity]int `json:"conflictsBySeverity"`
	AverageConfidence   float64          `json:"averageConfidence"`
}

// AggregatedFields is rebuilt from the current documents on every request.
type AggregatedFields struct {
	ApplicationID   string                  `json:"applicationId"`
	Labels          []string                `json:"labels"`
	FieldMap        map[string][]FieldEntry `json:"fieldMap"`
	Conflicts       []FieldConflict         `json:"conflicts"`
	ConsensusFields map[string]string       `json:"consensusFields"`
	Summary         AggregationSummary      `json:"summary"`
}

// NewAggregatedFields returns an empty, fully initialised aggregation.
func NewAggregatedFields(applicationID string) *AggregatedFields {
	return &AggregatedFields{
		ApplicationID:   applicationID,
		Labels:          []string{},
		FieldMap:        map[string][]FieldEntry{},
		Conflicts:       []FieldConflict{},
		ConsensusFields: map[string]string{},
		Summary: AggregationSummary{
			ConflictsBySeverity: map[Severity]int{},
		},
	}
}

// Consensus looks a label up case-insensitively.
func (a *AggregatedFields) Consensus(label string) (string, bool) {
	if a == nil {
		return "", false
	}
	if v, ok := a.ConsensusFields[label]; ok {
		return v, true
	}
	want := normalizeEnum(label)
	for _, l := range a.Labels {
		if normalizeEnum(l) == want {
			v, ok := a.ConsensusFields[l]
			return v, ok
		}
	}
	return "", false
}
