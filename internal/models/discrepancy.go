package models

import "time"

type FieldDiscrepancy struct {
	FieldName        string   `json:"fieldName"`
	ApplicationValue string   `json:"applicationValue"`
	DocumentValue    string   `json:"documentValue"`
	DocumentSource   string   `json:"documentSource"`
	Severity         Severity `json:"severity"`
	Description      string   `json:"description"`
	Suggestion       string   `json:"suggestion"`
	Similarity       *float64 `json:"similarity,omitempty"`
}

type DiscrepancyReport struct {
	ApplicationID   string             `json:"applicationId"`
	Discrepancies   []FieldDiscrepancy `json:"discrepancies"`
	OverallRisk     Severity           `json:"overallRisk"`
	Confidence      float64            `json:"confidence"`
	CheckedFields   int                `json:"checkedFields"`
	FlaggedFields   int                `json:"flaggedFields"`
	Recommendations []string           `json:"recommendations"`
	CheckedAt       time.Time          `json:"checkedAt"`
}

// CountBySeverity tallies discrepancies at the given level.
func (r *DiscrepancyReport) CountBySeverity(s Severity) int {
	if r == nil {
		return 0
	}
	n := 0
	for _, d := range r.Discrepancies {
		if d.Severity == s {
			n++
		}
	}
	return n
}
