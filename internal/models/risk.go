package models

import "time"

type RiskLevel string

const (
	RiskVeryLow  RiskLevel = "very-low"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskVeryHigh RiskLevel = "very-high"
)

// RiskLevelFor maps a 0-10 score onto its band; boundaries are inclusive on the upper side.
func RiskLevelFor(score float64) RiskLevel {
	switch {
	case score <= 2:
		return RiskVeryLow
	case score <= 4:
		return RiskLow
	case score <= 6:
		return RiskMedium
	case score <= 8:
		return RiskHigh
	default:
		return RiskVeryHigh
	}
}

type RiskScoreComponents struct {
	BusinessRisk   float64 `json:"businessRisk"`
	FinancialRisk  float64 `json:"financialRisk"`
	DocumentRisk   float64 `json:"documentRisk"`
	BankingRisk    float64 `json:"bankingRisk"`
	ComplianceRisk float64 `json:"complianceRisk"`
}

type RiskScoreAnalysis struct {
	ApplicationID     string              `json:"applicationId"`
	OverallScore      float64             `json:"overallScore"`
	RiskLevel         RiskLevel           `json:"riskLevel"`
	Components        RiskScoreComponents `json:"components"`
	RiskFactors       []string            `json:"riskFactors"`
	MitigatingFactors []string            `json:"mitigatingFactors"`
	Justification     string              `json:"justification"`
	Recommendations   []string            `json:"recommendations"`
	Confidence        float64             `json:"confidence"`
	DegradedInputs    []string            `json:"degradedInputs,omitempty"`
	CalculatedAt      time.Time           `json:"calculatedAt"`
}
