package models

type NSFSeverity string

const (
	NSFSeverityLow      NSFSeverity = "LOW"
	NSFSeverityModerate NSFSeverity = "MODERATE"
	NSFSeverityHigh     NSFSeverity = "HIGH"
	NSFSeverityCritical NSFSeverity = "CRITICAL"
)

// Rank orders NSF severities from LOW (0) to CRITICAL (3).
func (s NSFSeverity) Rank() int {
	switch s {
	case NSFSeverityCritical:
		return 3
	case NSFSeverityHigh:
		return 2
	case NSFSeverityModerate:
		return 1
	default:
		return 0
	}
}

type NSFTrend string

const (
	NSFTrendImproving NSFTrend = "IMPROVING"
	NSFTrendWorsening NSFTrend = "WORSENING"
	NSFTrendStable    NSFTrend = "STABLE"
)

type NSFConsistency string

const (
	NSFConsistent NSFConsistency = "CONSISTENT"
	NSFVolatile   NSFConsistency = "VOLATILE"
	NSFSporadic   NSFConsistency = "SPORADIC"
)

// MonthlyNSFData is derived from MonthlyBankStats, never computed on its own.
type MonthlyNSFData struct {
	Month              string  `json:"month"`
	NSFCount           int     `json:"nsfCount"`
	NSFFees            float64 `json:"nsfFees"`
	FeePerIncident     float64 `json:"feePerIncident"`
	DaysWithNSF        float64 `json:"daysWithNsf"`
	ConsecutiveNSFDays float64 `json:"consecutiveNsfDays"`
}

type NSFSummary struct {
	TotalIncidents           int            `json:"totalIncidents"`
	TotalFees                float64        `json:"totalFees"`
	AverageIncidentsPerMonth float64        `json:"averageIncidentsPerMonth"`
	MonthsWithNSF            int            `json:"monthsWithNsf"`
	PeakMonth                string         `json:"peakMonth,omitempty"`
	PeakIncidents            int            `json:"peakIncidents"`
	Severity                 NSFSeverity    `json:"severity"`
	Trend                    NSFTrend       `json:"trend"`
	TrendMagnitude           float64        `json:"trendMagnitude"`
	Consistency              NSFConsistency `json:"consistency"`
	CoefficientOfVariation   float64        `json:"coefficientOfVariation"`
	RecentTrend              NSFTrend       `json:"recentTrend"`
}

type NSFTrendAnalysis struct {
	DocumentID      string           `json:"documentId"`
	Empty           bool             `json:"empty"`
	MonthlyData     []MonthlyNSFData `json:"monthlyData"`
	OverallSummary  NSFSummary       `json:"overallSummary"`
	RiskFactors     []string         `json:"riskFactors"`
	Insights        []string         `json:"insights"`
	Recommendations []string         `json:"recommendations"`
}
