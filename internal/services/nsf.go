package services

import (
	"context"
	"fmt"
	"math"

	"github.com/BerylCAtieno/loan-intelligence-api/internal/config"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/models"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/utils"
)

const (
	recentWindowMonths = 3
	nsfTrendDeadband   = 0.10
	maxNSFDaysPerMonth = 30
)

// BankingSource re-derives a statement's banking analysis.
type BankingSource interface {
	Analyze(ctx context.Context, documentID string) (*models.BankingAnalysis, error)
}

var _ BankingSource = (*BankingAnalyzer)(nil)

// NSFTrendAnalyzer derives NSF trend metrics from a statement's monthly statistics.
type NSFTrendAnalyzer struct {
	banking BankingSource
	tuning  config.NSFTuning
	logger  *utils.Logger
}

func NewNSFTrendAnalyzer(banking BankingSource, tuning config.NSFTuning, logger *utils.Logger) *NSFTrendAnalyzer {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &NSFTrendAnalyzer{banking: banking, tuning: tuning, logger: logger}
}

func (n *NSFTrendAnalyzer) Analyze(ctx context.Context, documentID string) (*models.NSFTrendAnalysis, error) {
	banking, err := n.banking.Analyze(ctx, documentID)
	if err != nil {
		return nil, err
	}

	result := AnalyzeMonths(banking.MonthlyStats, n.tuning)
	result.DocumentID = documentID
	if result.Empty {
		n.logger.Warn("No monthly data for NSF trend analysis", "document_id", documentID)
	}
	return result, nil
}

// AnalyzeMonths is the pure NSF derivation. Zero months yields an explicit empty analysis.
func AnalyzeMonths(months []models.MonthlyBankStats, tuning config.NSFTuning) *models.NSFTrendAnalysis {
	if len(months) == 0 {
		return &models.NSFTrendAnalysis{
			Empty:       true,
			MonthlyData: []models.MonthlyNSFData{},
			OverallSummary: models.NSFSummary{
				Severity:    models.NSFSeverityLow,
				Trend:       models.NSFTrendStable,
				Consistency: models.NSFConsistent,
				RecentTrend: models.NSFTrendStable,
			},
			RiskFactors:     []string{"No monthly banking data could be parsed; NSF history is unknown"},
			Insights:        []string{},
			Recommendations: []string{"Obtain complete bank statements to assess NSF history"},
		}
	}

	data := make([]models.MonthlyNSFData, len(months))
	counts := make([]float64, len(months))
	for i, m := range months {
		d := models.MonthlyNSFData{
			Month:       m.Label(),
			NSFCount:    m.NSFCount,
			NSFFees:     m.NSFFees,
			DaysWithNSF: math.Min(maxNSFDaysPerMonth, float64(m.NSFCount)*1.5),
		}
		if m.NSFCount > 0 {
			d.FeePerIncident = m.NSFFees / float64(m.NSFCount)
		}
		if m.NSFCount > 3 {
			d.ConsecutiveNSFDays = float64(m.NSFCount) / 2
		}
		data[i] = d
		counts[i] = float64(m.NSFCount)
	}

	summary := summarizeNSF(data, tuning)
	summary.Trend, summary.TrendMagnitude = nsfDirection(counts)
	summary.CoefficientOfVariation, summary.Consistency = nsfConsistency(counts)
	summary.RecentTrend = nsfRecentTrend(counts)

	return &models.NSFTrendAnalysis{
		MonthlyData:     data,
		OverallSummary:  summary,
		RiskFactors:     nsfRiskFactors(summary, len(data)),
		Insights:        nsfInsights(summary, len(data)),
		Recommendations: nsfRecommendations(summary),
	}
}

func summarizeNSF(data []models.MonthlyNSFData, tuning config.NSFTuning) models.NSFSummary {
	var s models.NSFSummary
	for _, d := range data {
		s.TotalIncidents += d.NSFCount
		s.TotalFees += d.NSFFees
		if d.NSFCount > 0 {
			s.MonthsWithNSF++
		}
		if d.NSFCount > s.PeakIncidents {
			s.PeakIncidents = d.NSFCount
			s.PeakMonth = d.Month
		}
	}
	s.AverageIncidentsPerMonth = float64(s.TotalIncidents) / float64(len(data))
	s.Severity = NSFSeverityFor(s.AverageIncidentsPerMonth, s.TotalIncidents, tuning)
	return s
}

// NSFSeverityFor is monotonic in both arguments for non-decreasing tuning thresholds.
func NSFSeverityFor(average float64, total int, t config.NSFTuning) models.NSFSeverity {
	switch {
	case average >= t.CriticalAverage || total >= t.CriticalTotal:
		return models.NSFSeverityCritical
	case average >= t.HighAverage || total >= t.HighTotal:
		return models.NSFSeverityHigh
	case average >= t.ModerateAverage || total >= t.ModerateTotal:
		return models.NSFSeverityModerate
	default:
		return models.NSFSeverityLow
	}
}

// nsfDirection compares the last month with the first.
func nsfDirection(counts []float64) (models.NSFTrend, float64) {
	first, last := counts[0], counts[len(counts)-1]
	magnitude := math.Abs(last-first) / math.Max(first, 1)
	switch {
	case last > first:
		return models.NSFTrendWorsening, magnitude
	case last < first:
		return models.NSFTrendImproving, magnitude
	default:
		return models.NSFTrendStable, 0
	}
}

func nsfConsistency(counts []float64) (float64, models.NSFConsistency) {
	mean := meanOf(counts)
	if mean == 0 {
		return 0, models.NSFConsistent
	}
	var variance float64
	for _, c := range counts {
		variance += (c - mean) * (c - mean)
	}
	cv := math.Sqrt(variance/float64(len(counts))) / mean

	switch {
	case cv < 0.5:
		return cv, models.NSFConsistent
	case cv < 1.0:
		return cv, models.NSFVolatile
	default:
		return cv, models.NSFSporadic
	}
}

// nsfRecentTrend compares the last three months with up to three months before them.
func nsfRecentTrend(counts []float64) models.NSFTrend {
	if len(counts) <= recentWindowMonths {
		return models.NSFTrendStable
	}
	split := len(counts) - recentWindowMonths
	recent := meanOf(counts[split:])
	prior := meanOf(counts[max(0, split-recentWindowMonths):split])

	if prior == 0 {
		if recent > 0 {
			return models.NSFTrendWorsening
		}
		return models.NSFTrendStable
	}
	change := (recent - prior) / prior
	switch {
	case change > nsfTrendDeadband:
		return models.NSFTrendWorsening
	case change < -nsfTrendDeadband:
		return models.NSFTrendImproving
	default:
		return models.NSFTrendStable
	}
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func nsfRiskFactors(s models.NSFSummary, months int) []string {
	factors := []string{}
	if s.Severity.Rank() >= models.NSFSeverityHigh.Rank() {
		factors = append(factors, fmt.Sprintf("%s NSF severity: %d incidents over %d months", s.Severity, s.TotalIncidents, months))
	}
	if s.Trend == models.NSFTrendWorsening {
		factors = append(factors, fmt.Sprintf("NSF incidents rising from first to last month (%.0f%% increase)", s.TrendMagnitude*100))
	}
	if s.RecentTrend == models.NSFTrendWorsening {
		factors = append(factors, "NSF activity in the last three months exceeds the prior period")
	}
	if s.TotalIncidents > 0 && s.Consistency == models.NSFConsistent {
		factors = append(factors, "NSF incidents recur every month")
	}
	if s.TotalFees > 500 {
		factors = append(factors, fmt.Sprintf("NSF fees totaling $%.2f", s.TotalFees))
	}
	return factors
}

func nsfInsights(s models.NSFSummary, months int) []string {
	if s.TotalIncidents == 0 {
		return []string{fmt.Sprintf("No NSF incidents across %d month(s)", months)}
	}
	insights := []string{
		fmt.Sprintf("%d of %d month(s) had NSF activity, averaging %.1f incidents per month", s.MonthsWithNSF, months, s.AverageIncidentsPerMonth),
		fmt.Sprintf("Peak month %s with %d incident(s)", s.PeakMonth, s.PeakIncidents),
	}
	switch s.Consistency {
	case models.NSFVolatile:
		insights = append(insights, "NSF activity varies considerably month to month")
	case models.NSFSporadic:
		insights = append(insights, "NSF activity is concentrated in isolated months")
	}
	if s.Trend == models.NSFTrendImproving {
		insights = append(insights, "NSF incidents decreased over the statement period")
	}
	return insights
}

func nsfRecommendations(s models.NSFSummary) []string {
	var recs []string
	switch s.Severity {
	case models.NSFSeverityCritical:
		recs = append(recs, "Decline or require cashflow remediation before funding")
	case models.NSFSeverityHigh:
		recs = append(recs, "Require daily balance monitoring and a repayment schedule aligned with deposits")
	case models.NSFSeverityModerate:
		recs = append(recs, "Monitor account activity monthly during the loan term")
	default:
		recs = append(recs, "No NSF-related conditions required")
	}
	if s.RecentTrend == models.NSFTrendImproving {
		recs = append(recs, "Recent improvement noted; re-evaluate after three more months of statements")
	}
	if s.RecentTrend == models.NSFTrendWorsening {
		recs = append(recs, "Obtain an explanation for the recent increase in NSF activity")
	}
	return recs
}
