package services

import (
	"fmt"
	"math"
	"strings"

	"github.com/BerylCAtieno/loan-intelligence-api/internal/config"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/models"
)

const minUseOfFundsLength = 20

// Use-of-funds text made only of these words says nothing about the purpose.
var vagueFundsWords = map[string]bool{
	"general": true, "misc": true, "miscellaneous": true, "other": true, "various": true,
	"na": true, "tbd": true, "business": true, "purpose": true, "purposes": true, "use": true,
	"uses": true, "expenses": true, "needs": true, "operating": true, "operations": true,
	"for": true, "and": true, "the": true, "of": true, "company": true,
}

// scoringInputs is everything a component rule may look at. Absent inputs are nil.
type scoringInputs struct {
	app           *models.Application
	documents     []models.Document
	aggregation   *models.AggregatedFields
	discrepancies *models.DiscrepancyReport
	banking       *models.BankingAnalysis
}

// factors collects human-readable reasons while rules are applied.
type factors struct {
	risk       []string
	mitigating []string
}

func (f *factors) add(delta float64, reason string) float64 {
	switch {
	case delta > 0:
		f.risk = append(f.risk, reason)
	case delta < 0:
		f.mitigating = append(f.mitigating, reason)
	}
	return delta
}

func businessRisk(in scoringInputs, t config.ScoringTuning, f *factors) float64 {
	score := 5.0
	app := in.app

	if app.YearsInBusiness != nil {
		years := *app.YearsInBusiness
		switch {
		case years >= 5:
			score += f.add(-2, fmt.Sprintf("Established business (%.1f years)", years))
		case years >= 2:
			score += f.add(-1, fmt.Sprintf("%.1f years in business", years))
		case years < 1:
			score += f.add(2, fmt.Sprintf("Business operating less than a year (%.1f years)", years))
		}

		months := years * 12
		if app.AmountRequested > 0 && (months <= 0 || app.AmountRequested/months > t.LoanPerMonthOfAge) {
			score += f.add(1, "Requested amount is large relative to business age")
		}
	}

	if isHighRiskIndustry(app.Industry, t.HighRiskIndustries) {
		score += f.add(1, fmt.Sprintf("Higher-risk industry (%s)", app.Industry))
	}

	return clamp(score, 0, 10)
}

func isHighRiskIndustry(industry string, list []string) bool {
	industry = strings.ToLower(strings.TrimSpace(industry))
	if industry == "" {
		return false
	}
	for _, h := range list {
		if strings.Contains(industry, strings.ToLower(h)) {
			return true
		}
	}
	return false
}

// monthlyRevenue prefers self-reported figures, then document consensus.
func monthlyRevenue(in scoringInputs) (float64, bool) {
	if in.app.MonthlyRevenue > 0 {
		return in.app.MonthlyRevenue, true
	}
	if in.app.AnnualRevenue > 0 {
		return in.app.AnnualRevenue / 12, true
	}
	if v, ok := in.aggregation.Consensus(LabelMonthlyRevenue); ok {
		if r, ok := parseAmountFloat(v); ok && r > 0 {
			return r, true
		}
	}
	if v, ok := in.aggregation.Consensus(LabelAnnualRevenue); ok {
		if r, ok := parseAmountFloat(v); ok && r > 0 {
			return r / 12, true
		}
	}
	return 0, false
}

func financialRisk(in scoringInputs, t config.ScoringTuning, f *factors) float64 {
	score := 5.0
	revenue, known := monthlyRevenue(in)
	amount := in.app.AmountRequested

	switch {
	case !known || revenue <= 0:
		score += f.add(3, "Monthly revenue unknown or zero")
	case revenue < 10000:
		score += f.add(2, fmt.Sprintf("Low monthly revenue ($%.0f)", revenue))
	case revenue < 50000:
		score += f.add(1, fmt.Sprintf("Modest monthly revenue ($%.0f)", revenue))
	case revenue < 100000:
	case revenue < 250000:
		score += f.add(-1, fmt.Sprintf("Strong monthly revenue ($%.0f)", revenue))
	default:
		score += f.add(-2, fmt.Sprintf("Very strong monthly revenue ($%.0f)", revenue))
	}

	if revenue > 0 && amount > 0 {
		payment := amount / float64(t.AssumedTermMonths)
		ratio := payment / revenue
		switch {
		case ratio > 0.5:
			score += f.add(2, fmt.Sprintf("Estimated payment is %.0f%% of monthly revenue", ratio*100))
		case ratio > 0.3:
			score += f.add(1, fmt.Sprintf("Estimated payment is %.0f%% of monthly revenue", ratio*100))
		case ratio < 0.1:
			score += f.add(-1, fmt.Sprintf("Estimated payment is only %.0f%% of monthly revenue", ratio*100))
		}
	} else if amount > 0 {
		score += f.add(2, "Loan requested with no verifiable revenue")
	}

	if growth, ok := revenueGrowth(in.aggregation); ok {
		switch {
		case growth > 0.20:
			score += f.add(-1, fmt.Sprintf("Revenue grew %.0f%% year over year", growth*100))
		case growth < -0.25:
			score += f.add(2, fmt.Sprintf("Revenue fell %.0f%% year over year", -growth*100))
		case growth < -0.10:
			score += f.add(1, fmt.Sprintf("Revenue fell %.0f%% year over year", -growth*100))
		}
	}

	return clamp(score, 0, 10)
}

func revenueGrowth(agg *models.AggregatedFields) (float64, bool) {
	current, ok := agg.Consensus(LabelAnnualRevenue)
	if !ok {
		return 0, false
	}
	prior, ok := agg.Consensus(LabelPriorYearRevenue)
	if !ok {
		return 0, false
	}
	c, ok1 := parseAmountFloat(current)
	p, ok2 := parseAmountFloat(prior)
	if !ok1 || !ok2 || p <= 0 {
		return 0, false
	}
	return (c - p) / p, true
}

func documentRisk(in scoringInputs, f *factors) float64 {
	score := 5.0
	n := len(in.documents)
	switch {
	case n >= 5:
		score += f.add(-1, fmt.Sprintf("Comprehensive documentation (%d documents)", n))
	case n < 3:
		score += f.add(2, fmt.Sprintf("Limited documentation (%d documents)", n))
	}

	report := in.discrepancies
	if report == nil {
		return clamp(score, 0, 10)
	}
	if count := len(report.Discrepancies); count > 0 {
		score += f.add(math.Min(3, 0.5*float64(count)), fmt.Sprintf("%d discrepancies between application and documents", count))
	}
	if report.CheckedFields > 0 {
		switch report.OverallRisk {
		case models.SeverityCritical:
			score += f.add(2, "Critical identity discrepancy")
		case models.SeverityHigh:
			score += f.add(1, "Multiple high-severity discrepancies")
		case models.SeverityLow:
			score += f.add(-1, "Application data matches documents")
		}
	}

	return clamp(score, 0, 10)
}

func bankingRisk(in scoringInputs, f *factors) float64 {
	if in.banking == nil {
		f.add(1, "No banking statement analysis available")
		return 6
	}

	score := 5.0
	s := in.banking.OverallSummary
	switch nsf := s.TotalNSFIncidents; {
	case nsf == 0:
		score += f.add(-1, "No NSF incidents")
	case nsf <= 3:
		score += f.add(1, fmt.Sprintf("%d NSF incidents", nsf))
	case nsf <= 10:
		score += f.add(2, fmt.Sprintf("%d NSF incidents", nsf))
	default:
		score += f.add(3, fmt.Sprintf("%d NSF incidents", nsf))
	}

	switch {
	case s.OverdraftFrequency > 0.20:
		score += f.add(2, fmt.Sprintf("Overdrawn on %.0f%% of days", s.OverdraftFrequency*100))
	case s.OverdraftFrequency > 0.10:
		score += f.add(1, fmt.Sprintf("Overdrawn on %.0f%% of days", s.OverdraftFrequency*100))
	}

	switch s.CashflowTrend {
	case models.TrendDeclining:
		score += f.add(1, "Declining cashflow trend")
	case models.TrendImproving:
		score += f.add(-1, "Improving cashflow trend")
	}

	switch avg := s.AverageBalance; {
	case avg < 0:
		score += f.add(2, "Negative average balance")
	case avg < 5000:
		score += f.add(1, fmt.Sprintf("Low average balance ($%.0f)", avg))
	case avg >= 100000:
		score += f.add(-2, fmt.Sprintf("High average balance ($%.0f)", avg))
	case avg >= 50000:
		score += f.add(-1, fmt.Sprintf("Healthy average balance ($%.0f)", avg))
	}

	return clamp(score, 0, 10)
}

func complianceRisk(in scoringInputs, f *factors) float64 {
	score := 3.0
	app := in.app

	taxID := strings.TrimSpace(app.TaxID)
	if taxID == "" {
		taxID, _ = in.aggregation.Consensus(LabelTaxID)
	}
	if strings.TrimSpace(taxID) == "" {
		score += f.add(1, "Missing tax identification number")
	}

	legalName := strings.TrimSpace(app.LegalName)
	if legalName == "" {
		legalName, _ = in.aggregation.Consensus(LabelLegalName)
	}
	if strings.TrimSpace(legalName) == "" {
		score += f.add(1, "Missing legal business name")
	}

	if isVagueUseOfFunds(app.UseOfFunds) {
		score += f.add(1, "Use of funds is missing or vague")
	}

	return clamp(score, 0, 10)
}

func isVagueUseOfFunds(useOfFunds string) bool {
	text := normalizeValue(useOfFunds)
	if len(text) < minUseOfFundsLength {
		return true
	}
	for _, word := range strings.Fields(text) {
		if !vagueFundsWords[word] {
			return false
		}
	}
	return true
}

func overallScore(c models.RiskScoreComponents, w config.Weights) float64 {
	sum := c.BusinessRisk*w.Business +
		c.FinancialRisk*w.Financial +
		c.DocumentRisk*w.Document +
		c.BankingRisk*w.Banking +
		c.ComplianceRisk*w.Compliance
	return clamp(math.Round(sum*10)/10, 0, 10)
}

// scoreConfidence adds weight for each input that was actually present.
func scoreConfidence(in scoringInputs, aggregationOK bool) float64 {
	c := 0.2
	if _, ok := monthlyRevenue(in); ok {
		c += 0.2
	}
	if in.app.YearsInBusiness != nil {
		c += 0.15
	}
	if len(in.documents) >= 3 {
		c += 0.15
	}
	if len(in.documents) >= 5 {
		c += 0.1
	}
	if in.banking != nil {
		c += 0.2
	}
	if aggregationOK && in.aggregation != nil && in.aggregation.Summary.TotalFields > 0 {
		c += 0.1
	}
	return math.Min(1, math.Round(c*100)/100)
}
