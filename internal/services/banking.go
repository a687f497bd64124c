package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/BerylCAtieno/loan-intelligence-api/internal/analyzer"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/config"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/models"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/utils"
)

const (
	// BankingAnalysisKey is the metadata key the analysis is stored under on its document.
	BankingAnalysisKey = "banking_analysis"

	bankingInferenceTextLimit = 8000
	batchConcurrency          = 4
	maxBankingConfidence      = 0.95
)

// BankingAnalyzer turns a statement document into monthly statistics and a summary.
type BankingAnalyzer struct {
	store      DocumentStore
	extractor  TextExtractor
	inferencer Inferencer
	tuning     config.BankingTuning
	logger     *utils.Logger
	now        func() time.Time
}

func NewBankingAnalyzer(store DocumentStore, extractor TextExtractor, inferencer Inferencer, tuning config.BankingTuning, logger *utils.Logger) *BankingAnalyzer {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &BankingAnalyzer{
		store:      store,
		extractor:  extractor,
		inferencer: inferencer,
		tuning:     tuning,
		logger:     logger,
		now:        time.Now,
	}
}

func (b *BankingAnalyzer) Analyze(ctx context.Context, documentID string) (*models.BankingAnalysis, error) {
	doc, err := b.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return b.AnalyzeDocument(ctx, doc)
}

// AnalyzeDocument fails with utils.ErrExtractionUnavailable when the document yields no
// text. The result is persisted onto the document; a write failure is only logged.
func (b *BankingAnalyzer) AnalyzeDocument(ctx context.Context, doc *models.Document) (*models.BankingAnalysis, error) {
	text, err := b.extractor.ExtractText(ctx, doc)
	if err != nil {
		if !errors.Is(err, utils.ErrExtractionUnavailable) {
			err = fmt.Errorf("%v: %w", err, utils.ErrExtractionUnavailable)
		}
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("document %s has no text: %w", doc.ID, utils.ErrExtractionUnavailable)
	}

	analysis := b.AnalyzeText(ctx, text)
	analysis.DocumentID = doc.ID

	if err := b.store.SaveAnalysis(ctx, doc.ID, BankingAnalysisKey, analysis); err != nil {
		b.logger.Error("Failed to persist banking analysis",
			"document_id", doc.ID,
			"error", fmt.Errorf("%v: %w", err, utils.ErrPersistenceFailed))
	}

	b.logger.Info("Banking analysis complete",
		"document_id", doc.ID,
		"months", len(analysis.MonthlyStats),
		"refined", analysis.RefinedByInference,
		"confidence", analysis.AnalysisConfidence)

	return analysis, nil
}

// AnalyzeText runs the pattern pass, the optional inference refinement and the summary.
func (b *BankingAnalyzer) AnalyzeText(ctx context.Context, text string) *models.BankingAnalysis {
	months := ParseStatement(text)
	confidence := bankingConfidence(len(months), len(text))

	refined := false
	if inferred := b.refineMonths(ctx, text, months); len(inferred) > 0 {
		// The refined estimate replaces the pattern estimate wholesale.
		months = inferred
		refined = true
		confidence = math.Min(maxBankingConfidence, bankingConfidence(len(months), len(text))+0.05)
	}

	summary := SummarizeMonths(months, b.tuning)
	insights, recommendations := bankingNarrative(months, summary)

	return &models.BankingAnalysis{
		Metadata:           ParseStatementMetadata(text),
		MonthlyStats:       months,
		OverallSummary:     summary,
		Insights:           insights,
		Recommendations:    recommendations,
		AnalysisConfidence: confidence,
		RefinedByInference: refined,
		AnalyzedAt:         b.now().UTC(),
	}
}

// AnalyzeBatch analyzes documents independently; failures are collected, not returned.
func (b *BankingAnalyzer) AnalyzeBatch(ctx context.Context, documentIDs []string) *models.BatchBankingResult {
	analyses := make([]*models.BankingAnalysis, len(documentIDs))
	errs := make([]error, len(documentIDs))

	var g errgroup.Group
	g.SetLimit(batchConcurrency)
	for i, id := range documentIDs {
		g.Go(func() error {
			analyses[i], errs[i] = b.Analyze(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	result := &models.BatchBankingResult{
		Analyses: []models.BankingAnalysis{},
		Errors:   []models.BatchItemError{},
	}
	for i, id := range documentIDs {
		if errs[i] != nil {
			b.logger.Warn("Batch banking analysis failed", "document_id", id, "error", errs[i])
			result.Errors = append(result.Errors, models.BatchItemError{DocumentID: id, Error: errs[i].Error()})
			continue
		}
		result.Analyses = append(result.Analyses, *analyses[i])
	}
	return result
}

type refinedMonths struct {
	MonthlyStats []models.MonthlyBankStats `json:"monthlyStats"`
}

func (b *BankingAnalyzer) refineMonths(ctx context.Context, text string, estimate []models.MonthlyBankStats) []models.MonthlyBankStats {
	if b.inferencer == nil {
		return nil
	}

	var out refinedMonths
	err := b.inferencer.Infer(ctx, analyzer.Request{
		Task: "banking_refinement",
		Prompt: "Below is raw bank statement text and a pattern-based month-by-month estimate. " +
			"Return corrected monthly statistics with balances, NSF counts and fees, overdraft days and totals.",
		Payload: map[string]any{
			"statementText":   truncate(text, bankingInferenceTextLimit),
			"patternEstimate": estimate,
		},
		SchemaHint: `{"monthlyStats": [{"month": 1, "year": 2024, "openingBalance": 0, "closingBalance": 0, "minBalance": 0, "maxBalance": 0, "averageBalance": 0, "nsfCount": 0, "nsfFees": 0, "overdraftDays": 0, "transactionCount": 0, "totalDeposits": 0, "totalWithdrawals": 0}]}`,
	}, &out)
	if err != nil {
		b.logger.Debug("Banking refinement skipped", "error", err)
		return nil
	}

	months := make([]models.MonthlyBankStats, 0, len(out.MonthlyStats))
	for _, m := range out.MonthlyStats {
		if m.Month < 1 || m.Month > 12 || m.Year < 1900 {
			continue
		}
		if m.NSFCount < 0 {
			m.NSFCount = 0
		}
		m.OverdraftDays = max(0, min(m.OverdraftDays, maxOverdraftDays))
		months = append(months, m)
	}
	sort.SliceStable(months, func(i, j int) bool {
		return monthKey{months[i].Year, months[i].Month}.before(monthKey{months[j].Year, months[j].Month})
	})
	return months
}

// SummarizeMonths derives the overall summary from parsed months.
func SummarizeMonths(months []models.MonthlyBankStats, tuning config.BankingTuning) models.BankingSummary {
	summary := models.BankingSummary{
		CashflowTrend: models.TrendStable,
		RiskFlags:     []string{},
	}
	if len(months) == 0 {
		return summary
	}

	summary.MinBalance = months[0].MinBalance
	summary.MaxBalance = months[0].MaxBalance
	var midpoints float64
	overdraftDays := 0
	for _, m := range months {
		midpoints += m.Midpoint()
		summary.MinBalance = math.Min(summary.MinBalance, m.MinBalance)
		summary.MaxBalance = math.Max(summary.MaxBalance, m.MaxBalance)
		summary.TotalNSFIncidents += m.NSFCount
		summary.TotalNSFFees += m.NSFFees
		summary.TotalDeposits += m.TotalDeposits
		summary.TotalWithdrawals += m.TotalWithdrawals
		overdraftDays += m.OverdraftDays
	}
	n := float64(len(months))
	summary.AverageBalance = math.Round(midpoints/n*100) / 100
	summary.OverdraftFrequency = float64(overdraftDays) / (n * 30)
	summary.CashflowTrend = cashflowTrend(months, tuning.TrendDeadband)

	if summary.TotalNSFIncidents > 0 {
		summary.RiskFlags = append(summary.RiskFlags,
			fmt.Sprintf("%d NSF incident(s) totaling $%.2f in fees", summary.TotalNSFIncidents, summary.TotalNSFFees))
	}
	if summary.OverdraftFrequency > tuning.OverdraftFlagFrequency {
		summary.RiskFlags = append(summary.RiskFlags,
			fmt.Sprintf("Account overdrawn on %.0f%% of days", summary.OverdraftFrequency*100))
	}
	if summary.MinBalance < tuning.LowBalanceFlag {
		summary.RiskFlags = append(summary.RiskFlags,
			fmt.Sprintf("Balance fell to $%.2f", summary.MinBalance))
	}
	if summary.CashflowTrend == models.TrendDeclining {
		summary.RiskFlags = append(summary.RiskFlags, "Declining cashflow trend")
	}

	return summary
}

// cashflowTrend compares the mean balance of the first third of months with the last third.
func cashflowTrend(months []models.MonthlyBankStats, deadband float64) models.CashflowTrend {
	third := max(1, len(months)/3)
	early := meanAverageBalance(months[:third])
	late := meanAverageBalance(months[len(months)-third:])

	var change float64
	switch {
	case early != 0:
		change = (late - early) / math.Abs(early)
	case late > 0:
		change = 1
	case late < 0:
		change = -1
	}

	switch {
	case change > deadband:
		return models.TrendImproving
	case change < -deadband:
		return models.TrendDeclining
	default:
		return models.TrendStable
	}
}

func meanAverageBalance(months []models.MonthlyBankStats) float64 {
	var sum float64
	for _, m := range months {
		sum += m.AverageBalance
	}
	return sum / float64(len(months))
}

// bankingConfidence grows with parsed months and text length.
func bankingConfidence(months, textLen int) float64 {
	c := 0.3 + math.Min(0.4, 0.07*float64(months))
	switch {
	case textLen >= 2000:
		c += 0.2
	case textLen >= 500:
		c += 0.1
	}
	return math.Min(maxBankingConfidence, c)
}

func bankingNarrative(months []models.MonthlyBankStats, s models.BankingSummary) (insights, recommendations []string) {
	insights, recommendations = []string{}, []string{}
	if len(months) == 0 {
		insights = append(insights, "No monthly activity could be identified in the statement")
		recommendations = append(recommendations, "Request a statement in a standard format or a bank-generated export")
		return insights, recommendations
	}

	insights = append(insights,
		fmt.Sprintf("Parsed %d month(s) of activity from %s to %s", len(months), months[0].Label(), months[len(months)-1].Label()),
		fmt.Sprintf("Average balance $%.2f, ranging from $%.2f to $%.2f", s.AverageBalance, s.MinBalance, s.MaxBalance),
		fmt.Sprintf("Cashflow trend is %s", s.CashflowTrend))
	if s.TotalDeposits > 0 || s.TotalWithdrawals > 0 {
		insights = append(insights, fmt.Sprintf("Net flow $%.2f (deposits $%.2f, withdrawals $%.2f)",
			s.TotalDeposits-s.TotalWithdrawals, s.TotalDeposits, s.TotalWithdrawals))
	}

	if s.TotalNSFIncidents > 0 {
		recommendations = append(recommendations, "Review NSF incidents with the applicant and confirm their cause")
	}
	if s.OverdraftFrequency > 0 {
		recommendations = append(recommendations, "Consider a minimum balance covenant or automated repayment review")
	}
	if s.CashflowTrend == models.TrendDeclining {
		recommendations = append(recommendations, "Request the most recent statements to confirm current cashflow")
	}
	if len(months) < 3 {
		recommendations = append(recommendations, "Request at least three months of statements")
	}
	if len(recommendations) == 0 {
		recommendations = append(recommendations, "Banking behavior supports standard terms")
	}
	return insights, recommendations
}
