package services

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/BerylCAtieno/loan-intelligence-api/internal/config"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/models"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/utils"
)

func newBankingFixture(inf Inferencer) (*BankingAnalyzer, *fakeStore) {
	store := newFakeStore(&models.Application{ID: "app-1"})
	store.addDocument(models.Document{ID: "stmt-1", ApplicationID: "app-1", Filename: "bank-statement.pdf"})
	store.addDocument(models.Document{ID: "stmt-2", ApplicationID: "app-1", Filename: "bank-statement-2.pdf"})
	store.addDocument(models.Document{ID: "blank", ApplicationID: "app-1", Filename: "blank.pdf"})
	store.addDocument(models.Document{ID: "broken", ApplicationID: "app-1", Filename: "broken.pdf"})

	extractor := &fakeExtractor{
		texts: map[string]string{
			"stmt-1": sampleStatement,
			"stmt-2": sampleStatement,
			"blank":  "   \n ",
		},
		errs: map[string]error{"broken": errors.New("corrupt file")},
	}
	return NewBankingAnalyzer(store, extractor, inf, config.DefaultTuning().Banking, nil), store
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestBankingAnalyzeSampleStatement(t *testing.T) {
	t.Parallel()

	analyzer, store := newBankingFixture(nil)
	analysis, err := analyzer.Analyze(context.Background(), "stmt-1")
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	if analysis.DocumentID != "stmt-1" {
		t.Errorf("DocumentID = %q", analysis.DocumentID)
	}
	if len(analysis.MonthlyStats) != 3 {
		t.Fatalf("got %d months", len(analysis.MonthlyStats))
	}

	s := analysis.OverallSummary
	if !approxEqual(s.AverageBalance, 4965) {
		t.Errorf("AverageBalance = %v, want 4965", s.AverageBalance)
	}
	if s.MinBalance != -200 || s.MaxBalance != 7730 {
		t.Errorf("balance range = [%v, %v]", s.MinBalance, s.MaxBalance)
	}
	if s.TotalNSFIncidents != 3 || !approxEqual(s.TotalNSFFees, 105) {
		t.Errorf("NSF totals = %d / %v", s.TotalNSFIncidents, s.TotalNSFFees)
	}
	if s.CashflowTrend != models.TrendImproving {
		t.Errorf("CashflowTrend = %s, want improving", s.CashflowTrend)
	}
	if !approxEqual(s.OverdraftFrequency, 1.0/90) {
		t.Errorf("OverdraftFrequency = %v", s.OverdraftFrequency)
	}
	if len(s.RiskFlags) != 1 {
		t.Errorf("RiskFlags = %v, want only the NSF flag", s.RiskFlags)
	}

	if want := bankingConfidence(3, len(sampleStatement)); !approxEqual(analysis.AnalysisConfidence, want) {
		t.Errorf("AnalysisConfidence = %v, want %v", analysis.AnalysisConfidence, want)
	}
	if analysis.RefinedByInference {
		t.Error("RefinedByInference should be false without an inferencer")
	}
	if analysis.Metadata.BankName != "First National Bank" {
		t.Errorf("BankName = %q", analysis.Metadata.BankName)
	}
	if len(analysis.Insights) == 0 || len(analysis.Recommendations) == 0 {
		t.Error("expected insights and recommendations")
	}

	saved, ok := store.savedAnalysis("stmt-1", BankingAnalysisKey)
	if !ok {
		t.Fatal("analysis was not persisted")
	}
	if saved != analysis {
		t.Error("persisted analysis differs from the returned one")
	}
}

func TestBankingPersistenceFailureIsTolerated(t *testing.T) {
	t.Parallel()

	analyzer, store := newBankingFixture(nil)
	store.saveErr = errors.New("disk full")

	analysis, err := analyzer.Analyze(context.Background(), "stmt-1")
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if len(analysis.MonthlyStats) != 3 {
		t.Errorf("got %d months", len(analysis.MonthlyStats))
	}
}

func TestBankingAnalyzeErrors(t *testing.T) {
	t.Parallel()

	analyzer, _ := newBankingFixture(nil)
	tests := []struct {
		id   string
		want error
	}{
		{"broken", utils.ErrExtractionUnavailable},
		{"blank", utils.ErrExtractionUnavailable},
		{"missing", utils.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			t.Parallel()
			_, err := analyzer.Analyze(context.Background(), tt.id)
			if !errors.Is(err, tt.want) {
				t.Errorf("Analyze(%q) error = %v, want %v", tt.id, err, tt.want)
			}
		})
	}
}

func TestBankingRefinementReplacesEstimate(t *testing.T) {
	t.Parallel()

	inf := &fakeInferencer{responses: map[string]string{
		"banking_refinement": `{"monthlyStats": [
			{"month": 13, "year": 2024, "nsfCount": 9},
			{"month": 2, "year": 2024, "minBalance": 100, "maxBalance": 300, "averageBalance": 200, "nsfCount": -2, "overdraftDays": 45}
		]}`,
	}}
	analyzer, _ := newBankingFixture(inf)

	analysis, err := analyzer.Analyze(context.Background(), "stmt-1")
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if !analysis.RefinedByInference {
		t.Error("expected RefinedByInference")
	}
	if len(analysis.MonthlyStats) != 1 {
		t.Fatalf("refined months = %+v, want only the valid month", analysis.MonthlyStats)
	}
	m := analysis.MonthlyStats[0]
	if m.NSFCount != 0 || m.OverdraftDays != 31 {
		t.Errorf("refined month not sanitized: %+v", m)
	}
	if want := bankingConfidence(1, len(sampleStatement)) + 0.05; !approxEqual(analysis.AnalysisConfidence, want) {
		t.Errorf("AnalysisConfidence = %v, want %v", analysis.AnalysisConfidence, want)
	}
	if !approxEqual(analysis.OverallSummary.AverageBalance, 200) {
		t.Errorf("summary not rebuilt from refined months: %+v", analysis.OverallSummary)
	}
}

func TestBankingRefinementWithoutMonthsKeepsEstimate(t *testing.T) {
	t.Parallel()

	inf := &fakeInferencer{responses: map[string]string{"banking_refinement": `{"monthlyStats": []}`}}
	analyzer, _ := newBankingFixture(inf)

	analysis, err := analyzer.Analyze(context.Background(), "stmt-1")
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if analysis.RefinedByInference || len(analysis.MonthlyStats) != 3 {
		t.Errorf("pattern estimate should be kept: refined=%v months=%d", analysis.RefinedByInference, len(analysis.MonthlyStats))
	}
	if inf.called("banking_refinement") != 1 {
		t.Error("refinement was not attempted")
	}
}

func TestBankingAnalyzeBatch(t *testing.T) {
	t.Parallel()

	analyzer, _ := newBankingFixture(nil)
	result := analyzer.AnalyzeBatch(context.Background(), []string{"stmt-2", "missing", "stmt-1", "broken"})

	if len(result.Analyses) != 2 {
		t.Fatalf("got %d analyses", len(result.Analyses))
	}
	if result.Analyses[0].DocumentID != "stmt-2" || result.Analyses[1].DocumentID != "stmt-1" {
		t.Errorf("analyses out of order: %s, %s", result.Analyses[0].DocumentID, result.Analyses[1].DocumentID)
	}
	if len(result.Errors) != 2 || result.Errors[0].DocumentID != "missing" || result.Errors[1].DocumentID != "broken" {
		t.Errorf("errors = %+v", result.Errors)
	}
}

func TestSummarizeMonthsFlags(t *testing.T) {
	t.Parallel()

	tuning := config.DefaultTuning().Banking

	empty := SummarizeMonths(nil, tuning)
	if empty.CashflowTrend != models.TrendStable || len(empty.RiskFlags) != 0 {
		t.Errorf("empty summary = %+v", empty)
	}

	months := []models.MonthlyBankStats{
		{Month: 1, Year: 2024, MinBalance: 4000, MaxBalance: 6000, AverageBalance: 5000},
		{Month: 2, Year: 2024, MinBalance: 1000, MaxBalance: 5000, AverageBalance: 3000, OverdraftDays: 8},
		{Month: 3, Year: 2024, MinBalance: -1500, MaxBalance: 2000, AverageBalance: 500, OverdraftDays: 4},
	}
	s := SummarizeMonths(months, tuning)
	if s.CashflowTrend != models.TrendDeclining {
		t.Errorf("CashflowTrend = %s, want declining", s.CashflowTrend)
	}
	if !approxEqual(s.OverdraftFrequency, 12.0/90) {
		t.Errorf("OverdraftFrequency = %v", s.OverdraftFrequency)
	}
	if len(s.RiskFlags) != 3 {
		t.Errorf("RiskFlags = %v, want overdraft, low balance and declining", s.RiskFlags)
	}
}

func TestCashflowTrend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		balances []float64
		want     models.CashflowTrend
	}{
		{[]float64{1000}, models.TrendStable},
		{[]float64{1000, 1050}, models.TrendStable},
		{[]float64{1000, 500}, models.TrendDeclining},
		{[]float64{0, 100}, models.TrendImproving},
		{[]float64{-100, -300}, models.TrendDeclining},
		{[]float64{100, 900, 900, 900, 900, 900}, models.TrendImproving},
	}
	for _, tt := range tests {
		months := make([]models.MonthlyBankStats, len(tt.balances))
		for i, b := range tt.balances {
			months[i] = models.MonthlyBankStats{Month: i + 1, Year: 2024, AverageBalance: b}
		}
		if got := cashflowTrend(months, 0.10); got != tt.want {
			t.Errorf("cashflowTrend(%v) = %s, want %s", tt.balances, got, tt.want)
		}
	}
}

func TestBankingConfidence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		months, textLen int
		want            float64
	}{
		{0, 0, 0.3},
		{3, 100, 0.51},
		{3, 500, 0.61},
		{6, 2000, 0.9},
		{12, 10000, 0.9},
	}
	for _, tt := range tests {
		if got := bankingConfidence(tt.months, tt.textLen); !approxEqual(got, tt.want) {
			t.Errorf("bankingConfidence(%d, %d) = %v, want %v", tt.months, tt.textLen, got, tt.want)
		}
	}
}
