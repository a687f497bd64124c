package models

import (
	"fmt"
	"time"
)

// CashflowTrend is a coarse early-vs-late balance classification.
type CashflowTrend string

const (
	TrendImproving CashflowTrend = "improving"
	TrendDeclining CashflowTrend = "declining"
	TrendStable    CashflowTrend = "stable"
)

// MonthlyBankStats is one calendar month parsed out of a statement.
type MonthlyBankStats struct {
	Month            int     `json:"month"`
	Year             int     `json:"year"`
	OpeningBalance   float64 `json:"openingBalance"`
	ClosingBalance   float64 `json:"closingBalance"`
	MinBalance       float64 `json:"minBalance"`
	MaxBalance       float64 `json:"maxBalance"`
	AverageBalance   float64 `json:"averageBalance"`
	NSFCount         int     `json:"nsfCount"`
	NSFFees          float64 `json:"nsfFees"`
	OverdraftDays    int     `json:"overdraftDays"`
	TransactionCount int     `json:"transactionCount"`
	TotalDeposits    float64 `json:"totalDeposits"`
	TotalWithdrawals float64 `json:"totalWithdrawals"`
}

// Label renders the month as "2024-03".
func (m MonthlyBankStats) Label() string {
	return fmt.Sprintf("%04d-%02d", m.Year, m.Month)
}

// Midpoint is the centre of the month's balance range.
func (m MonthlyBankStats) Midpoint() float64 {
	return (m.MinBalance + m.MaxBalance) / 2
}

type StatementMetadata struct {
	AccountNumber string `json:"accountNumber,omitempty"`
	AccountType   string `json:"accountType,omitempty"`
	BankName      string `json:"bankName,omitempty"`
	PeriodStart   string `json:"periodStart,omitempty"`
	PeriodEnd     string `json:"periodEnd,omitempty"`
}

type BankingSummary struct {
	AverageBalance     float64       `json:"averageBalance"`
	MinBalance         float64       `json:"minBalance"`
	MaxBalance         float64       `json:"maxBalance"`
	TotalNSFIncidents  int           `json:"totalNsfIncidents"`
	TotalNSFFees       float64       `json:"totalNsfFees"`
	OverdraftFrequency float64       `json:"overdraftFrequency"`
	CashflowTrend      CashflowTrend `json:"cashflowTrend"`
	TotalDeposits      float64       `json:"totalDeposits"`
	TotalWithdrawals   float64       `json:"totalWithdrawals"`
	RiskFlags          []string      `json:"riskFlags"`
}

type BankingAnalysis struct {
	DocumentID         string             `json:"documentId"`
	Metadata           StatementMetadata  `json:"metadata"`
	MonthlyStats       []MonthlyBankStats `json:"monthlyStats"`
	OverallSummary     BankingSummary     `json:"overallSummary"`
	Insights           []string           `json:"insights"`
	Recommendations    []string           `json:"recommendations"`
	AnalysisConfidence float64            `json:"analysisConfidence"`
	RefinedByInference bool               `json:"refinedByInference"`
	AnalyzedAt         time.Time          `json:"analyzedAt"`
}

// BatchBankingResult collects per-document outcomes of a batch run.
type BatchBankingResult struct {
	Analyses []BankingAnalysis `json:"analyses"`
	Errors   []BatchItemError  `json:"errors"`
}

type BatchItemError struct {
	DocumentID string `json:"documentId"`
	Error      string `json:"error"`
}
