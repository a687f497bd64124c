package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/BerylCAtieno/loan-intelligence-api/internal/analyzer"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/config"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/models"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/utils"
)

type comparisonStrategy int

const (
	compareFuzzy comparisonStrategy = iota
	compareExactDigits
	compareRatio
)

type discrepancyRule struct {
	field    string
	label    string
	strategy comparisonStrategy
	severity models.Severity
	value    func(*models.Application) string
}

var discrepancyRules = []discrepancyRule{
	{"businessName", LabelBusinessName, compareFuzzy, models.SeverityCritical, func(a *models.Application) string { return a.BusinessName }},
	{"legalName", LabelLegalName, compareFuzzy, models.SeverityCritical, func(a *models.Application) string { return a.LegalName }},
	{"taxId", LabelTaxID, compareExactDigits, models.SeverityCritical, func(a *models.Application) string { return a.TaxID }},
	{"businessAddress", LabelBusinessAddress, compareFuzzy, models.SeverityHigh, func(a *models.Application) string { return a.BusinessAddress }},
	{"ownerName", LabelOwnerName, compareFuzzy, models.SeverityMedium, func(a *models.Application) string { return a.OwnerName }},
	{"amountRequested", LabelAnnualRevenue, compareRatio, models.SeverityHigh, func(a *models.Application) string { return formatAmount(a.AmountRequested) }},
}

const inferenceSource = "inference"

// DiscrepancyChecker compares self-reported application values with document consensus.
type DiscrepancyChecker struct {
	store      DocumentStore
	aggregator *FieldAggregator
	inferencer Inferencer
	tuning     config.DiscrepancyTuning
	logger     *utils.Logger
	now        func() time.Time
}

func NewDiscrepancyChecker(store DocumentStore, aggregator *FieldAggregator, inferencer Inferencer, tuning config.DiscrepancyTuning, logger *utils.Logger) *DiscrepancyChecker {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &DiscrepancyChecker{
		store:      store,
		aggregator: aggregator,
		inferencer: inferencer,
		tuning:     tuning,
		logger:     logger,
		now:        time.Now,
	}
}

func (c *DiscrepancyChecker) Check(ctx context.Context, applicationID string) (*models.DiscrepancyReport, error) {
	app, err := c.store.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	docs, err := c.store.ListDocuments(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("list documents for application %s: %w", applicationID, err)
	}

	agg, err := c.aggregator.AggregateDocuments(ctx, applicationID, docs)
	if err != nil {
		return nil, err
	}

	return c.Compare(ctx, app, agg)
}

// Compare runs the table-driven pass, then the optional inference pass.
func (c *DiscrepancyChecker) Compare(ctx context.Context, app *models.Application, agg *models.AggregatedFields) (*models.DiscrepancyReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if agg == nil {
		agg = models.NewAggregatedFields(app.ID)
	}

	report := &models.DiscrepancyReport{
		ApplicationID:   app.ID,
		Discrepancies:   []models.FieldDiscrepancy{},
		Recommendations: []string{},
		CheckedAt:       c.now().UTC(),
	}

	for _, rule := range discrepancyRules {
		appValue := strings.TrimSpace(rule.value(app))
		docValue, ok := agg.Consensus(rule.label)
		docValue = strings.TrimSpace(docValue)
		if appValue == "" || !ok || docValue == "" {
			continue
		}
		report.CheckedFields++

		var d *models.FieldDiscrepancy
		switch rule.strategy {
		case compareFuzzy:
			d = c.compareFuzzy(rule, appValue, docValue)
		case compareExactDigits:
			d = c.compareExactDigits(rule, appValue, docValue)
		case compareRatio:
			d = c.compareRatio(rule, appValue, docValue)
		}
		if d != nil {
			d.DocumentSource = consensusSource(agg, rule.label, docValue)
			report.Discrepancies = append(report.Discrepancies, *d)
		}
	}

	report.Discrepancies = append(report.Discrepancies, c.inferDiscrepancies(ctx, app, agg)...)

	report.FlaggedFields = len(report.Discrepancies)
	report.OverallRisk = overallDiscrepancyRisk(report.Discrepancies)
	report.Confidence = c.reportConfidence(report.FlaggedFields, report.CheckedFields)
	report.Recommendations = discrepancyRecommendations(report)

	return report, nil
}

func (c *DiscrepancyChecker) compareFuzzy(rule discrepancyRule, appValue, docValue string) *models.FieldDiscrepancy {
	sim := similarity(appValue, docValue)
	if sim >= c.tuning.FuzzyThreshold {
		return nil
	}
	return &models.FieldDiscrepancy{
		FieldName:        rule.field,
		ApplicationValue: appValue,
		DocumentValue:    docValue,
		Severity:         rule.severity,
		Description:      fmt.Sprintf("Application %s does not match %s in documents (%.0f%% similar)", rule.field, rule.label, sim*100),
		Suggestion:       fmt.Sprintf("Confirm the correct %s with the applicant and obtain an official document showing it", rule.label),
		Similarity:       &sim,
	}
}

// compareExactDigits flags any difference in the digits of an identifier;
// formatting such as "12-3456789" vs "123456789" is ignored. Values without
// digits fall back to the fuzzy comparison.
func (c *DiscrepancyChecker) compareExactDigits(rule discrepancyRule, appValue, docValue string) *models.FieldDiscrepancy {
	a, b := digitsOf(appValue), digitsOf(docValue)
	if a == "" || b == "" {
		return c.compareFuzzy(rule, appValue, docValue)
	}
	if a == b {
		return nil
	}
	sim := similarity(a, b)
	return &models.FieldDiscrepancy{
		FieldName:        rule.field,
		ApplicationValue: appValue,
		DocumentValue:    docValue,
		Severity:         rule.severity,
		Description:      fmt.Sprintf("Application %s does not match %s in documents", rule.field, rule.label),
		Suggestion:       fmt.Sprintf("Verify the %s against the issuing authority's letter", rule.label),
		Similarity:       &sim,
	}
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (c *DiscrepancyChecker) compareRatio(rule discrepancyRule, appValue, docValue string) *models.FieldDiscrepancy {
	amount, ok := parseAmount(appValue)
	if !ok {
		return nil
	}
	revenue, ok := parseAmount(docValue)
	if !ok {
		return nil
	}

	d := &models.FieldDiscrepancy{
		FieldName:        rule.field,
		ApplicationValue: appValue,
		DocumentValue:    docValue,
		Severity:         rule.severity,
		Suggestion:       "Reassess the requested amount against documented revenue or request additional financial statements",
	}

	if !revenue.IsPositive() {
		if !amount.IsPositive() {
			return nil
		}
		d.Description = fmt.Sprintf("Requested %s against documented %s of %s", amount.StringFixed(2), rule.label, revenue.StringFixed(2))
		return d
	}

	ratio := amount.Div(revenue)
	if ratio.LessThanOrEqual(decimal.NewFromFloat(c.tuning.LoanToRevenueMax)) {
		return nil
	}
	d.Description = fmt.Sprintf("Requested amount is %sx documented %s (limit %.1fx)", ratio.StringFixed(2), rule.label, c.tuning.LoanToRevenueMax)
	return d
}

// consensusSource names the document that supplied the consensus value.
func consensusSource(agg *models.AggregatedFields, label, value string) string {
	for l, entries := range agg.FieldMap {
		if !strings.EqualFold(l, label) {
			continue
		}
		for _, e := range entries {
			if strings.TrimSpace(e.Value) == value {
				if e.DocumentName != "" {
					return e.DocumentName
				}
				return e.DocumentID
			}
		}
	}
	return ""
}

type inferredDiscrepancies struct {
	Discrepancies []struct {
		FieldName        string `json:"fieldName"`
		ApplicationValue string `json:"applicationValue"`
		DocumentValue    string `json:"documentValue"`
		Severity         string `json:"severity"`
		Description      string `json:"description"`
		Suggestion       string `json:"suggestion"`
	} `json:"discrepancies"`
}

func (c *DiscrepancyChecker) inferDiscrepancies(ctx context.Context, app *models.Application, agg *models.AggregatedFields) []models.FieldDiscrepancy {
	if c.inferencer == nil {
		return nil
	}

	var out inferredDiscrepancies
	err := c.inferencer.Infer(ctx, analyzer.Request{
		Task: "discrepancy_review",
		Prompt: "Compare this loan application with the facts extracted from its supporting documents. " +
			"List any inconsistencies that a field-by-field comparison could miss. Use severity critical, high, medium or low.",
		Payload: map[string]any{
			"application":    applicationSnapshot(app),
			"documentFields": agg.ConsensusFields,
		},
		SchemaHint: `{"discrepancies": [{"fieldName": "...", "applicationValue": "...", "documentValue": "...", "severity": "medium", "description": "...", "suggestion": "..."}]}`,
	}, &out)
	if err != nil {
		c.logger.Debug("Discrepancy inference skipped", "application_id", app.ID, "error", err)
		return nil
	}

	var found []models.FieldDiscrepancy
	for _, d := range out.Discrepancies {
		if strings.TrimSpace(d.FieldName) == "" {
			continue
		}
		found = append(found, models.FieldDiscrepancy{
			FieldName:        d.FieldName,
			ApplicationValue: d.ApplicationValue,
			DocumentValue:    d.DocumentValue,
			DocumentSource:   inferenceSource,
			Severity:         models.ParseSeverity(d.Severity, models.SeverityMedium),
			Description:      d.Description,
			Suggestion:       d.Suggestion,
		})
	}
	return found
}

func applicationSnapshot(app *models.Application) map[string]any {
	snapshot := map[string]any{
		"businessName":    app.BusinessName,
		"legalName":       app.LegalName,
		"taxId":           app.TaxID,
		"businessAddress": app.BusinessAddress,
		"ownerName":       app.OwnerName,
		"industry":        app.Industry,
		"amountRequested": app.AmountRequested,
		"monthlyRevenue":  app.MonthlyRevenue,
		"annualRevenue":   app.AnnualRevenue,
		"useOfFunds":      app.UseOfFunds,
	}
	if app.YearsInBusiness != nil {
		snapshot["yearsInBusiness"] = *app.YearsInBusiness
	}
	return snapshot
}

func overallDiscrepancyRisk(ds []models.FieldDiscrepancy) models.Severity {
	high := 0
	for _, d := range ds {
		switch d.Severity {
		case models.SeverityCritical:
			return models.SeverityCritical
		case models.SeverityHigh:
			high++
		}
	}
	switch {
	case high >= 2:
		return models.SeverityHigh
	case high >= 1 || len(ds) > 0:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// reportConfidence falls linearly with the flagged/checked ratio down to the floor.
func (c *DiscrepancyChecker) reportConfidence(flagged, checked int) float64 {
	if checked == 0 {
		return c.tuning.ConfidenceFloor
	}
	ratio := clamp(float64(flagged)/float64(checked), 0, 1)
	return clamp(1-0.7*ratio, c.tuning.ConfidenceFloor, 1)
}

func discrepancyRecommendations(report *models.DiscrepancyReport) []string {
	recs := []string{}
	if report.CheckedFields == 0 && len(report.Discrepancies) == 0 {
		return append(recs, "No application fields could be verified against documents; request identity and financial documents")
	}
	if len(report.Discrepancies) == 0 {
		return append(recs, "Application data is consistent with the submitted documents")
	}

	seen := map[string]bool{}
	for _, d := range report.Discrepancies {
		if d.Suggestion == "" || seen[d.Suggestion] {
			continue
		}
		seen[d.Suggestion] = true
		recs = append(recs, d.Suggestion)
	}
	if report.OverallRisk == models.SeverityCritical {
		recs = append(recs, "Hold the application until identity discrepancies are resolved")
	}
	return recs
}

func formatAmount(v float64) string {
	if v == 0 {
		return ""
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}
