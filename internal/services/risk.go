package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/BerylCAtieno/loan-intelligence-api/internal/analyzer"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/config"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/models"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/utils"
)

// Collaborators of the risk scorer, narrowed for substitution in tests.
type (
	DocumentAggregator interface {
		AggregateDocuments(ctx context.Context, applicationID string, docs []models.Document) (*models.AggregatedFields, error)
	}
	DiscrepancyComparer interface {
		Compare(ctx context.Context, app *models.Application, agg *models.AggregatedFields) (*models.DiscrepancyReport, error)
	}
	StatementAnalyzer interface {
		AnalyzeDocument(ctx context.Context, doc *models.Document) (*models.BankingAnalysis, error)
	}
)

var (
	_ DocumentAggregator  = (*FieldAggregator)(nil)
	_ DiscrepancyComparer = (*DiscrepancyChecker)(nil)
	_ StatementAnalyzer   = (*BankingAnalyzer)(nil)
)

var (
	bankingFilenameHints = []string{"bank", "stmt"}
	// Statements that are not bank statements.
	nonBankingStatementHints = []string{"income", "financial", "profit", "p&l", "p and l", "balance sheet"}
)

// RiskScorer gathers every upstream analysis and turns it into one weighted score.
type RiskScorer struct {
	store         DocumentStore
	aggregator    DocumentAggregator
	discrepancies DiscrepancyComparer
	banking       StatementAnalyzer
	inferencer    Inferencer
	tuning        config.ScoringTuning
	logger        *utils.Logger
	now           func() time.Time
}

func NewRiskScorer(store DocumentStore, aggregator DocumentAggregator, discrepancies DiscrepancyComparer, banking StatementAnalyzer, inferencer Inferencer, tuning config.ScoringTuning, logger *utils.Logger) *RiskScorer {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &RiskScorer{
		store:         store,
		aggregator:    aggregator,
		discrepancies: discrepancies,
		banking:       banking,
		inferencer:    inferencer,
		tuning:        tuning,
		logger:        logger,
		now:           time.Now,
	}
}

// gathered holds one Result per sub-call.
type gathered struct {
	documents     Result[[]models.Document]
	aggregation   Result[*models.AggregatedFields]
	discrepancies Result[*models.DiscrepancyReport]
	banking       Result[*models.BankingAnalysis]
}

func (g gathered) degraded() []string {
	var steps []string
	for _, d := range []*Degradation{g.documents.Degraded, g.aggregation.Degraded, g.discrepancies.Degraded, g.banking.Degraded} {
		if d != nil {
			steps = append(steps, d.Step)
		}
	}
	return steps
}

// Score fails only when the application cannot be loaded; every other failure lowers
// confidence instead.
func (s *RiskScorer) Score(ctx context.Context, applicationID string) (*models.RiskScoreAnalysis, error) {
	app, err := s.store.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	g := s.gather(ctx, app)
	for _, step := range []*Degradation{g.documents.Degraded, g.aggregation.Degraded, g.discrepancies.Degraded, g.banking.Degraded} {
		if step != nil {
			s.logger.Warn("Risk input degraded", "application_id", app.ID, "step", step.Step, "error", step.Err)
		}
	}

	in := scoringInputs{
		app:           app,
		documents:     g.documents.Value,
		aggregation:   g.aggregation.Value,
		discrepancies: g.discrepancies.Value,
		banking:       g.banking.Value,
	}

	var f factors
	components := models.RiskScoreComponents{
		BusinessRisk:   businessRisk(in, s.tuning, &f),
		FinancialRisk:  financialRisk(in, s.tuning, &f),
		DocumentRisk:   documentRisk(in, &f),
		BankingRisk:    bankingRisk(in, &f),
		ComplianceRisk: complianceRisk(in, &f),
	}
	score := overallScore(components, s.tuning.Weights)

	analysis := &models.RiskScoreAnalysis{
		ApplicationID:     app.ID,
		OverallScore:      score,
		RiskLevel:         models.RiskLevelFor(score),
		Components:        components,
		RiskFactors:       nonNil(f.risk),
		MitigatingFactors: nonNil(f.mitigating),
		Confidence:        scoreConfidence(in, g.aggregation.OK()),
		DegradedInputs:    g.degraded(),
		CalculatedAt:      s.now().UTC(),
	}
	s.narrate(ctx, analysis)

	s.logger.Info("Risk score calculated",
		"application_id", app.ID,
		"score", analysis.OverallScore,
		"level", analysis.RiskLevel,
		"confidence", analysis.Confidence)

	return analysis, nil
}

// gather loads documents, then runs {aggregation -> discrepancy} and {banking} concurrently.
func (s *RiskScorer) gather(ctx context.Context, app *models.Application) gathered {
	var g gathered

	docs, err := s.store.ListDocuments(ctx, app.ID)
	if err != nil {
		g.documents = Degrade("documents", err, []models.Document{})
	} else {
		g.documents = Ok(docs)
	}
	docs = g.documents.Value

	var group errgroup.Group
	group.Go(func() error {
		agg, err := s.aggregator.AggregateDocuments(ctx, app.ID, docs)
		if err != nil || agg == nil {
			g.aggregation = Degrade("aggregation", errOrMissing(err), models.NewAggregatedFields(app.ID))
		} else {
			g.aggregation = Ok(agg)
		}

		report, err := s.discrepancies.Compare(ctx, app, g.aggregation.Value)
		if err != nil || report == nil {
			g.discrepancies = Degrade("discrepancies", errOrMissing(err), emptyDiscrepancyReport(app.ID))
		} else {
			g.discrepancies = Ok(report)
		}
		return nil
	})
	group.Go(func() error {
		doc := findBankingDocument(docs)
		if doc == nil {
			g.banking = Ok[*models.BankingAnalysis](nil)
			return nil
		}
		analysis, err := s.banking.AnalyzeDocument(ctx, doc)
		switch {
		case err != nil:
			g.banking = Degrade[*models.BankingAnalysis]("banking", err, nil)
		case analysis == nil || len(analysis.MonthlyStats) == 0:
			g.banking = Degrade[*models.BankingAnalysis]("banking",
				fmt.Errorf("%w: no monthly activity in %s", utils.ErrExtractionUnavailable, doc.Filename), nil)
		default:
			g.banking = Ok(analysis)
		}
		return nil
	})
	_ = group.Wait()

	return g
}

func errOrMissing(err error) error {
	if err != nil {
		return err
	}
	return errors.New("no result")
}

func emptyDiscrepancyReport(applicationID string) *models.DiscrepancyReport {
	return &models.DiscrepancyReport{
		ApplicationID:   applicationID,
		Discrepancies:   []models.FieldDiscrepancy{},
		OverallRisk:     models.SeverityLow,
		Recommendations: []string{},
	}
}

// findBankingDocument prefers a document typed as a bank statement, then a
// filename naming a bank or "stmt", then any other statement that is not a
// financial statement such as a P&L or balance sheet.
func findBankingDocument(docs []models.Document) *models.Document {
	for i := range docs {
		if strings.Contains(strings.ToLower(docs[i].DocumentType), "bank") {
			return &docs[i]
		}
	}
	for i := range docs {
		name := strings.ToLower(docs[i].Filename)
		for _, hint := range bankingFilenameHints {
			if strings.Contains(name, hint) {
				return &docs[i]
			}
		}
	}
	for i := range docs {
		kind := documentKind(docs[i])
		if strings.Contains(kind, "statement") && !containsAny(kind, nonBankingStatementHints) {
			return &docs[i]
		}
	}
	return nil
}

// documentKind joins type and filename with separators turned into spaces.
func documentKind(doc models.Document) string {
	kind := strings.ToLower(doc.DocumentType + " " + doc.Filename)
	return strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(kind)
}

func containsAny(s string, substrs []string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

type riskNarrative struct {
	RiskFactors       []string `json:"riskFactors"`
	MitigatingFactors []string `json:"mitigatingFactors"`
	Justification     string   `json:"justification"`
	Recommendations   []string `json:"recommendations"`
}

// narrate asks for a narrative and falls back to a deterministic one.
func (s *RiskScorer) narrate(ctx context.Context, a *models.RiskScoreAnalysis) {
	a.Justification = fallbackJustification(a)
	a.Recommendations = fallbackRecommendations(a.RiskLevel)

	if s.inferencer == nil {
		return
	}

	var out riskNarrative
	err := s.inferencer.Infer(ctx, analyzer.Request{
		Task: "risk_narrative",
		Prompt: "You are a commercial loan underwriter. Using the computed risk score and its components, " +
			"write a short justification and concrete recommendations. Do not change the score.",
		Payload: map[string]any{
			"overallScore":      a.OverallScore,
			"riskLevel":         a.RiskLevel,
			"components":        a.Components,
			"riskFactors":       a.RiskFactors,
			"mitigatingFactors": a.MitigatingFactors,
			"confidence":        a.Confidence,
			"missingInputs":     a.DegradedInputs,
		},
		SchemaHint: `{"riskFactors": ["..."], "mitigatingFactors": ["..."], "justification": "...", "recommendations": ["..."]}`,
	}, &out)
	if err != nil || strings.TrimSpace(out.Justification) == "" {
		s.logger.Debug("Risk narrative fallback used", "application_id", a.ApplicationID, "error", err)
		return
	}

	a.Justification = strings.TrimSpace(out.Justification)
	if len(out.RiskFactors) > 0 {
		a.RiskFactors = out.RiskFactors
	}
	if len(out.MitigatingFactors) > 0 {
		a.MitigatingFactors = out.MitigatingFactors
	}
	if len(out.Recommendations) > 0 {
		a.Recommendations = out.Recommendations
	}
}

func fallbackJustification(a *models.RiskScoreAnalysis) string {
	c := a.Components
	text := fmt.Sprintf("Overall risk score %.1f/10 (%s). Component scores: business %.1f, financial %.1f, document %.1f, banking %.1f, compliance %.1f.",
		a.OverallScore, a.RiskLevel, c.BusinessRisk, c.FinancialRisk, c.DocumentRisk, c.BankingRisk, c.ComplianceRisk)
	if len(a.RiskFactors) > 0 {
		text += " Main concerns: " + strings.Join(a.RiskFactors, "; ") + "."
	}
	if len(a.DegradedInputs) > 0 {
		text += " Some inputs were unavailable: " + strings.Join(a.DegradedInputs, ", ") + "."
	}
	return text
}

func fallbackRecommendations(level models.RiskLevel) []string {
	switch level {
	case models.RiskVeryLow, models.RiskLow:
		return []string{"Proceed with standard terms"}
	case models.RiskMedium:
		return []string{"Proceed with standard verification and consider additional collateral"}
	case models.RiskHigh:
		return []string{"Require senior underwriter review", "Consider a reduced amount or shorter term"}
	default:
		return []string{"Decline or require substantial mitigation before approval"}
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
