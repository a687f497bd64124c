package services

import (
	"context"

	"github.com/BerylCAtieno/loan-intelligence-api/internal/cache"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/config"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/models"
	"github.com/BerylCAtieno/loan-intelligence-api/internal/utils"
)

// PipelineDeps wires the collaborators of the scoring pipeline. Inferencer and FieldCache
// are optional.
type PipelineDeps struct {
	Store      DocumentStore
	Extractor  TextExtractor
	Inferencer Inferencer
	FieldCache cache.FieldCache
	Tuning     config.Tuning
	Logger     *utils.Logger
}

// Pipeline exposes every component per application or document id.
type Pipeline struct {
	Fields        *FieldExtractor
	Aggregator    *FieldAggregator
	Discrepancies *DiscrepancyChecker
	Banking       *BankingAnalyzer
	NSF           *NSFTrendAnalyzer
	Scorer        *RiskScorer
}

func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	fields := NewFieldExtractor(deps.Extractor, deps.Inferencer, deps.FieldCache, logger.With("component", "fields"))
	aggregator := NewFieldAggregator(deps.Store, fields, deps.Inferencer, logger.With("component", "aggregator"))
	discrepancies := NewDiscrepancyChecker(deps.Store, aggregator, deps.Inferencer, deps.Tuning.Discrepancy, logger.With("component", "discrepancies"))
	banking := NewBankingAnalyzer(deps.Store, deps.Extractor, deps.Inferencer, deps.Tuning.Banking, logger.With("component", "banking"))
	nsf := NewNSFTrendAnalyzer(banking, deps.Tuning.NSF, logger.With("component", "nsf"))
	scorer := NewRiskScorer(deps.Store, aggregator, discrepancies, banking, deps.Inferencer, deps.Tuning.Scoring, logger.With("component", "scorer"))

	return &Pipeline{
		Fields:        fields,
		Aggregator:    aggregator,
		Discrepancies: discrepancies,
		Banking:       banking,
		NSF:           nsf,
		Scorer:        scorer,
	}
}

func (p *Pipeline) AggregateFields(ctx context.Context, applicationID string) (*models.AggregatedFields, error) {
	return p.Aggregator.Aggregate(ctx, applicationID)
}

func (p *Pipeline) CheckDiscrepancies(ctx context.Context, applicationID string) (*models.DiscrepancyReport, error) {
	return p.Discrepancies.Check(ctx, applicationID)
}

func (p *Pipeline) AnalyzeBanking(ctx context.Context, documentID string) (*models.BankingAnalysis, error) {
	return p.Banking.Analyze(ctx, documentID)
}

func (p *Pipeline) AnalyzeBankingBatch(ctx context.Context, documentIDs []string) *models.BatchBankingResult {
	return p.Banking.AnalyzeBatch(ctx, documentIDs)
}

func (p *Pipeline) NSFTrends(ctx context.Context, documentID string) (*models.NSFTrendAnalysis, error) {
	return p.NSF.Analyze(ctx, documentID)
}

func (p *Pipeline) ScoreApplication(ctx context.Context, applicationID string) (*models.RiskScoreAnalysis, error) {
	return p.Scorer.Score(ctx, applicationID)
}
