package config

import (
	"fmt"
	"math"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Tuning holds the numeric constants of the scoring pipeline. Defaults reproduce the
// production thresholds; a YAML file may override any subset.
type Tuning struct {
	Discrepancy DiscrepancyTuning `yaml:"discrepancy"`
	Banking     BankingTuning     `yaml:"banking"`
	NSF         NSFTuning         `yaml:"nsf"`
	Scoring     ScoringTuning     `yaml:"scoring"`
}

type DiscrepancyTuning struct {
	FuzzyThreshold   float64 `yaml:"fuzzyThreshold" validate:"gt=0,lte=1"`
	LoanToRevenueMax float64 `yaml:"loanToRevenueMax" validate:"gt=0"`
	ConfidenceFloor  float64 `yaml:"confidenceFloor" validate:"gte=0,lte=1"`
}

type BankingTuning struct {
	OverdraftFlagFrequency float64 `yaml:"overdraftFlagFrequency" validate:"gt=0,lte=1"`
	LowBalanceFlag         float64 `yaml:"lowBalanceFlag"`
	TrendDeadband          float64 `yaml:"trendDeadband" validate:"gte=0,lt=1"`
}

type NSFTuning struct {
	CriticalAverage float64 `yaml:"criticalAverage" validate:"gt=0"`
	CriticalTotal   int     `yaml:"criticalTotal" validate:"gt=0"`
	HighAverage     float64 `yaml:"highAverage" validate:"gt=0"`
	HighTotal       int     `yaml:"highTotal" validate:"gt=0"`
	ModerateAverage float64 `yaml:"moderateAverage" validate:"gt=0"`
	ModerateTotal   int     `yaml:"moderateTotal" validate:"gt=0"`
}

type ScoringTuning struct {
	Weights            Weights  `yaml:"weights"`
	AssumedTermMonths  int      `yaml:"assumedTermMonths" validate:"gt=0"`
	LoanPerMonthOfAge  float64  `yaml:"loanPerMonthOfAge" validate:"gt=0"`
	HighRiskIndustries []string `yaml:"highRiskIndustries"`
}

type Weights struct {
	Business   float64 `yaml:"business" validate:"gte=0,lte=1"`
	Financial  float64 `yaml:"financial" validate:"gte=0,lte=1"`
	Document   float64 `yaml:"document" validate:"gte=0,lte=1"`
	Banking    float64 `yaml:"banking" validate:"gte=0,lte=1"`
	Compliance float64 `yaml:"compliance" validate:"gte=0,lte=1"`
}

func (w Weights) Sum() float64 {
	return w.Business + w.Financial + w.Document + w.Banking + w.Compliance
}

func DefaultTuning() Tuning {
	return Tuning{
		Discrepancy: DiscrepancyTuning{
			FuzzyThreshold:   0.8,
			LoanToRevenueMax: 2.0,
			ConfidenceFloor:  0.3,
		},
		Banking: BankingTuning{
			OverdraftFlagFrequency: 0.10,
			LowBalanceFlag:         -1000,
			TrendDeadband:          0.10,
		},
		NSF: NSFTuning{
			CriticalAverage: 3,
			CriticalTotal:   15,
			HighAverage:     1.5,
			HighTotal:       8,
			ModerateAverage: 0.5,
			ModerateTotal:   3,
		},
		Scoring: ScoringTuning{
			Weights: Weights{
				Business:   0.25,
				Financial:  0.30,
				Document:   0.20,
				Banking:    0.20,
				Compliance: 0.05,
			},
			AssumedTermMonths: 36,
			LoanPerMonthOfAge: 10000,
			HighRiskIndustries: []string{
				"restaurant", "food service", "construction", "trucking", "transportation",
				"retail", "hospitality", "travel", "real estate", "cannabis", "gambling",
				"auto sales", "entertainment",
			},
		},
	}
}

// LoadTuning overlays a YAML file onto the defaults.
func LoadTuning(path string) (Tuning, error) {
	tuning := DefaultTuning()

	raw, err := os.ReadFile(path)
	if err != nil {
		return Tuning{}, fmt.Errorf("read tuning file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &tuning); err != nil {
		return Tuning{}, fmt.Errorf("parse tuning file %s: %w", path, err)
	}

	return tuning, nil
}

func (t Tuning) Validate() error {
	if err := validator.New().Struct(t); err != nil {
		return err
	}
	if sum := t.Scoring.Weights.Sum(); math.Abs(sum-1) > 0.001 {
		return fmt.Errorf("scoring weights must sum to 1, got %.3f", sum)
	}
	n := t.NSF
	if n.CriticalAverage < n.HighAverage || n.HighAverage < n.ModerateAverage ||
		n.CriticalTotal < n.HighTotal || n.HighTotal < n.ModerateTotal {
		return fmt.Errorf("nsf thresholds must be non-decreasing from moderate to critical")
	}
	return nil
}
