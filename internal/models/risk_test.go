package models

import "testing"

func TestRiskLevelForBoundaries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		score float64
		want  RiskLevel
	}{
		{0, RiskVeryLow},
		{2, RiskVeryLow},
		{2.1, RiskLow},
		{4, RiskLow},
		{4.1, RiskMedium},
		{6, RiskMedium},
		{6.1, RiskHigh},
		{8, RiskHigh},
		{8.1, RiskVeryHigh},
		{10, RiskVeryHigh},
	}

	for _, tt := range tests {
		if got := RiskLevelFor(tt.score); got != tt.want {
			t.Errorf("RiskLevelFor(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestParseSeverityClamps(t *testing.T) {
	t.Parallel()

	if got := ParseSeverity(" HIGH ", SeverityMedium); got != SeverityHigh {
		t.Fatalf("expected high, got %s", got)
	}
	if got := ParseSeverity("severe", SeverityMedium); got != SeverityMedium {
		t.Fatalf("expected fallback medium, got %s", got)
	}
}

func TestConsensusCaseInsensitive(t *testing.T) {
	t.Parallel()

	agg := NewAggregatedFields("app-1")
	agg.Labels = append(agg.Labels, "Business Name")
	agg.ConsensusFields["Business Name"] = "Acme Inc"

	v, ok := agg.Consensus("business name")
	if !ok || v != "Acme Inc" {
		t.Fatalf("expected Acme Inc, got %q (ok=%v)", v, ok)
	}
	if _, ok := agg.Consensus("Tax ID"); ok {
		t.Fatalf("expected missing label")
	}
}
