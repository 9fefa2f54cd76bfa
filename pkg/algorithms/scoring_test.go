package algorithms

import (
	"math"
	"testing"
)

func TestClassifyRisk_Boundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  RiskLevel
	}{
		{0, RiskLow},
		{39.9, RiskLow},
		{40, RiskMedium},
		{59.9, RiskMedium},
		{60, RiskHigh},
		{79.9, RiskHigh},
		{80, RiskCritical},
		{100, RiskCritical},
		{-5, RiskLow},
		{math.NaN(), RiskLow},
	}

	for _, tt := range tests {
		if got := ClassifyRisk(tt.score); got != tt.want {
			t.Errorf("ClassifyRisk(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestRiskLevel_Rank(t *testing.T) {
	levels := []RiskLevel{RiskLow, RiskMedium, RiskHigh, RiskCritical}
	for i, l := range levels {
		if l.Rank() != i {
			t.Errorf("%s rank = %d, want %d", l, l.Rank(), i)
		}
	}
}

func TestScorer_Bounds(t *testing.T) {
	s := DefaultScorer()

	if got := s.Score(ScoreInput{}); got != 0 {
		t.Errorf("empty input scored %.1f, want 0", got)
	}
	if got := s.Score(ScoreInput{Base: 100}); got != 35 {
		t.Errorf("isolated max base scored %.1f, want 35", got)
	}

	max := s.Score(ScoreInput{Base: 100, Upstream: 1000, Downstream: 1000, MaxStrength: 1})
	if max > 100 || max < 99 {
		t.Errorf("saturated score = %.1f, want close to 100", max)
	}

	// Out of range inputs are clamped
	if got := s.Score(ScoreInput{Base: 500, MaxStrength: 3}); got != s.Score(ScoreInput{Base: 100, MaxStrength: 1}) {
		t.Errorf("clamping failed: %.1f", got)
	}
}

func TestScorer_MonotonicInEachInput(t *testing.T) {
	s := DefaultScorer()
	in := ScoreInput{Base: 40, Upstream: 2, Downstream: 3, MaxStrength: 0.4}
	base := s.Score(in)

	more := in
	more.Upstream++
	if s.Score(more) < base {
		t.Error("extra upstream lowered the score")
	}
	more = in
	more.Downstream++
	if s.Score(more) < base {
		t.Error("extra downstream lowered the score")
	}
	more = in
	more.MaxStrength = 0.9
	if s.Score(more) < base {
		t.Error("stronger edge lowered the score")
	}
}

func TestScorer_OneDecimal(t *testing.T) {
	s := DefaultScorer()
	got := s.Score(ScoreInput{Base: 33, Upstream: 3, Downstream: 1, MaxStrength: 0.37})
	if math.Abs(got*10-math.Round(got*10)) > 1e-9 {
		t.Errorf("score %v not rounded to one decimal", got)
	}
}
