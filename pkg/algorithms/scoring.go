package algorithms

import (
	"context"
	"math"
	"sync"

	"github.com/dd0wney/cluso-archgraph/pkg/graph"
)

// RiskLevel is the ordered band a criticality score falls into.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Band floors. A score belongs to the highest band whose floor it reaches.
const (
	MediumFloor   = 40.0
	HighFloor     = 60.0
	CriticalFloor = 80.0
)

// ClassifyRisk maps a criticality score to exactly one band. Values below
// zero, and NaN, classify as low.
func ClassifyRisk(criticality float64) RiskLevel {
	switch {
	case criticality >= CriticalFloor:
		return RiskCritical
	case criticality >= HighFloor:
		return RiskHigh
	case criticality >= MediumFloor:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Rank orders bands from low (0) to critical (3).
func (r RiskLevel) Rank() int {
	switch r {
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	case RiskCritical:
		return 3
	default:
		return 0
	}
}

// ScoreInput is everything the scorer looks at for one entity.
type ScoreInput struct {
	Base        float64 // entity criticalityBase, 0-100
	Upstream    int     // transitive dependents
	Downstream  int     // transitive dependencies
	MaxStrength float64 // strongest edge seen in either walk
}

// Scorer computes criticality:
//
//	reach       = UpstreamWeight*up + DownstreamWeight*down
//	structural  = 1 - exp(-reach / Saturation)
//	criticality = BaseWeight*base/100
//	            + StructureWeight*structural*(0.5 + 0.5*maxStrength)
//	            + StrengthWeight*maxStrength
//
// The result is clamped to [0,100] and rounded to one decimal. With
// non-negative weights every term is non-decreasing in up, down and
// maxStrength.
type Scorer struct {
	BaseWeight       float64
	StructureWeight  float64
	StrengthWeight   float64
	UpstreamWeight   float64
	DownstreamWeight float64
	Saturation       float64
}

// DefaultScorer weights the three terms 35/50/15. Dependents count double
// relative to dependencies; five weighted neighbours reach ~63% of the
// structural term.
func DefaultScorer() Scorer {
	return Scorer{
		BaseWeight:       35,
		StructureWeight:  50,
		StrengthWeight:   15,
		UpstreamWeight:   1.0,
		DownstreamWeight: 0.5,
		Saturation:       5,
	}
}

// Score returns the criticality for in.
func (s Scorer) Score(in ScoreInput) float64 {
	base := clamp(in.Base, 0, 100)
	strength := clamp(in.MaxStrength, 0, 1)

	structural := 0.0
	if s.Saturation > 0 {
		reach := s.UpstreamWeight*float64(in.Upstream) + s.DownstreamWeight*float64(in.Downstream)
		structural = 1 - math.Exp(-reach/s.Saturation)
	}

	c := s.BaseWeight*base/100 +
		s.StructureWeight*structural*(0.5+0.5*strength) +
		s.StrengthWeight*strength
	return round1(clamp(c, 0, 100))
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// CriticalityFunc returns the criticality of one entity. Implementations
// must be safe for concurrent use.
type CriticalityFunc func(ctx context.Context, id string) (float64, error)

// NewCriticalityFunc returns a memoising CriticalityFunc over idx that runs
// a full impact analysis per entity on first request.
func NewCriticalityFunc(idx *graph.Index, scorer Scorer) CriticalityFunc {
	var memo sync.Map
	return func(ctx context.Context, id string) (float64, error) {
		if v, ok := memo.Load(id); ok {
			return v.(float64), nil
		}
		res, err := Impact(ctx, idx, id, ImpactOptions{Scorer: &scorer})
		if err != nil {
			return 0, err
		}
		memo.Store(id, res.Criticality)
		return res.Criticality, nil
	}
}
