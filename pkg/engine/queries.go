package engine

import (
	"context"

	"github.com/dd0wney/cluso-archgraph/pkg/algorithms"
	"github.com/dd0wney/cluso-archgraph/pkg/graph"
	"github.com/dd0wney/cluso-archgraph/pkg/logging"
	"github.com/dd0wney/cluso-archgraph/pkg/storage"
)

// ChainsQuery selects a chain traversal. A nil Depth uses the configured
// default; zero returns the root alone.
type ChainsQuery struct {
	ID    string
	Depth *int
	Types []storage.RelationshipType
}

// MatrixQuery selects a relationship matrix. Limit 0 uses the configured
// matrix limit.
type MatrixQuery struct {
	IDs          []string
	Limit        int
	Weighted     bool
	IncludeEmpty bool
	OrderBy      algorithms.OrderBy
	Types        []storage.RelationshipType
}

// PathsQuery selects a critical path scan. Nil fields use the configuration.
type PathsQuery struct {
	Limit     *int
	Threshold *float64
	Types     []storage.RelationshipType
}

// CyclesQuery selects dependency cycle detection.
type CyclesQuery struct {
	Types     []storage.RelationshipType
	MaxLength int
	Limit     int
}

// CycleReport lists detected cycles with summary statistics.
type CycleReport struct {
	Cycles []algorithms.Cycle     `json:"cycles"`
	Stats  algorithms.CycleStats `json:"stats"`
	// Tangles groups every entity on a cycle by strongly connected
	// component; it is not affected by Limit or MaxLength.
	Tangles []algorithms.Tangle `json:"tangles"`
}

// Chains returns the depth-bounded dependency chain rooted at q.ID.
func (e *Engine) Chains(ctx context.Context, q ChainsQuery) (*algorithms.ChainResult, error) {
	depth := e.cfg.DefaultDepth
	if q.Depth != nil {
		depth = *q.Depth
	}
	if depth < 0 || depth > e.cfg.MaxDepth {
		return nil, graph.InvalidArgument("chains", "depth %d outside [0, %d]", depth, e.cfg.MaxDepth)
	}
	if err := validateTypes("chains", q.Types); err != nil {
		return nil, err
	}
	if q.ID == "" {
		return nil, graph.InvalidArgument("chains", "entity id required")
	}

	var res *algorithms.ChainResult
	err := e.run(ctx, "chains", []logging.Field{logging.EntityID(q.ID), logging.Depth(depth)},
		func(ctx context.Context, s *snapshot) (int, error) {
			var err error
			res, err = algorithms.Chains(ctx, s.idx, q.ID, algorithms.ChainOptions{
				Depth:       depth,
				Types:       q.Types,
				Criticality: s.crit,
			})
			if err != nil {
				return 0, err
			}
			return len(res.Nodes), nil
		})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Impact returns the transitive impact of id. The result is shared with the
// impact cache and must not be modified.
func (e *Engine) Impact(ctx context.Context, id string) (*algorithms.ImpactResult, error) {
	if id == "" {
		return nil, graph.InvalidArgument("impact", "entity id required")
	}

	var res *algorithms.ImpactResult
	err := e.run(ctx, "impact", []logging.Field{logging.EntityID(id)},
		func(ctx context.Context, s *snapshot) (int, error) {
			var err error
			res, err = e.impactFor(ctx, s, id)
			if err != nil {
				return 0, err
			}
			return len(res.Upstream) + len(res.Downstream), nil
		})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Matrix returns the pairwise relationship table for a node set.
func (e *Engine) Matrix(ctx context.Context, q MatrixQuery) (*algorithms.MatrixResult, error) {
	limit := q.Limit
	if limit == 0 {
		limit = e.cfg.MatrixLimit
	}
	if limit < 0 || limit > e.cfg.MatrixMaxLimit {
		return nil, graph.InvalidArgument("matrix", "limit %d outside [1, %d]", limit, e.cfg.MatrixMaxLimit)
	}
	if err := validateTypes("matrix", q.Types); err != nil {
		return nil, err
	}

	var res *algorithms.MatrixResult
	err := e.run(ctx, "matrix", []logging.Field{logging.Count(len(q.IDs))},
		func(ctx context.Context, s *snapshot) (int, error) {
			var err error
			res, err = algorithms.BuildMatrix(ctx, s.idx, algorithms.MatrixOptions{
				IDs:          q.IDs,
				Limit:        limit,
				Weighted:     q.Weighted,
				IncludeEmpty: q.IncludeEmpty,
				OrderBy:      q.OrderBy,
				Types:        q.Types,
			})
			if err != nil {
				return 0, err
			}
			return len(res.Cells), nil
		})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// CriticalPaths returns the highest-risk dependency paths.
func (e *Engine) CriticalPaths(ctx context.Context, q PathsQuery) ([]algorithms.CriticalPath, error) {
	pc := e.cfg.Paths
	limit, threshold := pc.Limit, pc.Threshold
	if q.Limit != nil {
		limit = *q.Limit
	}
	if q.Threshold != nil {
		threshold = *q.Threshold
	}
	if limit < 1 || limit > pc.MaxLimit {
		return nil, graph.InvalidArgument("critical_paths", "limit %d outside [1, %d]", limit, pc.MaxLimit)
	}
	if threshold <= 0 || threshold > 100 {
		return nil, graph.InvalidArgument("critical_paths", "threshold %.1f outside (0, 100]", threshold)
	}
	if err := validateTypes("critical_paths", q.Types); err != nil {
		return nil, err
	}

	var paths []algorithms.CriticalPath
	err := e.run(ctx, "critical_paths", []logging.Field{logging.Int("limit", limit), logging.Float64("threshold", threshold)},
		func(ctx context.Context, s *snapshot) (int, error) {
			var err error
			paths, err = algorithms.CriticalPaths(ctx, s.idx, algorithms.PathOptions{
				Types:         q.Types,
				MinLength:     pc.MinLength,
				MaxLength:     pc.MaxLength,
				Threshold:     threshold,
				Limit:         limit,
				MaxExpansions: pc.MaxExpansions,
				Concurrency:   pc.Concurrency,
				Criticality:   s.crit,
			})
			return len(paths), err
		})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// RelationshipTypes summarises every relationship type in enumeration order.
func (e *Engine) RelationshipTypes(ctx context.Context) ([]algorithms.TypeSummary, error) {
	var res []algorithms.TypeSummary
	err := e.run(ctx, "relationship_types", nil,
		func(ctx context.Context, s *snapshot) (int, error) {
			res = algorithms.RelationshipTypeSummary(s.idx)
			return len(res), nil
		})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Cycles reports dependency cycles in the current snapshot.
func (e *Engine) Cycles(ctx context.Context, q CyclesQuery) (*CycleReport, error) {
	if q.Limit < 0 || q.MaxLength < 0 {
		return nil, graph.InvalidArgument("cycles", "limit and maxLength must not be negative")
	}
	if err := validateTypes("cycles", q.Types); err != nil {
		return nil, err
	}

	var report *CycleReport
	err := e.run(ctx, "cycles", nil,
		func(ctx context.Context, s *snapshot) (int, error) {
			cycles, err := algorithms.DependencyCycles(ctx, s.idx, algorithms.CycleOptions{
				Types:          q.Types,
				MaxCycleLength: q.MaxLength,
				Limit:          q.Limit,
			})
			if err != nil {
				return 0, err
			}
			tangles, err := algorithms.Tangles(ctx, s.idx, q.Types)
			if err != nil {
				return 0, err
			}
			report = &CycleReport{Cycles: cycles, Stats: algorithms.AnalyzeCycles(cycles), Tangles: tangles}
			return len(cycles), nil
		})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func validateTypes(op string, types []storage.RelationshipType) error {
	for _, t := range types {
		if !t.IsValid() {
			return graph.InvalidArgument(op, "unknown relationship type %d", uint8(t))
		}
	}
	return nil
}
