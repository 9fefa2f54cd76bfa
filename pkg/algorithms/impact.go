package algorithms

import (
	"context"
	"sort"

	"github.com/dd0wney/cluso-archgraph/pkg/graph"
	"github.com/dd0wney/cluso-archgraph/pkg/storage"
)

// DefaultDecomposeThreshold is the downstream count above which an entity is
// flagged as a decomposition candidate.
const DefaultDecomposeThreshold = 5

// ImpactOptions configures Impact.
type ImpactOptions struct {
	Types              []storage.RelationshipType // nil walks every type
	Scorer             *Scorer                    // nil uses DefaultScorer
	DecomposeThreshold int                        // 0 uses DefaultDecomposeThreshold
}

// ImpactResult is the transitive impact of one entity.
type ImpactResult struct {
	EntityID         string    `json:"entityId"`
	Upstream         []string  `json:"upstream"`
	Downstream       []string  `json:"downstream"`
	Criticality      float64   `json:"criticality"`
	RiskLevel        RiskLevel `json:"riskLevel"`
	MaxStrength      float64   `json:"maxStrength"`
	DirectUpstream   int       `json:"directUpstream"`
	DirectDownstream int       `json:"directDownstream"`

	// Presentation hints derived from the counts above.
	SafeToRefactor      bool `json:"safeToRefactor"`
	ConsiderDecomposing bool `json:"considerDecomposing"`
}

// Impact computes the full transitive upstream and downstream sets of id and
// scores it. Walks are unbounded in depth; the visited set guarantees
// termination on cyclic graphs and the root is never listed in its own sets.
func Impact(ctx context.Context, idx *graph.Index, id string, opts ImpactOptions) (*ImpactResult, error) {
	entity, ok := idx.Entity(id)
	if !ok {
		return nil, graph.NotFound("impact", id)
	}

	scorer := DefaultScorer()
	if opts.Scorer != nil {
		scorer = *opts.Scorer
	}
	threshold := opts.DecomposeThreshold
	if threshold <= 0 {
		threshold = DefaultDecomposeThreshold
	}

	p := newPoller(ctx, "impact")
	if err := p.now(); err != nil {
		return nil, err
	}

	set := graph.NewTypeSet(opts.Types...)
	upstream, upMax, directUp, err := closure(p, idx, id, set, true)
	if err != nil {
		return nil, err
	}
	downstream, downMax, directDown, err := closure(p, idx, id, set, false)
	if err != nil {
		return nil, err
	}

	maxStrength := upMax
	if downMax > maxStrength {
		maxStrength = downMax
	}

	criticality := scorer.Score(ScoreInput{
		Base:        entity.CriticalityBase,
		Upstream:    len(upstream),
		Downstream:  len(downstream),
		MaxStrength: maxStrength,
	})

	return &ImpactResult{
		EntityID:            id,
		Upstream:            upstream,
		Downstream:          downstream,
		Criticality:         criticality,
		RiskLevel:           ClassifyRisk(criticality),
		MaxStrength:         maxStrength,
		DirectUpstream:      directUp,
		DirectDownstream:    directDown,
		SafeToRefactor:      len(upstream) == 0,
		ConsiderDecomposing: len(downstream) > threshold,
	}, nil
}

// closure walks in-edges (reverse) or out-edges from root breadth-first.
// It returns the reached ids sorted, the strongest edge examined and the
// number of distinct direct neighbours.
func closure(p *poller, idx *graph.Index, root string, set graph.TypeSet, reverse bool) ([]string, float64, int, error) {
	visited := map[string]bool{root: true}
	queue := []string{root}
	reached := make([]string, 0)
	maxStrength := 0.0
	direct := 0

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		var edges []graph.Edge
		if reverse {
			edges, _ = idx.Predecessors(current, set.Types()...)
		} else {
			edges, _ = idx.Successors(current, set.Types()...)
		}

		for _, e := range edges {
			if err := p.check(); err != nil {
				return nil, 0, 0, err
			}
			if e.Strength > maxStrength {
				maxStrength = e.Strength
			}
			next := e.To
			if reverse {
				next = e.From
			}
			if visited[next] {
				continue
			}
			visited[next] = true
			if current == root {
				direct++
			}
			reached = append(reached, next)
			queue = append(queue, next)
		}
	}

	sort.Strings(reached)
	return reached, maxStrength, direct, nil
}
