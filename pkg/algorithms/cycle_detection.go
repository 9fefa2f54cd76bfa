package algorithms

import (
	"context"

	"github.com/dd0wney/cluso-archgraph/pkg/graph"
	"github.com/dd0wney/cluso-archgraph/pkg/storage"
)

// Cycle is a circular dependency as an ordered list of entity ids; the last
// entity points back to the first.
type Cycle []string

// CycleOptions configures DependencyCycles.
type CycleOptions struct {
	Types          []storage.RelationshipType // nil walks the dependency types
	MaxCycleLength int                        // 0 = unlimited
	Limit          int                        // 0 = unlimited
}

// CycleStats summarises detected cycles.
type CycleStats struct {
	TotalCycles   int     `json:"totalCycles"`
	ShortestCycle int     `json:"shortestCycle"`
	LongestCycle  int     `json:"longestCycle"`
	AverageLength float64 `json:"averageLength"`
}

// DependencyCycles reports one cycle per back edge found by a depth-first
// search with three-colour marking:
//   - white: unvisited
//   - gray: on the current DFS stack
//   - black: finished
//
// Reaching a gray entity closes a cycle. The result is deterministic for a
// given index since entities and edges are visited in id order.
func DependencyCycles(ctx context.Context, idx *graph.Index, opts CycleOptions) ([]Cycle, error) {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	types := opts.Types
	if len(types) == 0 {
		types = storage.DependencyTypes()
	}

	p := newPoller(ctx, "cycles")
	if err := p.now(); err != nil {
		return nil, err
	}

	color := make(map[string]int, idx.Len())
	parent := make(map[string]string)
	cycles := make([]Cycle, 0)
	full := func() bool { return opts.Limit > 0 && len(cycles) >= opts.Limit }

	var visit func(id string) error
	visit = func(id string) error {
		color[id] = gray
		edges, _ := idx.Successors(id, types...)
		for _, e := range edges {
			if err := p.check(); err != nil {
				return err
			}
			if full() {
				break
			}
			switch color[e.To] {
			case white:
				parent[e.To] = id
				if err := visit(e.To); err != nil {
					return err
				}
			case gray:
				c := extractCycle(e.To, id, parent)
				if opts.MaxCycleLength == 0 || len(c) <= opts.MaxCycleLength {
					cycles = append(cycles, c)
				}
			}
		}
		color[id] = black
		return nil
	}

	for _, id := range idx.EntityIDs() {
		if full() {
			break
		}
		if color[id] == white {
			if err := visit(id); err != nil {
				return nil, err
			}
		}
	}
	return cycles, nil
}

// extractCycle rebuilds the cycle closed by the back edge end -> start by
// following parent pointers from end to start, then reversing.
func extractCycle(start, end string, parent map[string]string) Cycle {
	rev := Cycle{end}
	for current := end; current != start; {
		p, ok := parent[current]
		if !ok {
			break
		}
		rev = append(rev, p)
		current = p
	}
	for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
		rev[i], rev[j] = rev[j], rev[i]
	}
	return rev
}

// AnalyzeCycles computes statistics about detected cycles
func AnalyzeCycles(cycles []Cycle) CycleStats {
	if len(cycles) == 0 {
		return CycleStats{}
	}

	stats := CycleStats{
		TotalCycles:   len(cycles),
		ShortestCycle: len(cycles[0]),
		LongestCycle:  len(cycles[0]),
	}
	total := 0
	for _, c := range cycles {
		total += len(c)
		if len(c) < stats.ShortestCycle {
			stats.ShortestCycle = len(c)
		}
		if len(c) > stats.LongestCycle {
			stats.LongestCycle = len(c)
		}
	}
	stats.AverageLength = float64(total) / float64(len(cycles))
	return stats
}
