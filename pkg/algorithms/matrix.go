package algorithms

import (
	"context"
	"sort"

	"github.com/dd0wney/cluso-archgraph/pkg/graph"
	"github.com/dd0wney/cluso-archgraph/pkg/storage"
)

// DefaultMatrixLimit caps the node set of a matrix.
const DefaultMatrixLimit = 20

// OrderBy selects the default node set when no ids are given.
type OrderBy string

const (
	OrderCriticality OrderBy = "criticality" // criticalityBase desc
	OrderRecency     OrderBy = "recency"     // UpdatedAt desc
)

// ParseOrderBy accepts "" (criticality), "criticality" and "recency".
func ParseOrderBy(s string) (OrderBy, error) {
	switch OrderBy(s) {
	case "", OrderCriticality:
		return OrderCriticality, nil
	case OrderRecency:
		return OrderRecency, nil
	}
	return "", graph.InvalidArgument("matrix", "unknown order %q", s)
}

// MatrixOptions configures BuildMatrix.
type MatrixOptions struct {
	IDs          []string // explicit node set; duplicates are ignored
	Limit        int      // 0 uses DefaultMatrixLimit
	Weighted     bool     // value is the strength sum instead of the edge count
	IncludeEmpty bool     // emit cells for pairs with no edges
	OrderBy      OrderBy
	Types        []storage.RelationshipType // nil aggregates every type
}

// MatrixNode is one row/column of the matrix.
type MatrixNode struct {
	ID   string             `json:"id"`
	Name string             `json:"name"`
	Type storage.EntityType `json:"type"`
}

// MatrixCell aggregates every edge source -> target. Type is the dominant
// relationship type and is nil for empty cells.
type MatrixCell struct {
	Source string                    `json:"source"`
	Target string                    `json:"target"`
	Value  float64                   `json:"value"`
	Count  int                       `json:"count"`
	Type   *storage.RelationshipType `json:"type,omitempty"`
}

// MatrixResult is the pairwise table. RequestedCount is the size of the node
// set before capping; it differs from ReturnedCount only when the default
// node set was capped.
type MatrixResult struct {
	Nodes          []MatrixNode `json:"nodes"`
	Cells          []MatrixCell `json:"cells"`
	RequestedCount int          `json:"requestedCount"`
	ReturnedCount  int          `json:"returnedCount"`
	Truncated      bool         `json:"truncated"`
	Weighted       bool         `json:"weighted"`
}

// BuildMatrix aggregates edges for every ordered pair (i, j), i != j, of the
// node set. Cell (A,B) and (B,A) are independent.
func BuildMatrix(ctx context.Context, idx *graph.Index, opts MatrixOptions) (*MatrixResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultMatrixLimit
	}
	p := newPoller(ctx, "matrix")
	if err := p.now(); err != nil {
		return nil, err
	}

	ids, requested, err := matrixNodeSet(idx, opts, limit)
	if err != nil {
		return nil, err
	}

	position := make(map[string]int, len(ids))
	nodes := make([]MatrixNode, len(ids))
	for i, id := range ids {
		position[id] = i
		e, _ := idx.Entity(id)
		nodes[i] = MatrixNode{ID: e.ID, Name: e.Name, Type: e.Type}
	}

	type aggregate struct {
		count  int
		value  float64
		byType [storage.NumRelationshipTypes]float64
	}
	n := len(ids)
	grid := make([]aggregate, n*n)

	for i, id := range ids {
		edges, _ := idx.Successors(id, opts.Types...)
		for _, e := range edges {
			if err := p.check(); err != nil {
				return nil, err
			}
			j, ok := position[e.To]
			if !ok || j == i {
				continue
			}
			w := 1.0
			if opts.Weighted {
				w = e.Strength
			}
			a := &grid[i*n+j]
			a.count++
			a.value += w
			a.byType[e.Type] += w
		}
	}

	cells := make([]MatrixCell, 0)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			a := grid[i*n+j]
			if a.count == 0 && !opts.IncludeEmpty {
				continue
			}
			cell := MatrixCell{Source: ids[i], Target: ids[j], Value: a.value, Count: a.count}
			if a.count > 0 {
				t := dominantType(a.byType)
				cell.Type = &t
			}
			cells = append(cells, cell)
		}
	}

	return &MatrixResult{
		Nodes:          nodes,
		Cells:          cells,
		RequestedCount: requested,
		ReturnedCount:  len(ids),
		Truncated:      requested > len(ids),
		Weighted:       opts.Weighted,
	}, nil
}

// dominantType picks the heaviest type; ties go to the earlier type in the
// enumeration.
func dominantType(weights [storage.NumRelationshipTypes]float64) storage.RelationshipType {
	best := storage.RelationshipTypes[0]
	for _, t := range storage.RelationshipTypes[1:] {
		if weights[t] > weights[best] {
			best = t
		}
	}
	return best
}

// matrixNodeSet resolves the ordered node set and the requested count.
func matrixNodeSet(idx *graph.Index, opts MatrixOptions, limit int) ([]string, int, error) {
	if len(opts.IDs) > 0 {
		seen := make(map[string]bool, len(opts.IDs))
		ids := make([]string, 0, len(opts.IDs))
		for _, id := range opts.IDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
		if len(ids) > limit {
			return nil, 0, graph.InvalidArgument("matrix", "%d entities requested, limit is %d", len(ids), limit)
		}
		for _, id := range ids {
			if !idx.Has(id) {
				return nil, 0, graph.NotFound("matrix", id)
			}
		}
		return ids, len(ids), nil
	}

	all := append([]string(nil), idx.EntityIDs()...)
	orderBy := opts.OrderBy
	if orderBy == "" {
		orderBy = OrderCriticality
	}
	sort.SliceStable(all, func(i, j int) bool {
		a, _ := idx.Entity(all[i])
		b, _ := idx.Entity(all[j])
		switch orderBy {
		case OrderRecency:
			if !a.UpdatedAt.Equal(b.UpdatedAt) {
				return a.UpdatedAt.After(b.UpdatedAt)
			}
		default:
			if a.CriticalityBase != b.CriticalityBase {
				return a.CriticalityBase > b.CriticalityBase
			}
		}
		return a.ID < b.ID
	})

	requested := len(all)
	if len(all) > limit {
		all = all[:limit]
	}
	return all, requested, nil
}
