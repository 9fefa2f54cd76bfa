package algorithms

import (
	"context"

	"github.com/dd0wney/cluso-archgraph/pkg/graph"
	"github.com/dd0wney/cluso-archgraph/pkg/storage"
)

// ChainOptions configures Chains.
type ChainOptions struct {
	Depth int                        // <= 0 returns the root alone
	Types []storage.RelationshipType // nil walks every type

	// Criticality decorates each node. Nil computes it from idx with the
	// default scorer.
	Criticality CriticalityFunc
}

// ChainNode is an entity decorated with its position in one traversal.
type ChainNode struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Type        storage.EntityType `json:"type"`
	Level       int                `json:"level"`
	Criticality float64            `json:"criticality"`
	RiskLevel   RiskLevel          `json:"riskLevel"`
}

// ChainLink is one walked relationship.
type ChainLink struct {
	ID       string                   `json:"id"`
	Source   string                   `json:"source"`
	Target   string                   `json:"target"`
	Type     storage.RelationshipType `json:"type"`
	Strength float64                  `json:"strength"`
}

// ChainResult is the depth-bounded subgraph reachable from a root.
type ChainResult struct {
	Nodes []ChainNode `json:"nodes"`
	Links []ChainLink `json:"links"`
	Depth int         `json:"depth"`
}

type chainEntry struct {
	id    string
	level int
}

// Chains walks outbound edges breadth-first from rootID up to opts.Depth
// hops. Each node appears once, at the level of its first (shortest) visit.
// A link is included when its source sits below the depth bound; its target
// is then necessarily visited.
func Chains(ctx context.Context, idx *graph.Index, rootID string, opts ChainOptions) (*ChainResult, error) {
	if !idx.Has(rootID) {
		return nil, graph.NotFound("chains", rootID)
	}
	p := newPoller(ctx, "chains")
	if err := p.now(); err != nil {
		return nil, err
	}

	criticality := opts.Criticality
	if criticality == nil {
		criticality = NewCriticalityFunc(idx, DefaultScorer())
	}

	levels := map[string]int{rootID: 0}
	order := []chainEntry{{id: rootID, level: 0}}
	links := make([]ChainLink, 0)

	for head := 0; head < len(order); head++ {
		current := order[head]
		if current.level >= opts.Depth {
			continue
		}

		edges, _ := idx.Successors(current.id, opts.Types...)
		for _, e := range edges {
			if err := p.check(); err != nil {
				return nil, err
			}
			links = append(links, ChainLink{
				ID:       e.ID,
				Source:   e.From,
				Target:   e.To,
				Type:     e.Type,
				Strength: e.Strength,
			})
			if _, seen := levels[e.To]; seen {
				continue
			}
			levels[e.To] = current.level + 1
			order = append(order, chainEntry{id: e.To, level: current.level + 1})
		}
	}

	nodes := make([]ChainNode, 0, len(order))
	for _, entry := range order {
		ent, _ := idx.Entity(entry.id)
		c, err := criticality(ctx, entry.id)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, ChainNode{
			ID:          ent.ID,
			Name:        ent.Name,
			Type:        ent.Type,
			Level:       entry.level,
			Criticality: c,
			RiskLevel:   ClassifyRisk(c),
		})
	}

	return &ChainResult{Nodes: nodes, Links: links, Depth: opts.Depth}, nil
}
