package algorithms

import (
	"context"
	"sort"

	"github.com/dd0wney/cluso-archgraph/pkg/graph"
	"github.com/dd0wney/cluso-archgraph/pkg/storage"
)

// Tangle is a strongly connected group of entities: every member reaches
// every other member through dependency edges. Members are sorted.
type Tangle []string

// tarjanState holds per-entity state during Tarjan's DFS.
type tarjanState struct {
	index   int
	lowlink int
	onStack bool
}

// Tangles finds the strongly connected components of the dependency graph
// with Tarjan's algorithm in O(V+E) and returns those with more than one
// member, largest first. Every entity on a cycle belongs to exactly one
// tangle, so unlike DependencyCycles the result is complete regardless of
// how many cycles overlap.
func Tangles(ctx context.Context, idx *graph.Index, types []storage.RelationshipType) ([]Tangle, error) {
	if len(types) == 0 {
		types = storage.DependencyTypes()
	}

	components, err := stronglyConnected(newPoller(ctx, "tangles"), idx, types)
	if err != nil {
		return nil, err
	}

	tangles := make([]Tangle, 0)
	for _, members := range components {
		if len(members) > 1 {
			sort.Strings(members)
			tangles = append(tangles, members)
		}
	}
	sort.Slice(tangles, func(i, j int) bool {
		if len(tangles[i]) != len(tangles[j]) {
			return len(tangles[i]) > len(tangles[j])
		}
		return tangles[i][0] < tangles[j][0]
	})
	return tangles, nil
}

// stronglyConnected returns every strongly connected component over types,
// singletons included, in reverse topological order of the condensation.
func stronglyConnected(p *poller, idx *graph.Index, types []storage.RelationshipType) ([][]string, error) {
	if err := p.now(); err != nil {
		return nil, err
	}

	state := make(map[string]*tarjanState, idx.Len())
	var stack []string
	counter := 0
	var components [][]string

	var strongconnect func(u string) error
	strongconnect = func(u string) error {
		state[u] = &tarjanState{index: counter, lowlink: counter, onStack: true}
		counter++
		stack = append(stack, u)

		edges, _ := idx.Successors(u, types...)
		for _, e := range edges {
			if err := p.check(); err != nil {
				return err
			}
			v := e.To
			sv, seen := state[v]
			if !seen {
				if err := strongconnect(v); err != nil {
					return err
				}
				if state[v].lowlink < state[u].lowlink {
					state[u].lowlink = state[v].lowlink
				}
			} else if sv.onStack && sv.index < state[u].lowlink {
				state[u].lowlink = sv.index
			}
		}

		// u roots a component: pop its members.
		if state[u].lowlink == state[u].index {
			var members []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				state[w].onStack = false
				members = append(members, w)
				if w == u {
					break
				}
			}
			components = append(components, members)
		}
		return nil
	}

	for _, id := range idx.EntityIDs() {
		if _, seen := state[id]; !seen {
			if err := strongconnect(id); err != nil {
				return nil, err
			}
		}
	}
	return components, nil
}

// TangledEntities counts the entities that sit on at least one cycle.
func TangledEntities(tangles []Tangle) int {
	n := 0
	for _, t := range tangles {
		n += len(t)
	}
	return n
}
