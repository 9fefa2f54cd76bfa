package algorithms

import (
	"context"
	"errors"
	"testing"

	"github.com/dd0wney/cluso-archgraph/pkg/graph"
	"github.com/dd0wney/cluso-archgraph/pkg/storage"
)

func TestChains_Scenario(t *testing.T) {
	// X depends_on Y (.8), Y depends_on Z (.5)
	idx := newIndex(t, []string{"X", "Y", "Z"}, []edgeSpec{dep("X", "Y", 0.8), dep("Y", "Z", 0.5)}, nil)

	result, err := Chains(context.Background(), idx, "X", ChainOptions{Depth: 2})
	if err != nil {
		t.Fatalf("Chains failed: %v", err)
	}

	if !equalStrings(nodeIDs(result.Nodes), []string{"X", "Y", "Z"}) {
		t.Fatalf("nodes = %v, want [X Y Z]", nodeIDs(result.Nodes))
	}
	for i, n := range result.Nodes {
		if n.Level != i {
			t.Errorf("%s level = %d, want %d", n.ID, n.Level, i)
		}
		if n.RiskLevel != ClassifyRisk(n.Criticality) {
			t.Errorf("%s risk level %s does not match criticality %.1f", n.ID, n.RiskLevel, n.Criticality)
		}
	}

	if len(result.Links) != 2 {
		t.Fatalf("links = %+v, want 2", result.Links)
	}
	if result.Links[0].Source != "X" || result.Links[0].Target != "Y" {
		t.Errorf("first link = %+v, want X->Y", result.Links[0])
	}
	if result.Links[1].Source != "Y" || result.Links[1].Target != "Z" {
		t.Errorf("second link = %+v, want Y->Z", result.Links[1])
	}
	if result.Depth != 2 {
		t.Errorf("depth = %d, want 2", result.Depth)
	}
}

func TestChains_DepthBoundExcludesFrontierEdges(t *testing.T) {
	// A -> B -> C -> D
	idx := newIndex(t, []string{"A", "B", "C", "D"},
		[]edgeSpec{dep("A", "B", 1), dep("B", "C", 1), dep("C", "D", 1)}, nil)

	result, err := Chains(context.Background(), idx, "A", ChainOptions{Depth: 2})
	if err != nil {
		t.Fatalf("Chains failed: %v", err)
	}

	if !equalStrings(nodeIDs(result.Nodes), []string{"A", "B", "C"}) {
		t.Errorf("nodes = %v, want [A B C]", nodeIDs(result.Nodes))
	}
	for _, l := range result.Links {
		if l.Source == "C" {
			t.Errorf("edge from frontier node C should be excluded: %+v", l)
		}
	}
}

func TestChains_CycleTerminates(t *testing.T) {
	idx := newIndex(t, []string{"A", "B", "C"},
		[]edgeSpec{dep("A", "B", 1), dep("B", "C", 1), dep("C", "A", 1)}, nil)

	result, err := Chains(context.Background(), idx, "A", ChainOptions{Depth: 5})
	if err != nil {
		t.Fatalf("Chains failed: %v", err)
	}

	if !equalStrings(nodeIDs(result.Nodes), []string{"A", "B", "C"}) {
		t.Errorf("nodes = %v, want exactly [A B C]", nodeIDs(result.Nodes))
	}
	if len(result.Links) != 3 {
		t.Errorf("expected 3 links including C->A, got %d", len(result.Links))
	}
}

func TestChains_ShortestLevel(t *testing.T) {
	// C reachable via A->B->C (2 hops) and A->D->E->F->C (4 hops)
	idx := newIndex(t, []string{"A", "B", "C", "D", "E", "F"}, []edgeSpec{
		dep("A", "D", 1), dep("D", "E", 1), dep("E", "F", 1), dep("F", "C", 1),
		dep("A", "B", 1), dep("B", "C", 1),
	}, nil)

	result, err := Chains(context.Background(), idx, "A", ChainOptions{Depth: 6})
	if err != nil {
		t.Fatalf("Chains failed: %v", err)
	}

	seen := map[string]int{}
	for _, n := range result.Nodes {
		seen[n.ID]++
		if n.ID == "C" && n.Level != 2 {
			t.Errorf("C level = %d, want 2", n.Level)
		}
	}
	for id, count := range seen {
		if count != 1 {
			t.Errorf("%s appears %d times", id, count)
		}
	}
}

func TestChains_NonPositiveDepthReturnsRoot(t *testing.T) {
	idx := newIndex(t, []string{"A", "B"}, []edgeSpec{dep("A", "B", 1)}, nil)

	for _, depth := range []int{0, -3} {
		result, err := Chains(context.Background(), idx, "A", ChainOptions{Depth: depth})
		if err != nil {
			t.Fatalf("Chains(depth=%d) failed: %v", depth, err)
		}
		if len(result.Nodes) != 1 || result.Nodes[0].ID != "A" || result.Nodes[0].Level != 0 {
			t.Errorf("depth %d: nodes = %+v, want root only", depth, result.Nodes)
		}
		if len(result.Links) != 0 {
			t.Errorf("depth %d: expected no links, got %d", depth, len(result.Links))
		}
	}
}

func TestChains_TypeFilter(t *testing.T) {
	idx := newIndex(t, []string{"A", "B", "C"}, []edgeSpec{
		dep("A", "B", 1),
		{from: "A", to: "C", typ: storage.SimilarTo, strength: 0.4},
	}, nil)

	result, err := Chains(context.Background(), idx, "A", ChainOptions{
		Depth: 3,
		Types: []storage.RelationshipType{storage.DependsOn},
	})
	if err != nil {
		t.Fatalf("Chains failed: %v", err)
	}
	if !equalStrings(nodeIDs(result.Nodes), []string{"A", "B"}) {
		t.Errorf("nodes = %v, want [A B]", nodeIDs(result.Nodes))
	}
}

func TestChains_Errors(t *testing.T) {
	idx := newIndex(t, []string{"A"}, nil, nil)

	_, err := Chains(context.Background(), idx, "missing", ChainOptions{Depth: 3})
	if !errors.Is(err, graph.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Chains(ctx, idx, "A", ChainOptions{Depth: 3})
	if graph.KindOf(err) != graph.KindTimeout {
		t.Errorf("expected timeout for cancelled context, got %v", err)
	}
}

func TestChains_UsesSuppliedCriticality(t *testing.T) {
	idx := newIndex(t, []string{"A", "B"}, []edgeSpec{dep("A", "B", 1)}, nil)
	calls := 0
	fixed := func(ctx context.Context, id string) (float64, error) {
		calls++
		return 85, nil
	}

	result, err := Chains(context.Background(), idx, "A", ChainOptions{Depth: 1, Criticality: fixed})
	if err != nil {
		t.Fatalf("Chains failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("criticality called %d times, want 2", calls)
	}
	for _, n := range result.Nodes {
		if n.Criticality != 85 || n.RiskLevel != RiskCritical {
			t.Errorf("node %s = %+v", n.ID, n)
		}
	}
}
