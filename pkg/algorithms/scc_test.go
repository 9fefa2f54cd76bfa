package algorithms

import (
	"context"
	"testing"

	"github.com/dd0wney/cluso-archgraph/pkg/graph"
	"github.com/dd0wney/cluso-archgraph/pkg/storage"
)

func TestTangles_TwoComponents(t *testing.T) {
	// A <-> B and C -> D -> E -> C, joined by B -> C.
	idx := newIndex(t, []string{"A", "B", "C", "D", "E", "F"}, []edgeSpec{
		dep("A", "B", 1), dep("B", "A", 1),
		dep("B", "C", 1),
		dep("C", "D", 1), dep("D", "E", 1), dep("E", "C", 1),
		dep("E", "F", 1),
	}, nil)

	tangles, err := Tangles(context.Background(), idx, nil)
	if err != nil {
		t.Fatalf("Tangles failed: %v", err)
	}
	if len(tangles) != 2 {
		t.Fatalf("expected 2 tangles, got %v", tangles)
	}
	if !equalStrings(tangles[0], []string{"C", "D", "E"}) {
		t.Errorf("largest tangle = %v, want [C D E]", tangles[0])
	}
	if !equalStrings(tangles[1], []string{"A", "B"}) {
		t.Errorf("second tangle = %v, want [A B]", tangles[1])
	}
	if n := TangledEntities(tangles); n != 5 {
		t.Errorf("TangledEntities = %d, want 5", n)
	}
}

func TestTangles_Acyclic(t *testing.T) {
	idx := newIndex(t, []string{"A", "B", "C"},
		[]edgeSpec{dep("A", "B", 1), dep("B", "C", 1), dep("A", "C", 1)}, nil)

	tangles, err := Tangles(context.Background(), idx, nil)
	if err != nil {
		t.Fatalf("Tangles failed: %v", err)
	}
	if tangles == nil || len(tangles) != 0 {
		t.Errorf("expected empty non-nil result, got %#v", tangles)
	}
}

func TestTangles_IgnoresNonDependencyTypes(t *testing.T) {
	idx := newIndex(t, []string{"A", "B"}, []edgeSpec{
		dep("A", "B", 1),
		{from: "B", to: "A", typ: storage.SimilarTo, strength: 1},
	}, nil)

	tangles, err := Tangles(context.Background(), idx, nil)
	if err != nil {
		t.Fatalf("Tangles failed: %v", err)
	}
	if len(tangles) != 0 {
		t.Errorf("similar_to must not close a tangle, got %v", tangles)
	}

	tangles, err = Tangles(context.Background(), idx, []storage.RelationshipType{storage.DependsOn, storage.SimilarTo})
	if err != nil {
		t.Fatalf("Tangles failed: %v", err)
	}
	if len(tangles) != 1 {
		t.Errorf("explicit types should include similar_to, got %v", tangles)
	}
}

// Every entity reported by DependencyCycles must sit inside some tangle.
func TestTangles_CoverCycles(t *testing.T) {
	idx := newIndex(t, []string{"A", "B", "C", "D"}, []edgeSpec{
		dep("A", "B", 1), dep("B", "C", 1), dep("C", "A", 1), dep("C", "D", 1), dep("D", "B", 1),
	}, nil)

	cycles, err := DependencyCycles(context.Background(), idx, CycleOptions{})
	if err != nil {
		t.Fatal(err)
	}
	tangles, err := Tangles(context.Background(), idx, nil)
	if err != nil {
		t.Fatal(err)
	}
	member := make(map[string]bool)
	for _, tg := range tangles {
		for _, id := range tg {
			member[id] = true
		}
	}
	for _, c := range cycles {
		for _, id := range c {
			if !member[id] {
				t.Errorf("cycle entity %s not in any tangle %v", id, tangles)
			}
		}
	}
}

func TestTangles_Cancelled(t *testing.T) {
	idx := newIndex(t, []string{"A", "B"}, []edgeSpec{dep("A", "B", 1)}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Tangles(ctx, idx, nil)
	if graph.KindOf(err) != graph.KindTimeout {
		t.Errorf("expected timeout, got %v", err)
	}
}
