package algorithms

import (
	"fmt"
	"testing"
	"time"

	"github.com/dd0wney/cluso-archgraph/pkg/graph"
	"github.com/dd0wney/cluso-archgraph/pkg/storage"
)

type edgeSpec struct {
	from, to string
	typ      storage.RelationshipType
	strength float64
}

func dep(from, to string, strength float64) edgeSpec {
	return edgeSpec{from: from, to: to, typ: storage.DependsOn, strength: strength}
}

// newIndex builds an index where every entity has criticalityBase 50 unless
// overridden in bases.
func newIndex(t *testing.T, ids []string, edges []edgeSpec, bases map[string]float64) *graph.Index {
	t.Helper()
	entities := make([]*storage.Entity, 0, len(ids))
	for i, id := range ids {
		base := 50.0
		if b, ok := bases[id]; ok {
			base = b
		}
		entities = append(entities, &storage.Entity{
			ID:              id,
			Name:            "Entity " + id,
			Type:            storage.TypeApplication,
			CriticalityBase: base,
			UpdatedAt:       time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC),
		})
	}
	rels := make([]*storage.Relationship, 0, len(edges))
	for i, e := range edges {
		rels = append(rels, &storage.Relationship{
			ID:       fmt.Sprintf("r%03d", i),
			SourceID: e.from,
			TargetID: e.to,
			Type:     e.typ,
			Strength: e.strength,
		})
	}
	return graph.FromRecords(entities, rels)
}

func nodeIDs(nodes []ChainNode) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
