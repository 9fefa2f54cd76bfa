package algorithms

import (
	"context"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/dd0wney/cluso-archgraph/pkg/graph"
	"github.com/dd0wney/cluso-archgraph/pkg/storage"
)

// randomIndex decodes each code into one edge over entities n0..n{n-1}.
// spare adds isolated entities after those for extra relationships to use.
// Self-loops decode too and are dropped by the index.
func randomIndex(n, spare int, codes []int, extra ...*storage.Relationship) *graph.Index {
	entities := make([]*storage.Entity, n+spare)
	for i := range entities {
		entities[i] = &storage.Entity{
			ID:              fmt.Sprintf("n%d", i),
			Name:            fmt.Sprintf("node %d", i),
			Type:            storage.TypeITComponent,
			CriticalityBase: float64((i * 37) % 101),
		}
	}
	rels := make([]*storage.Relationship, 0, len(codes)+len(extra))
	for i, c := range codes {
		rels = append(rels, &storage.Relationship{
			ID:       fmt.Sprintf("e%d", i),
			SourceID: fmt.Sprintf("n%d", c%n),
			TargetID: fmt.Sprintf("n%d", (c/n)%n),
			Type:     storage.RelationshipType((c / (n * n)) % len(storage.RelationshipTypes)),
			Strength: float64(c%11) / 10,
		})
	}
	rels = append(rels, extra...)
	return graph.FromRecords(entities, rels)
}

func newProperties() *gopter.Properties {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	return gopter.NewProperties(parameters)
}

func TestChainProperties(t *testing.T) {
	properties := newProperties()

	properties.Property("every node is within the depth bound", prop.ForAll(
		func(n int, codes []int, depth int) bool {
			idx := randomIndex(n, 0, codes)
			res, err := Chains(context.Background(), idx, "n0", ChainOptions{Depth: depth})
			if err != nil {
				return false
			}
			for _, node := range res.Nodes {
				if node.Level > depth {
					return false
				}
			}
			return res.Nodes[0].ID == "n0" && res.Nodes[0].Level == 0
		},
		gen.IntRange(1, 12),
		gen.SliceOf(gen.IntRange(0, 1<<16)),
		gen.IntRange(0, 6),
	))

	properties.Property("no node appears twice", prop.ForAll(
		func(n int, codes []int, depth int) bool {
			idx := randomIndex(n, 0, codes)
			res, err := Chains(context.Background(), idx, "n0", ChainOptions{Depth: depth})
			if err != nil {
				return false
			}
			seen := map[string]bool{}
			for _, node := range res.Nodes {
				if seen[node.ID] {
					return false
				}
				seen[node.ID] = true
			}
			for _, l := range res.Links {
				if !seen[l.Source] || !seen[l.Target] {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 12),
		gen.SliceOf(gen.IntRange(0, 1<<16)),
		gen.IntRange(0, 6),
	))

	properties.TestingRun(t)
}

func TestImpactProperties(t *testing.T) {
	properties := newProperties()

	properties.Property("an extra dependent never lowers criticality", prop.ForAll(
		func(n int, codes []int, target int, strength float64) bool {
			targetID := fmt.Sprintf("n%d", target%n)
			before, err := Impact(context.Background(), randomIndex(n, 0, codes), targetID, ImpactOptions{})
			if err != nil {
				return false
			}

			// a fresh entity n{n} pointing at the target
			extra := &storage.Relationship{
				ID: "extra", SourceID: fmt.Sprintf("n%d", n), TargetID: targetID,
				Type: storage.DependsOn, Strength: strength,
			}
			after, err := Impact(context.Background(), randomIndex(n, 1, codes, extra), targetID, ImpactOptions{})
			if err != nil {
				return false
			}
			return after.Criticality >= before.Criticality
		},
		gen.IntRange(1, 10),
		gen.SliceOf(gen.IntRange(0, 1<<16)),
		gen.IntRange(0, 100),
		gen.Float64Range(0, 1),
	))

	properties.Property("impact is idempotent and excludes the root", prop.ForAll(
		func(n int, codes []int) bool {
			idx := randomIndex(n, 0, codes)
			a, err := Impact(context.Background(), idx, "n0", ImpactOptions{})
			if err != nil {
				return false
			}
			b, _ := Impact(context.Background(), idx, "n0", ImpactOptions{})
			if !equalStrings(a.Upstream, b.Upstream) || !equalStrings(a.Downstream, b.Downstream) || a.Criticality != b.Criticality {
				return false
			}
			for _, id := range append(a.Upstream, a.Downstream...) {
				if id == "n0" {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 12),
		gen.SliceOf(gen.IntRange(0, 1<<16)),
	))

	properties.Property("risk bands are total and ordered", prop.ForAll(
		func(score float64) bool {
			level := ClassifyRisk(score)
			switch {
			case score >= 80:
				return level == RiskCritical
			case score >= 60:
				return level == RiskHigh
			case score >= 40:
				return level == RiskMedium
			default:
				return level == RiskLow
			}
		},
		gen.Float64Range(-10, 110),
	))

	properties.TestingRun(t)
}

func TestCriticalPathProperties(t *testing.T) {
	properties := newProperties()

	properties.Property("paths are simple and within length bounds", prop.ForAll(
		func(n int, codes []int) bool {
			idx := randomIndex(n, 0, codes)
			paths, err := CriticalPaths(context.Background(), idx, PathOptions{Threshold: 0.1, Limit: 50})
			if graph.KindOf(err) == graph.KindTimeout {
				return true
			}
			if err != nil {
				return false
			}
			for _, p := range paths {
				if len(p.Cards) < DefaultPathMinLength || len(p.Cards) > DefaultPathMaxLength {
					return false
				}
				seen := map[string]bool{}
				for _, c := range p.Cards {
					if seen[c] {
						return false
					}
					seen[c] = true
				}
			}
			for i := 1; i < len(paths); i++ {
				if paths[i].RiskScore > paths[i-1].RiskScore {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 9),
		gen.SliceOf(gen.IntRange(0, 1<<16)),
	))

	properties.Property("pruned search agrees with the exhaustive ranking", prop.ForAll(
		func(n int, codes []int, limit int) bool {
			idx := randomIndex(n, 0, codes)
			top, err := CriticalPaths(context.Background(), idx, PathOptions{Threshold: 0.1, Limit: limit})
			if graph.KindOf(err) == graph.KindTimeout {
				return true
			}
			all, err2 := CriticalPaths(context.Background(), idx, PathOptions{Threshold: 0.1, Limit: 100_000})
			if graph.KindOf(err2) == graph.KindTimeout {
				return true
			}
			if err != nil || err2 != nil {
				return false
			}
			if len(all) > limit {
				all = all[:limit]
			}
			if len(top) != len(all) {
				return false
			}
			for i := range top {
				if top[i].RiskScore != all[i].RiskScore || !equalStrings(top[i].Cards, all[i].Cards) {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 9),
		gen.SliceOf(gen.IntRange(0, 1<<16)),
		gen.IntRange(1, 5),
	))

	properties.TestingRun(t)
}
