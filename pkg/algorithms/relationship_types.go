package algorithms

import (
	"github.com/dd0wney/cluso-archgraph/pkg/graph"
	"github.com/dd0wney/cluso-archgraph/pkg/storage"
)

// TypeSummary describes one relationship type and how often it occurs.
type TypeSummary struct {
	Type        storage.RelationshipType `json:"type"`
	Count       int                      `json:"count"`
	Description string                   `json:"description"`
	Dependency  bool                     `json:"dependency"`
}

// RelationshipTypeSummary lists every relationship type in enumeration
// order, including types with no relationships.
func RelationshipTypeSummary(idx *graph.Index) []TypeSummary {
	out := make([]TypeSummary, 0, len(storage.RelationshipTypes))
	for _, t := range storage.RelationshipTypes {
		info := t.Info()
		out = append(out, TypeSummary{
			Type:        t,
			Count:       idx.TypeCount(t),
			Description: info.Description,
			Dependency:  info.Dependency,
		})
	}
	return out
}
