package graphql

import (
	"time"

	"github.com/graphql-go/graphql"

	"github.com/dd0wney/cluso-archgraph/pkg/algorithms"
	"github.com/dd0wney/cluso-archgraph/pkg/graph"
	"github.com/dd0wney/cluso-archgraph/pkg/storage"
)

// types holds the object and enum types of one schema. graphql-go forbids
// sharing type instances between schemas, so every NewSchema call builds a
// fresh set.
type types struct {
	relationshipType *graphql.Enum
	entityType       *graphql.Enum
	riskLevel        *graphql.Enum
	matrixOrder      *graphql.Enum

	chainNode    *graphql.Object
	chainLink    *graphql.Object
	chainResult  *graphql.Object
	impact       *graphql.Object
	matrixNode   *graphql.Object
	matrixCell   *graphql.Object
	matrixResult *graphql.Object
	criticalPath *graphql.Object
	typeSummary  *graphql.Object
	cycleStats   *graphql.Object
	cycleReport  *graphql.Object
	typeCount    *graphql.Object
	snapshot     *graphql.Object
}

func newTypes() *types {
	t := &types{}

	relValues := graphql.EnumValueConfigMap{}
	for _, rt := range storage.RelationshipTypes {
		info := rt.Info()
		relValues[info.Name] = &graphql.EnumValueConfig{Value: rt, Description: info.Description}
	}
	t.relationshipType = graphql.NewEnum(graphql.EnumConfig{
		Name:        "RelationshipType",
		Description: "Semantic type of a directed relationship",
		Values:      relValues,
	})

	entityValues := graphql.EnumValueConfigMap{}
	for _, et := range storage.EntityTypes {
		entityValues[string(et)] = &graphql.EnumValueConfig{Value: et}
	}
	t.entityType = graphql.NewEnum(graphql.EnumConfig{
		Name:   "EntityType",
		Values: entityValues,
	})

	t.riskLevel = graphql.NewEnum(graphql.EnumConfig{
		Name: "RiskLevel",
		Values: graphql.EnumValueConfigMap{
			string(algorithms.RiskLow):      {Value: algorithms.RiskLow},
			string(algorithms.RiskMedium):   {Value: algorithms.RiskMedium},
			string(algorithms.RiskHigh):     {Value: algorithms.RiskHigh},
			string(algorithms.RiskCritical): {Value: algorithms.RiskCritical},
		},
	})

	t.matrixOrder = graphql.NewEnum(graphql.EnumConfig{
		Name:        "MatrixOrder",
		Description: "Default node set ordering when no ids are given",
		Values: graphql.EnumValueConfigMap{
			string(algorithms.OrderCriticality): {Value: algorithms.OrderCriticality},
			string(algorithms.OrderRecency):     {Value: algorithms.OrderRecency},
		},
	})

	t.chainNode = graphql.NewObject(graphql.ObjectConfig{
		Name: "ChainNode",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"name":        &graphql.Field{Type: graphql.String},
			"type":        &graphql.Field{Type: t.entityType},
			"level":       &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"criticality": &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
			"riskLevel":   &graphql.Field{Type: graphql.NewNonNull(t.riskLevel)},
		},
	})

	t.chainLink = graphql.NewObject(graphql.ObjectConfig{
		Name: "ChainLink",
		Fields: graphql.Fields{
			"id":       &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"source":   &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"target":   &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"type":     &graphql.Field{Type: graphql.NewNonNull(t.relationshipType)},
			"strength": &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
		},
	})

	t.chainResult = graphql.NewObject(graphql.ObjectConfig{
		Name: "ChainResult",
		Fields: graphql.Fields{
			"nodes": &graphql.Field{Type: nonNullList(t.chainNode)},
			"links": &graphql.Field{Type: nonNullList(t.chainLink)},
			"depth": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		},
	})

	t.impact = graphql.NewObject(graphql.ObjectConfig{
		Name: "Impact",
		Fields: graphql.Fields{
			"entityId":            &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"upstream":            &graphql.Field{Type: nonNullList(graphql.ID)},
			"downstream":          &graphql.Field{Type: nonNullList(graphql.ID)},
			"criticality":         &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
			"riskLevel":           &graphql.Field{Type: graphql.NewNonNull(t.riskLevel)},
			"maxStrength":         &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
			"directUpstream":      &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"directDownstream":    &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"safeToRefactor":      &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
			"considerDecomposing": &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
		},
	})

	t.matrixNode = graphql.NewObject(graphql.ObjectConfig{
		Name: "MatrixNode",
		Fields: graphql.Fields{
			"id":   &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"name": &graphql.Field{Type: graphql.String},
			"type": &graphql.Field{Type: t.entityType},
		},
	})

	t.matrixCell = graphql.NewObject(graphql.ObjectConfig{
		Name: "MatrixCell",
		Fields: graphql.Fields{
			"source": &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"target": &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"value":  &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
			"count":  &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			// Dominant type; null for empty cells.
			"type": &graphql.Field{
				Type: t.relationshipType,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if cell, ok := p.Source.(algorithms.MatrixCell); ok && cell.Type != nil {
						return *cell.Type, nil
					}
					return nil, nil
				},
			},
		},
	})

	t.matrixResult = graphql.NewObject(graphql.ObjectConfig{
		Name: "MatrixResult",
		Fields: graphql.Fields{
			"nodes":          &graphql.Field{Type: nonNullList(t.matrixNode)},
			"cells":          &graphql.Field{Type: nonNullList(t.matrixCell)},
			"requestedCount": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"returnedCount":  &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"truncated":      &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
			"weighted":       &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
		},
	})

	t.criticalPath = graphql.NewObject(graphql.ObjectConfig{
		Name: "CriticalPath",
		Fields: graphql.Fields{
			"id":              &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"cards":           &graphql.Field{Type: nonNullList(graphql.ID)},
			"riskScore":       &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
			"meanCriticality": &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
			"minStrength":     &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
		},
	})

	t.typeSummary = graphql.NewObject(graphql.ObjectConfig{
		Name: "RelationshipTypeSummary",
		Fields: graphql.Fields{
			"type":        &graphql.Field{Type: graphql.NewNonNull(t.relationshipType)},
			"count":       &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"description": &graphql.Field{Type: graphql.String},
			"dependency":  &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
		},
	})

	t.cycleStats = graphql.NewObject(graphql.ObjectConfig{
		Name: "CycleStats",
		Fields: graphql.Fields{
			"totalCycles":   &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"shortestCycle": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"longestCycle":  &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"averageLength": &graphql.Field{Type: graphql.NewNonNull(graphql.Float)},
		},
	})

	t.cycleReport = graphql.NewObject(graphql.ObjectConfig{
		Name: "CycleReport",
		Fields: graphql.Fields{
			"cycles": &graphql.Field{Type: graphql.NewNonNull(graphql.NewList(nonNullList(graphql.ID)))},
			"stats":  &graphql.Field{Type: graphql.NewNonNull(t.cycleStats)},
			"tangles": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.NewList(nonNullList(graphql.ID))),
				Description: "Strongly connected groups of mutually dependent entities",
			},
		},
	})

	t.typeCount = graphql.NewObject(graphql.ObjectConfig{
		Name: "TypeCount",
		Fields: graphql.Fields{
			"type":  &graphql.Field{Type: graphql.NewNonNull(t.relationshipType)},
			"count": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		},
	})

	t.snapshot = graphql.NewObject(graphql.ObjectConfig{
		Name:        "Snapshot",
		Description: "Statistics of the in-memory graph snapshot",
		Fields: graphql.Fields{
			"entities":      &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"relationships": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"skipped":       &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"version": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return formatVersion(p.Source.(graph.Stats).Version), nil
				},
			},
			"builtAt": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(graph.Stats).BuiltAt.UTC().Format(time.RFC3339Nano), nil
				},
			},
			"byType": &graphql.Field{
				Type: nonNullList(t.typeCount),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return typeCounts(p.Source.(graph.Stats)), nil
				},
			},
		},
	})

	return t
}

func nonNullList(of graphql.Type) graphql.Output {
	return graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(of)))
}
