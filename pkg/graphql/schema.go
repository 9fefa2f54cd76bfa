// Package graphql exposes the relationship queries as a read-only GraphQL
// schema.
package graphql

import (
	"context"
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/dd0wney/cluso-archgraph/pkg/algorithms"
	"github.com/dd0wney/cluso-archgraph/pkg/engine"
	"github.com/dd0wney/cluso-archgraph/pkg/graph"
	"github.com/dd0wney/cluso-archgraph/pkg/logging"
)

// Engine is the query surface the schema resolves against. *engine.Engine
// implements it.
type Engine interface {
	Chains(ctx context.Context, q engine.ChainsQuery) (*algorithms.ChainResult, error)
	Impact(ctx context.Context, id string) (*algorithms.ImpactResult, error)
	Matrix(ctx context.Context, q engine.MatrixQuery) (*algorithms.MatrixResult, error)
	CriticalPaths(ctx context.Context, q engine.PathsQuery) ([]algorithms.CriticalPath, error)
	RelationshipTypes(ctx context.Context) ([]algorithms.TypeSummary, error)
	Cycles(ctx context.Context, q engine.CyclesQuery) (*engine.CycleReport, error)
	Snapshot(ctx context.Context) (graph.Stats, error)
}

// NewSchema builds the query schema over eng. Resolver failures are logged
// to logger when they classify as internal.
func NewSchema(eng Engine, logger logging.Logger) (graphql.Schema, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	r := &resolver{eng: eng, logger: logger.With(logging.Component("graphql"))}
	t := newTypes()

	typesArg := &graphql.ArgumentConfig{
		Type:        graphql.NewList(graphql.NewNonNull(t.relationshipType)),
		Description: "Relationship types to walk; omitted walks the operation default",
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"chains": &graphql.Field{
				Type:        graphql.NewNonNull(t.chainResult),
				Description: "Depth-bounded outbound traversal from an entity",
				Args: graphql.FieldConfigArgument{
					"id":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"depth": &graphql.ArgumentConfig{Type: graphql.Int},
					"types": typesArg,
				},
				Resolve: r.wrap("chains", r.chains),
			},
			"impact": &graphql.Field{
				Type:        graphql.NewNonNull(t.impact),
				Description: "Transitive upstream and downstream sets of an entity",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: r.wrap("impact", r.impact),
			},
			"matrix": &graphql.Field{
				Type:        graphql.NewNonNull(t.matrixResult),
				Description: "Pairwise relationship table",
				Args: graphql.FieldConfigArgument{
					"ids":          &graphql.ArgumentConfig{Type: graphql.NewList(graphql.NewNonNull(graphql.ID))},
					"limit":        &graphql.ArgumentConfig{Type: graphql.Int},
					"weighted":     &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
					"includeEmpty": &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
					"order":        &graphql.ArgumentConfig{Type: t.matrixOrder},
					"types":        typesArg,
				},
				Resolve: r.wrap("matrix", r.matrix),
			},
			"criticalPaths": &graphql.Field{
				Type:        nonNullList(t.criticalPath),
				Description: "Highest-risk dependency paths",
				Args: graphql.FieldConfigArgument{
					"limit":     &graphql.ArgumentConfig{Type: graphql.Int},
					"threshold": &graphql.ArgumentConfig{Type: graphql.Float},
					"types":     typesArg,
				},
				Resolve: r.wrap("critical_paths", r.criticalPaths),
			},
			"relationshipTypes": &graphql.Field{
				Type:    nonNullList(t.typeSummary),
				Resolve: r.wrap("relationship_types", r.relationshipTypes),
			},
			"cycles": &graphql.Field{
				Type:        graphql.NewNonNull(t.cycleReport),
				Description: "Dependency cycles",
				Args: graphql.FieldConfigArgument{
					"limit":     &graphql.ArgumentConfig{Type: graphql.Int},
					"maxLength": &graphql.ArgumentConfig{Type: graphql.Int},
					"types":     typesArg,
				},
				Resolve: r.wrap("cycles", r.cycles),
			},
			"snapshot": &graphql.Field{
				Type:    graphql.NewNonNull(t.snapshot),
				Resolve: r.wrap("snapshot", r.snapshot),
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{Query: queryType})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("failed to create schema: %w", err)
	}
	return schema, nil
}
