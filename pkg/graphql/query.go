package graphql

import (
	"context"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
	"github.com/graphql-go/graphql/language/parser"

	"github.com/dd0wney/cluso-archgraph/pkg/graph"
)

// Limits bounds the shape of accepted documents. Zero fields use the
// defaults.
type Limits struct {
	MaxDepth      int
	MaxComplexity int
}

func (l Limits) withDefaults() Limits {
	if l.MaxDepth <= 0 {
		l.MaxDepth = DefaultMaxDepth
	}
	if l.MaxComplexity <= 0 {
		l.MaxComplexity = DefaultMaxComplexity
	}
	return l
}

// Request is one GraphQL operation as received over HTTP.
type Request struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
}

// Execute checks req against limits and runs it. Parse and limit failures
// are returned as errors in the result, like validation errors.
func Execute(ctx context.Context, schema graphql.Schema, req Request, limits Limits) *graphql.Result {
	limits = limits.withDefaults()

	doc, err := parser.Parse(parser.ParseParams{Source: req.Query})
	if err != nil {
		return &graphql.Result{Errors: []gqlerrors.FormattedError{gqlerrors.FormatError(err)}}
	}
	if err := checkDepth(doc, limits.MaxDepth); err != nil {
		return limitResult(err)
	}
	if err := checkComplexity(doc, limits.MaxComplexity); err != nil {
		return limitResult(err)
	}

	return graphql.Do(graphql.Params{
		Schema:         schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        ctx,
	})
}

func limitResult(err error) *graphql.Result {
	qe := newQueryError(graph.InvalidArgument("graphql", "%v", err))
	return &graphql.Result{Errors: []gqlerrors.FormattedError{{
		Message:    qe.Error(),
		Extensions: qe.Extensions(),
	}}}
}
