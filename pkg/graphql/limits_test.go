package graphql

import (
	"context"
	"strings"
	"testing"

	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
)

func mustParse(t *testing.T, query string) *ast.Document {
	t.Helper()
	doc, err := parser.Parse(parser.ParseParams{Source: query})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return doc
}

func TestQueryDepth(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"root scalar list", `{ relationshipTypes { type } }`, 2},
		{"nested object", `{ snapshot { byType { type } } }`, 3},
		{"introspection ignored", `{ __schema { types { name fields { name } } } snapshot { entities } }`, 2},
		{"inline fragment", `{ cycles { ... on CycleReport { stats { totalCycles } } } }`, 3},
		{
			"named fragment",
			`query { snapshot { ...Counts } } fragment Counts on Snapshot { byType { count } }`,
			3,
		},
		{
			"self referencing fragment",
			`query { snapshot { ...A } } fragment A on Snapshot { entities ...A }`,
			2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := queryDepth(mustParse(t, tt.query)); got != tt.want {
				t.Errorf("queryDepth() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestQueryComplexity(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"cheap", `{ snapshot { entities } }`, 2},
		{"impact", `{ impact(id: "X") { upstream downstream } }`, 12},
		{"nested fields count once", `{ chains(id: "X") { nodes { id level } } }`, 13},
		{"aliases add up", `{ a: criticalPaths { id } b: criticalPaths { id } }`, 102},
		{"fragment on root", `query { ...Q } fragment Q on Query { cycles { stats { totalCycles } } }`, 52},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := queryComplexity(mustParse(t, tt.query)); got != tt.want {
				t.Errorf("queryComplexity() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestExecuteRejectsDeepQuery(t *testing.T) {
	schema, _, _ := newTestSchema(t)

	query := `{ snapshot { byType { type } } }`
	result := Execute(context.Background(), schema, Request{Query: query}, Limits{MaxDepth: 2})
	if got := errorCode(t, result); got != "invalid_argument" {
		t.Errorf("code = %q, want invalid_argument", got)
	}
	if !strings.Contains(result.Errors[0].Message, "depth 3 exceeds maximum allowed depth 2") {
		t.Errorf("message = %q", result.Errors[0].Message)
	}

	result = Execute(context.Background(), schema, Request{Query: query}, Limits{MaxDepth: 3})
	requireNoErrors(t, result)
}

func TestExecuteRejectsComplexQuery(t *testing.T) {
	schema, _, _ := newTestSchema(t)

	var b strings.Builder
	b.WriteString("{")
	for _, alias := range []string{"a", "b", "c", "d", "e"} {
		b.WriteString(" " + alias + ": criticalPaths(threshold: 1) { id }")
	}
	b.WriteString(" }")

	result := Execute(context.Background(), schema, Request{Query: b.String()}, Limits{})
	if got := errorCode(t, result); got != "invalid_argument" {
		t.Errorf("code = %q, want invalid_argument", got)
	}
	if result.Data != nil {
		t.Errorf("rejected query must not execute, data = %v", result.Data)
	}
}

func TestExecuteSyntaxError(t *testing.T) {
	schema, _, _ := newTestSchema(t)

	result := Execute(context.Background(), schema, Request{Query: `{ snapshot { `}, Limits{})
	if !result.HasErrors() {
		t.Fatal("expected a syntax error")
	}
	if !strings.Contains(result.Errors[0].Message, "Syntax Error") {
		t.Errorf("message = %q", result.Errors[0].Message)
	}
}

func TestLimitsDefaults(t *testing.T) {
	l := Limits{}.withDefaults()
	if l.MaxDepth != DefaultMaxDepth || l.MaxComplexity != DefaultMaxComplexity {
		t.Errorf("withDefaults() = %+v", l)
	}
	l = Limits{MaxDepth: 3, MaxComplexity: 10}.withDefaults()
	if l.MaxDepth != 3 || l.MaxComplexity != 10 {
		t.Errorf("withDefaults() overrode explicit limits: %+v", l)
	}
}
