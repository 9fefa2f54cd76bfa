package graphql

import (
	"fmt"
	"strings"

	"github.com/graphql-go/graphql/language/ast"
)

// DefaultMaxDepth admits every query the schema can express.
const DefaultMaxDepth = 6

// fragments indexes the fragment definitions of a document by name.
func fragments(doc *ast.Document) map[string]*ast.FragmentDefinition {
	out := make(map[string]*ast.FragmentDefinition)
	for _, def := range doc.Definitions {
		if frag, ok := def.(*ast.FragmentDefinition); ok {
			out[frag.Name.Value] = frag
		}
	}
	return out
}

// queryDepth returns the deepest field nesting of any operation in doc.
// A root field has depth 1.
func queryDepth(doc *ast.Document) int {
	frags := fragments(doc)
	maxDepth := 0
	for _, def := range doc.Definitions {
		if op, ok := def.(*ast.OperationDefinition); ok {
			d := selectionSetDepth(op.SelectionSet, 0, frags, map[string]bool{})
			if d > maxDepth {
				maxDepth = d
			}
		}
	}
	return maxDepth
}

// selectionSetDepth resolves fragment spreads in place. seen guards against
// fragment cycles, which validation rejects later anyway.
func selectionSetDepth(set *ast.SelectionSet, depth int, frags map[string]*ast.FragmentDefinition, seen map[string]bool) int {
	if set == nil {
		return depth
	}
	maxDepth := depth
	for _, selection := range set.Selections {
		var d int
		switch sel := selection.(type) {
		case *ast.Field:
			if isIntrospectionField(sel.Name.Value) {
				continue
			}
			d = selectionSetDepth(sel.SelectionSet, depth+1, frags, seen)
		case *ast.InlineFragment:
			d = selectionSetDepth(sel.SelectionSet, depth, frags, seen)
		case *ast.FragmentSpread:
			name := sel.Name.Value
			frag, ok := frags[name]
			if !ok || seen[name] {
				continue
			}
			seen[name] = true
			d = selectionSetDepth(frag.SelectionSet, depth, frags, seen)
			delete(seen, name)
		}
		if d > maxDepth {
			maxDepth = d
		}
	}
	return maxDepth
}

func isIntrospectionField(name string) bool {
	return strings.HasPrefix(name, "__")
}

// checkDepth rejects documents nested deeper than maxDepth.
func checkDepth(doc *ast.Document, maxDepth int) error {
	if d := queryDepth(doc); d > maxDepth {
		return fmt.Errorf("query depth %d exceeds maximum allowed depth %d", d, maxDepth)
	}
	return nil
}
