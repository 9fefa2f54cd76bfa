package graphql

import (
	"fmt"

	"github.com/graphql-go/graphql/language/ast"
)

// DefaultMaxComplexity admits a handful of expensive root fields per request.
const DefaultMaxComplexity = 200

// rootFieldCost weighs each root field by the work its resolver does. Every
// selected field adds one more, so aliasing the same expensive field many
// times is bounded.
var rootFieldCost = map[string]int{
	"chains":            10,
	"impact":            10,
	"matrix":            20,
	"criticalPaths":     50,
	"cycles":            50,
	"relationshipTypes": 1,
	"snapshot":          1,
}

// queryComplexity scores every operation in doc.
func queryComplexity(doc *ast.Document) int {
	frags := fragments(doc)
	total := 0
	for _, def := range doc.Definitions {
		if op, ok := def.(*ast.OperationDefinition); ok {
			total += selectionSetCost(op.SelectionSet, true, frags, map[string]bool{})
		}
	}
	return total
}

func selectionSetCost(set *ast.SelectionSet, root bool, frags map[string]*ast.FragmentDefinition, seen map[string]bool) int {
	if set == nil {
		return 0
	}
	cost := 0
	for _, selection := range set.Selections {
		switch sel := selection.(type) {
		case *ast.Field:
			if isIntrospectionField(sel.Name.Value) {
				cost++
				continue
			}
			weight := 1
			if root {
				if w, ok := rootFieldCost[sel.Name.Value]; ok {
					weight = w
				}
			}
			cost += weight + selectionSetCost(sel.SelectionSet, false, frags, seen)
		case *ast.InlineFragment:
			cost += selectionSetCost(sel.SelectionSet, root, frags, seen)
		case *ast.FragmentSpread:
			name := sel.Name.Value
			frag, ok := frags[name]
			if !ok || seen[name] {
				continue
			}
			seen[name] = true
			cost += selectionSetCost(frag.SelectionSet, root, frags, seen)
			delete(seen, name)
		}
	}
	return cost
}

// checkComplexity rejects documents scoring above maxComplexity.
func checkComplexity(doc *ast.Document, maxComplexity int) error {
	if c := queryComplexity(doc); c > maxComplexity {
		return fmt.Errorf("query complexity %d exceeds maximum allowed complexity %d", c, maxComplexity)
	}
	return nil
}
