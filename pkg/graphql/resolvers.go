package graphql

import (
	"sort"
	"strconv"

	"github.com/graphql-go/graphql"

	"github.com/dd0wney/cluso-archgraph/pkg/algorithms"
	"github.com/dd0wney/cluso-archgraph/pkg/engine"
	"github.com/dd0wney/cluso-archgraph/pkg/graph"
	"github.com/dd0wney/cluso-archgraph/pkg/logging"
	"github.com/dd0wney/cluso-archgraph/pkg/storage"
	"github.com/dd0wney/cluso-archgraph/pkg/validation"
)

type resolver struct {
	eng    Engine
	logger logging.Logger
}

// wrap classifies resolver errors and logs internal ones.
func (r *resolver) wrap(op string, fn graphql.FieldResolveFn) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		res, err := fn(p)
		if err == nil {
			return res, nil
		}
		qe := newQueryError(err)
		if qe.kind == graph.KindInternal {
			r.logger.Error("resolver failed", logging.Operation(op), logging.Error(err))
		}
		return nil, qe
	}
}

func (r *resolver) chains(p graphql.ResolveParams) (any, error) {
	const op = "chains"
	req := validation.ChainsRequest{
		ID:    stringArg(p.Args, "id"),
		Depth: intPtrArg(p.Args, "depth"),
		Types: typeNamesArg(p.Args),
	}
	types, err := checkRequest(op, &req, req.Types)
	if err != nil {
		return nil, err
	}
	return r.eng.Chains(p.Context, engine.ChainsQuery{ID: req.ID, Depth: req.Depth, Types: types})
}

func (r *resolver) impact(p graphql.ResolveParams) (any, error) {
	req := validation.ImpactRequest{ID: stringArg(p.Args, "id")}
	if _, err := checkRequest("impact", &req, nil); err != nil {
		return nil, err
	}
	return r.eng.Impact(p.Context, req.ID)
}

func (r *resolver) matrix(p graphql.ResolveParams) (any, error) {
	const op = "matrix"
	req := validation.MatrixRequest{
		IDs:          stringsArg(p.Args, "ids"),
		Weighted:     boolArg(p.Args, "weighted"),
		IncludeEmpty: boolArg(p.Args, "includeEmpty"),
		Types:        typeNamesArg(p.Args),
	}
	if limit := intPtrArg(p.Args, "limit"); limit != nil {
		req.Limit = *limit
	}
	if order, ok := p.Args["order"].(algorithms.OrderBy); ok {
		req.Order = string(order)
	}
	types, err := checkRequest(op, &req, req.Types)
	if err != nil {
		return nil, err
	}
	order, err := algorithms.ParseOrderBy(req.Order)
	if err != nil {
		return nil, err
	}
	return r.eng.Matrix(p.Context, engine.MatrixQuery{
		IDs:          req.IDs,
		Limit:        req.Limit,
		Weighted:     req.Weighted,
		IncludeEmpty: req.IncludeEmpty,
		OrderBy:      order,
		Types:        types,
	})
}

func (r *resolver) criticalPaths(p graphql.ResolveParams) (any, error) {
	const op = "critical_paths"
	req := validation.CriticalPathsRequest{
		Limit:     intPtrArg(p.Args, "limit"),
		Threshold: floatPtrArg(p.Args, "threshold"),
		Types:     typeNamesArg(p.Args),
	}
	types, err := checkRequest(op, &req, req.Types)
	if err != nil {
		return nil, err
	}
	paths, err := r.eng.CriticalPaths(p.Context, engine.PathsQuery{
		Limit:     req.Limit,
		Threshold: req.Threshold,
		Types:     types,
	})
	if err != nil {
		return nil, err
	}
	if paths == nil {
		paths = []algorithms.CriticalPath{}
	}
	return paths, nil
}

func (r *resolver) relationshipTypes(p graphql.ResolveParams) (any, error) {
	return r.eng.RelationshipTypes(p.Context)
}

func (r *resolver) cycles(p graphql.ResolveParams) (any, error) {
	const op = "cycles"
	req := validation.CyclesRequest{Types: typeNamesArg(p.Args)}
	if limit := intPtrArg(p.Args, "limit"); limit != nil {
		req.Limit = *limit
	}
	if maxLen := intPtrArg(p.Args, "maxLength"); maxLen != nil {
		req.MaxLength = *maxLen
	}
	types, err := checkRequest(op, &req, req.Types)
	if err != nil {
		return nil, err
	}
	report, err := r.eng.Cycles(p.Context, engine.CyclesQuery{
		Types:     types,
		MaxLength: req.MaxLength,
		Limit:     req.Limit,
	})
	if err != nil {
		return nil, err
	}
	if report.Cycles == nil {
		report.Cycles = []algorithms.Cycle{}
	}
	if report.Tangles == nil {
		report.Tangles = []algorithms.Tangle{}
	}
	return report, nil
}

func (r *resolver) snapshot(p graphql.ResolveParams) (any, error) {
	return r.eng.Snapshot(p.Context)
}

// checkRequest validates req with the HTTP request rules and parses its
// relationship type names.
func checkRequest(op string, req any, typeNames []string) ([]storage.RelationshipType, error) {
	if err := validation.ValidateRequest(req); err != nil {
		return nil, graph.InvalidArgument(op, "%v", err)
	}
	types, err := validation.ParseTypes(typeNames)
	if err != nil {
		return nil, graph.InvalidArgument(op, "%v", err)
	}
	return types, nil
}

func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

func boolArg(args map[string]any, name string) bool {
	b, _ := args[name].(bool)
	return b
}

func intPtrArg(args map[string]any, name string) *int {
	if n, ok := args[name].(int); ok {
		return &n
	}
	return nil
}

func floatPtrArg(args map[string]any, name string) *float64 {
	switch v := args[name].(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	}
	return nil
}

func stringsArg(args map[string]any, name string) []string {
	raw, ok := args[name].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// typeNamesArg converts the enum values of the "types" argument back to
// wire names so they share validation with query string input.
func typeNamesArg(args map[string]any) []string {
	raw, ok := args["types"].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if t, ok := v.(storage.RelationshipType); ok {
			out = append(out, t.String())
		}
	}
	return out
}

// formatVersion renders a snapshot version as a string; versions can exceed
// the 32-bit GraphQL Int.
func formatVersion(v uint64) string {
	return strconv.FormatUint(v, 10)
}

type typeCount struct {
	Type  storage.RelationshipType `json:"type"`
	Count int                      `json:"count"`
}

func typeCounts(stats graph.Stats) []typeCount {
	out := make([]typeCount, 0, len(stats.ByType))
	for t, n := range stats.ByType {
		out = append(out, typeCount{Type: t, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}
