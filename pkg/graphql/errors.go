package graphql

import (
	"net/http"

	"github.com/dd0wney/cluso-archgraph/pkg/graph"
)

// queryError carries the error classification into the GraphQL response as
// extensions: {"code": "not_found", "retryable": false}.
type queryError struct {
	err  error
	kind graph.Kind
}

func newQueryError(err error) *queryError {
	return &queryError{err: err, kind: graph.KindOf(err)}
}

// Error hides the cause of internal errors from clients.
func (e *queryError) Error() string {
	if e.kind == graph.KindInternal {
		return http.StatusText(http.StatusInternalServerError)
	}
	return e.err.Error()
}

func (e *queryError) Unwrap() error { return e.err }

// Extensions implements gqlerrors.ExtendedError.
func (e *queryError) Extensions() map[string]any {
	return map[string]any{
		"code":      e.kind.String(),
		"retryable": graph.IsRetryable(e.err),
	}
}
