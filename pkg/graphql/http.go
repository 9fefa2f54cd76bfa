package graphql

import (
	"encoding/json"
	"net/http"

	"github.com/graphql-go/graphql"

	"github.com/dd0wney/cluso-archgraph/pkg/logging"
)

// maxRequestBytes bounds a POST body independently of the API body limit.
const maxRequestBytes = 1 << 20

// Handler serves the schema over HTTP. GET takes query, variables and
// operationName parameters; POST takes a JSON Request body. CORS and
// request ids are left to the surrounding middleware.
type Handler struct {
	schema graphql.Schema
	limits Limits
	logger logging.Logger
}

// NewHandler creates an HTTP handler for schema.
func NewHandler(schema graphql.Schema, limits Limits, logger logging.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Handler{
		schema: schema,
		limits: limits.withDefaults(),
		logger: logger.With(logging.Component("graphql")),
	}
}

// ServeHTTP decodes the request, executes it and writes the result. Field
// errors are reported in the body with status 200; only malformed requests
// get a 4xx status.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req Request
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.Query = q.Get("query")
		req.OperationName = q.Get("operationName")
		if vars := q.Get("variables"); vars != "" {
			if err := json.Unmarshal([]byte(vars), &req.Variables); err != nil {
				h.writeError(w, http.StatusBadRequest, "variables must be a JSON object")
				return
			}
		}
	case http.MethodPost:
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
		if err := dec.Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	default:
		w.Header().Set("Allow", "GET, POST")
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if req.Query == "" {
		h.writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	result := Execute(r.Context(), h.schema, req, h.limits)
	if result.HasErrors() {
		h.logger.Debug("graphql errors",
			logging.String("operation", req.OperationName),
			logging.Count(len(result.Errors)),
		)
	}
	h.write(w, http.StatusOK, result)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.write(w, status, map[string]any{
		"errors": []map[string]string{{"message": message}},
	})
}

func (h *Handler) write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("failed to encode response", logging.Error(err))
	}
}
