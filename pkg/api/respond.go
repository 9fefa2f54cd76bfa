package api

import (
	"encoding/json"
	"net/http"

	"github.com/dd0wney/cluso-archgraph/pkg/api/middleware"
	"github.com/dd0wney/cluso-archgraph/pkg/graph"
	"github.com/dd0wney/cluso-archgraph/pkg/logging"
)

// statusForKind maps error kinds onto HTTP status codes.
func statusForKind(k graph.Kind) int {
	switch k {
	case graph.KindNotFound:
		return http.StatusNotFound
	case graph.KindInvalidArgument:
		return http.StatusBadRequest
	case graph.KindUnavailable:
		return http.StatusServiceUnavailable
	case graph.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode response", logging.Error(err))
	}
}

// respondError classifies err and writes the error body. Internal errors are
// logged in full and reported to the client generically.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	kind := graph.KindOf(err)
	status := statusForKind(kind)
	requestID := middleware.GetRequestID(r)

	message := err.Error()
	if kind == graph.KindInternal {
		s.logger.Error("request failed",
			logging.Error(err),
			logging.String("path", r.URL.Path),
			logging.RequestID(requestID),
		)
		message = http.StatusText(status)
	}

	s.respondJSON(w, status, ErrorResponse{
		Error:     kind.String(),
		Message:   message,
		Code:      status,
		Retryable: graph.IsRetryable(err),
		RequestID: requestID,
	})
}
