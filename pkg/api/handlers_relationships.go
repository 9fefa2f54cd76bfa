package api

import (
	"net/http"
	"time"

	"github.com/dd0wney/cluso-archgraph/pkg/algorithms"
	"github.com/dd0wney/cluso-archgraph/pkg/engine"
	"github.com/dd0wney/cluso-archgraph/pkg/graph"
	"github.com/dd0wney/cluso-archgraph/pkg/logging"
	"github.com/dd0wney/cluso-archgraph/pkg/storage"
	"github.com/dd0wney/cluso-archgraph/pkg/validation"
)

func validateRequest(op string, req any) error {
	if err := validation.ValidateRequest(req); err != nil {
		return graph.InvalidArgument(op, "%v", err)
	}
	return nil
}

func parseTypes(op string, names []string) ([]storage.RelationshipType, error) {
	types, err := validation.ParseTypes(names)
	if err != nil {
		return nil, graph.InvalidArgument(op, "%v", err)
	}
	return types, nil
}

// GET /relationships/{id}/chains?depth=3&types=depends_on,implements
func (s *Server) handleChains(w http.ResponseWriter, r *http.Request) {
	const op = "chains"
	q := newQueryReader(r, op)
	req := validation.ChainsRequest{
		ID:    r.PathValue("id"),
		Depth: q.IntPtr("depth"),
		Types: q.List("types"),
	}
	if err := q.Err(); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := validateRequest(op, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	types, err := parseTypes(op, req.Types)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	res, err := s.engine.Chains(r.Context(), engine.ChainsQuery{ID: req.ID, Depth: req.Depth, Types: types})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

// GET /relationships/{id}/impact
func (s *Server) handleImpact(w http.ResponseWriter, r *http.Request) {
	req := validation.ImpactRequest{ID: r.PathValue("id")}
	if err := validateRequest("impact", &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	res, err := s.engine.Impact(r.Context(), req.ID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

// GET /relationships/matrix?ids=a,b&limit=20&weighted=true&order=criticality
func (s *Server) handleMatrix(w http.ResponseWriter, r *http.Request) {
	q := newQueryReader(r, "matrix")
	req := validation.MatrixRequest{
		IDs:          q.List("ids"),
		Limit:        q.Int("limit", 0),
		Weighted:     q.Bool("weighted"),
		IncludeEmpty: q.Bool("includeEmpty"),
		Order:        q.String("order"),
		Types:        q.List("types"),
	}
	if err := q.Err(); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.serveMatrix(w, r, req)
}

// POST /relationships/matrix with a MatrixRequestBody.
func (s *Server) handleMatrixBody(w http.ResponseWriter, r *http.Request) {
	var body MatrixRequestBody
	if s.newRequestDecoder(w, r, "matrix").DecodeJSON(&body, false).RespondError() {
		return
	}
	s.serveMatrix(w, r, validation.MatrixRequest(body))
}

func (s *Server) serveMatrix(w http.ResponseWriter, r *http.Request, req validation.MatrixRequest) {
	const op = "matrix"
	if err := validateRequest(op, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	types, err := parseTypes(op, req.Types)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	order, err := algorithms.ParseOrderBy(req.Order)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	res, err := s.engine.Matrix(r.Context(), engine.MatrixQuery{
		IDs:          req.IDs,
		Limit:        req.Limit,
		Weighted:     req.Weighted,
		IncludeEmpty: req.IncludeEmpty,
		OrderBy:      order,
		Types:        types,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

// GET /relationships/critical-paths?limit=10&threshold=40
func (s *Server) handleCriticalPaths(w http.ResponseWriter, r *http.Request) {
	const op = "critical_paths"
	q := newQueryReader(r, op)
	req := validation.CriticalPathsRequest{
		Limit:     q.IntPtr("limit"),
		Threshold: q.FloatPtr("threshold"),
		Types:     q.List("types"),
	}
	if err := q.Err(); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := validateRequest(op, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	types, err := parseTypes(op, req.Types)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	paths, err := s.engine.CriticalPaths(r.Context(), engine.PathsQuery{
		Limit:     req.Limit,
		Threshold: req.Threshold,
		Types:     types,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if paths == nil {
		paths = []algorithms.CriticalPath{}
	}
	s.respondJSON(w, http.StatusOK, paths)
}

// GET /relationships/types
func (s *Server) handleTypes(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.RelationshipTypes(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

// GET /relationships/cycles?limit=50&maxLength=6&types=depends_on
func (s *Server) handleCycles(w http.ResponseWriter, r *http.Request) {
	const op = "cycles"
	q := newQueryReader(r, op)
	req := validation.CyclesRequest{
		Limit:     q.Int("limit", 0),
		MaxLength: q.Int("maxLength", 0),
		Types:     q.List("types"),
	}
	if err := q.Err(); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := validateRequest(op, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	types, err := parseTypes(op, req.Types)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	report, err := s.engine.Cycles(r.Context(), engine.CyclesQuery{
		Types:     types,
		MaxLength: req.MaxLength,
		Limit:     req.Limit,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if report.Cycles == nil {
		report.Cycles = []algorithms.Cycle{}
	}
	if report.Tangles == nil {
		report.Tangles = []algorithms.Tangle{}
	}
	s.respondJSON(w, http.StatusOK, report)
}

// GET /relationships/snapshot returns the statistics of the current
// snapshot, building it if needed.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.Snapshot(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}

// POST /relationships/invalidate marks the snapshot stale. The CRUD layer
// calls it after writes when the change bridge is not deployed.
func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	var req InvalidateRequest
	if s.newRequestDecoder(w, r, "invalidate").DecodeJSON(&req, true).RespondError() {
		return
	}

	s.engine.Invalidate(engine.SourceManual)
	s.logger.Info("snapshot invalidated",
		logging.String("source", engine.SourceManual),
		logging.String("reason", req.Reason),
	)
	s.respondJSON(w, http.StatusAccepted, InvalidateResponse{Status: "invalidated", At: time.Now().UTC()})
}
