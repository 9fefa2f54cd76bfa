package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dd0wney/cluso-archgraph/pkg/graph"
	"github.com/dd0wney/cluso-archgraph/pkg/validation"
)

// requestDecoder decodes and validates request bodies.
// It provides a fluent interface for common request handling patterns.
type requestDecoder struct {
	r      *http.Request
	w      http.ResponseWriter
	server *Server
	op     string
	err    error
}

// newRequestDecoder creates a decoder whose errors are reported against op.
func (s *Server) newRequestDecoder(w http.ResponseWriter, r *http.Request, op string) *requestDecoder {
	return &requestDecoder{r: r, w: w, server: s, op: op}
}

// DecodeJSON decodes the request body into v. An empty body leaves v
// untouched when allowEmpty is set.
func (rd *requestDecoder) DecodeJSON(v any, allowEmpty bool) *requestDecoder {
	if rd.err != nil {
		return rd
	}
	dec := json.NewDecoder(rd.r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return rd
		}
		rd.err = graph.InvalidArgument(rd.op, "invalid request body: %v", err)
	}
	return rd
}

// Validate runs struct tag validation on req.
func (rd *requestDecoder) Validate(req any) *requestDecoder {
	if rd.err != nil {
		return rd
	}
	if err := validation.ValidateRequest(req); err != nil {
		rd.err = graph.InvalidArgument(rd.op, "%v", err)
	}
	return rd
}

// RespondError sends the error response and returns true if there was an error.
func (rd *requestDecoder) RespondError() bool {
	if rd.err == nil {
		return false
	}
	rd.server.respondError(rd.w, rd.r, rd.err)
	return true
}

// queryReader parses URL query parameters, keeping the first error.
type queryReader struct {
	values url.Values
	op     string
	err    error
}

func newQueryReader(r *http.Request, op string) *queryReader {
	return &queryReader{values: r.URL.Query(), op: op}
}

func (q *queryReader) raw(name string) (string, bool) {
	v := strings.TrimSpace(q.values.Get(name))
	return v, v != ""
}

func (q *queryReader) fail(name, format string, args ...any) {
	if q.err == nil {
		q.err = graph.InvalidArgument(q.op, "%s: %s", name, fmt.Sprintf(format, args...))
	}
}

// IntPtr returns nil when the parameter is absent.
func (q *queryReader) IntPtr(name string) *int {
	v, ok := q.raw(name)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		q.fail(name, "%q is not an integer", v)
		return nil
	}
	return &n
}

// Int returns def when the parameter is absent.
func (q *queryReader) Int(name string, def int) int {
	if p := q.IntPtr(name); p != nil {
		return *p
	}
	return def
}

// FloatPtr returns nil when the parameter is absent.
func (q *queryReader) FloatPtr(name string) *float64 {
	v, ok := q.raw(name)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		q.fail(name, "%q is not a number", v)
		return nil
	}
	return &f
}

// Bool accepts the strconv.ParseBool spellings; absent is false.
func (q *queryReader) Bool(name string) bool {
	v, ok := q.raw(name)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		q.fail(name, "%q is not a boolean", v)
		return false
	}
	return b
}

// String returns the trimmed parameter.
func (q *queryReader) String(name string) string {
	v, _ := q.raw(name)
	return v
}

// List splits a comma separated parameter. Repeated parameters are merged,
// so ids=a,b and ids=a&ids=b are equivalent.
func (q *queryReader) List(name string) []string {
	var out []string
	for _, v := range q.values[name] {
		out = append(out, validation.SplitList(v)...)
	}
	return out
}

// Err returns the first parse error.
func (q *queryReader) Err() error {
	return q.err
}
