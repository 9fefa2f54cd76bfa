package graphql

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

type httpResponse struct {
	Data   map[string]any `json:"data"`
	Errors []struct {
		Message    string         `json:"message"`
		Extensions map[string]any `json:"extensions"`
	} `json:"errors"`
}

func serve(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, httpResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body httpResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return rec, body
}

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	schema, _, _ := newTestSchema(t)
	return NewHandler(schema, Limits{}, nil)
}

func TestHandlerPost(t *testing.T) {
	h := newTestHandler(t)

	payload, _ := json.Marshal(Request{
		Query:     `query Impact($id: ID!) { impact(id: $id) { entityId riskLevel } }`,
		Variables: map[string]any{"id": "Z"},
	})
	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	rec, body := serve(t, h, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if len(body.Errors) > 0 {
		t.Fatalf("errors = %+v", body.Errors)
	}
	impact, _ := body.Data["impact"].(map[string]any)
	if impact["entityId"] != "Z" {
		t.Errorf("impact = %v", impact)
	}
}

func TestHandlerGet(t *testing.T) {
	h := newTestHandler(t)

	q := url.Values{}
	q.Set("query", `query Chains($id: ID!) { chains(id: $id, depth: 1) { depth } }`)
	q.Set("variables", `{"id":"X"}`)
	q.Set("operationName", "Chains")

	rec, body := serve(t, h, httptest.NewRequest(http.MethodGet, "/graphql?"+q.Encode(), nil))
	if rec.Code != http.StatusOK || len(body.Errors) > 0 {
		t.Fatalf("status = %d errors = %+v", rec.Code, body.Errors)
	}
	chains, _ := body.Data["chains"].(map[string]any)
	if chains["depth"] != float64(1) {
		t.Errorf("chains = %v", chains)
	}
}

func TestHandlerFieldErrorsAreOK(t *testing.T) {
	h := newTestHandler(t)

	payload, _ := json.Marshal(Request{Query: `{ impact(id: "missing") { entityId } }`})
	rec, body := serve(t, h, httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(payload)))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if len(body.Errors) != 1 {
		t.Fatalf("errors = %+v", body.Errors)
	}
	if body.Errors[0].Extensions["code"] != "not_found" {
		t.Errorf("extensions = %v", body.Errors[0].Extensions)
	}
}

func TestHandlerBadRequests(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		name   string
		req    *http.Request
		status int
	}{
		{"malformed body", httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewBufferString(`{"query":`)), http.StatusBadRequest},
		{"missing query", httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewBufferString(`{}`)), http.StatusBadRequest},
		{"bad variables", httptest.NewRequest(http.MethodGet, "/graphql?query=%7Bsnapshot%7Bentities%7D%7D&variables=nope", nil), http.StatusBadRequest},
		{"wrong method", httptest.NewRequest(http.MethodPut, "/graphql", nil), http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := serve(t, h, tt.req)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if len(body.Errors) != 1 || body.Errors[0].Message == "" {
				t.Errorf("errors = %+v", body.Errors)
			}
		})
	}
}
