package api

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-archgraph/pkg/graph"
)

func TestQueryReader(t *testing.T) {
	r := httptest.NewRequest("GET", "/x?depth=3&threshold=42.5&weighted=true&ids=a,b&ids=c&order=+recency+", nil)
	q := newQueryReader(r, "test")

	require.NotNil(t, q.IntPtr("depth"))
	assert.Equal(t, 3, *q.IntPtr("depth"))
	assert.Nil(t, q.IntPtr("missing"))
	assert.Equal(t, 7, q.Int("missing", 7))
	assert.InDelta(t, 42.5, *q.FloatPtr("threshold"), 1e-9)
	assert.True(t, q.Bool("weighted"))
	assert.False(t, q.Bool("includeEmpty"))
	assert.Equal(t, []string{"a", "b", "c"}, q.List("ids"))
	assert.Equal(t, "recency", q.String("order"))
	assert.NoError(t, q.Err())
}

func TestQueryReader_FirstErrorWins(t *testing.T) {
	r := httptest.NewRequest("GET", "/x?depth=deep&threshold=high", nil)
	q := newQueryReader(r, "chains")

	assert.Nil(t, q.IntPtr("depth"))
	assert.Nil(t, q.FloatPtr("threshold"))

	err := q.Err()
	require.Error(t, err)
	assert.Equal(t, graph.KindInvalidArgument, graph.KindOf(err))
	assert.Contains(t, err.Error(), "depth")
	assert.NotContains(t, err.Error(), "threshold")
}

func TestRequestDecoder(t *testing.T) {
	s := NewServer(nil)

	tests := []struct {
		name       string
		body       string
		allowEmpty bool
		wantErr    bool
	}{
		{"valid", `{"reason":"import"}`, false, false},
		{"empty allowed", ``, true, false},
		{"empty rejected", ``, false, true},
		{"unknown field", `{"why":"import"}`, true, true},
		{"malformed", `{"reason":`, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/relationships/invalidate", strings.NewReader(tt.body))

			var v InvalidateRequest
			failed := s.newRequestDecoder(rec, req, "invalidate").DecodeJSON(&v, tt.allowEmpty).RespondError()
			assert.Equal(t, tt.wantErr, failed)
			if tt.wantErr {
				assert.Equal(t, 400, rec.Code)
			}
		})
	}
}

func TestRequestDecoder_Validate(t *testing.T) {
	s := NewServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/relationships/matrix", strings.NewReader(`{"order":"alphabetical"}`))

	var body MatrixRequestBody
	rd := s.newRequestDecoder(rec, req, "matrix").DecodeJSON(&body, false)
	require.NoError(t, rd.err)

	// Order is validated by the matrix request rules, not by decoding.
	assert.True(t, rd.Validate(&struct {
		Order string `validate:"oneof=criticality recency"`
	}{Order: body.Order}).RespondError())
	assert.Equal(t, 400, rec.Code)
}
