package middleware

import (
	"net/http"
)

// DefaultMaxBodyBytes bounds request bodies (matrix id lists, GraphQL
// documents).
const DefaultMaxBodyBytes int64 = 1 << 20

// BodySizeLimit rejects requests whose declared length exceeds maxBytes and
// caps the readable body for chunked requests.
func BodySizeLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
