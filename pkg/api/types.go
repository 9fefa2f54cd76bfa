package api

import "time"

// ErrorResponse is the body of every non-2xx response. Error is the error
// kind (not_found, invalid_argument, unavailable, timeout, internal).
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Code      int    `json:"code"`
	Retryable bool   `json:"retryable"`
	RequestID string `json:"requestId,omitempty"`
}

// MatrixRequestBody is the POST form of the matrix query, for id lists too
// long for a query string.
type MatrixRequestBody struct {
	IDs          []string `json:"ids"`
	Limit        int      `json:"limit"`
	Weighted     bool     `json:"weighted"`
	IncludeEmpty bool     `json:"includeEmpty"`
	Order        string   `json:"order"`
	Types        []string `json:"types"`
}

// InvalidateRequest is the optional body of POST /relationships/invalidate.
type InvalidateRequest struct {
	Reason string `json:"reason,omitempty"`
}

// InvalidateResponse acknowledges an invalidation.
type InvalidateResponse struct {
	Status string    `json:"status"`
	At     time.Time `json:"at"`
}
