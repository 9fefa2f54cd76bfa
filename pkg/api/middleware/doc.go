// Package middleware provides the HTTP middleware used by the query API.
//
// Every middleware has the shape func(http.Handler) http.Handler and is
// applied outermost first:
//
//	handler := middleware.Metrics(registry)(mux)
//	handler = middleware.BodySizeLimit(middleware.DefaultMaxBodyBytes)(handler)
//	handler = middleware.CORS(corsConfig)(handler)
//	handler = middleware.SecurityHeaders(nil)(handler)
//	handler = middleware.Logging(logger)(handler)
//	handler = middleware.RequestID()(handler)
//	handler = middleware.PanicRecovery(logger)(handler)
//
// Metrics sits directly on the mux so it can label requests with the matched
// route pattern rather than the raw path.
package middleware
