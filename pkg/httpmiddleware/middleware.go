// Package httpmiddleware provides the small set of HTTP server middleware the
// development catalog stub uses: panic recovery, request IDs, CORS, and
// request logging.
package httpmiddleware

import "net/http"

// Middleware wraps an http.Handler with additional behaviour.
type Middleware func(http.Handler) http.Handler

// Wrap applies middleware to handler so that the first middleware is the
// outermost: Wrap(h, a, b) produces a(b(h)).
func Wrap(handler http.Handler, middleware ...Middleware) http.Handler {
	for i := len(middleware) - 1; i >= 0; i-- {
		handler = middleware[i](handler)
	}
	return handler
}
