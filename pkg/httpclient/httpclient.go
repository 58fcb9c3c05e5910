// Package httpclient provides composable http.RoundTripper decorators for
// outbound requests: request IDs, logging, and OpenTelemetry instrumentation.
package httpclient

import "net/http"

// Decorator wraps an http.RoundTripper with additional behaviour.
type Decorator func(http.RoundTripper) http.RoundTripper

// roundTripFunc adapts a function to http.RoundTripper.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Wrap applies decorators to base so that the first decorator is the
// outermost: Wrap(base, a, b) produces a(b(base)).
func Wrap(base http.RoundTripper, decorators ...Decorator) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	rt := base
	for i := len(decorators) - 1; i >= 0; i-- {
		rt = decorators[i](rt)
	}
	return rt
}
