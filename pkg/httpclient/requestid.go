package httpclient

import (
	"net/http"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// RequestID returns a decorator that stamps outbound requests with a unique
// X-Request-ID header (UUID v4) when the caller has not set one, so catalog
// calls can be correlated across the boundary.
func RequestID() Decorator {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripFunc(func(req *http.Request) (*http.Response, error) {
			if req.Header.Get(requestIDHeader) == "" {
				// Clone: RoundTrippers must not mutate the caller's request.
				req = req.Clone(req.Context())
				req.Header.Set(requestIDHeader, uuid.New().String())
			}
			return next.RoundTrip(req)
		})
	}
}
