package httpclient

import (
	"net/http"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// LogRequests returns a decorator that logs every outbound request with its
// outcome and duration, using the logger carried in the request context.
func LogRequests() Decorator {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(req)

			lg := zctx.From(req.Context())
			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("url", req.URL.String()),
				zap.Duration("duration", time.Since(start)),
			}
			if err != nil {
				lg.Warn("Outbound request failed", append(fields, zap.Error(err))...)
				return resp, err
			}
			lg.Debug("Outbound request", append(fields, zap.Int("status", resp.StatusCode))...)
			return resp, nil
		})
	}
}
