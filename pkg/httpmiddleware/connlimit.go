package httpmiddleware

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// ConnLimit returns a middleware that caps the number of requests served
// concurrently. Requests over the cap are rejected with 503 immediately
// instead of queueing, since each admitted request here is a long-lived
// websocket connection. A non-positive max disables the cap.
func ConnLimit(max int) Middleware {
	if max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	slots := make(chan struct{}, max)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case slots <- struct{}{}:
				defer func() { <-slots }()
				next.ServeHTTP(w, r)
			default:
				zctx.From(r.Context()).Warn("Connection limit reached",
					zap.Int("max", max),
				)
				http.Error(w, "Too Many Connections", http.StatusServiceUnavailable)
			}
		})
	}
}
