package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/rosterhq/roster/pkg/metrics"
)

// Metrics records request counts, durations, and in-flight gauge for
// every routed request. The route label is the chi route pattern
// ("/candidates/job/{jobId}/status"), not the raw path, so cardinality
// stays bounded. A nil recorder disables the middleware.
func Metrics(m metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.RecordRequestStart()
			defer m.RecordRequestEnd()

			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			// The route pattern is only known after routing ran.
			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			m.RecordRequest(r.Method, route, ww.Status(), time.Since(start))
		})
	}
}
