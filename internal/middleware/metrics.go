package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jaekwang-park/project-board/internal/metrics"
)

// Metrics records request counts and latency per chi route pattern, so
// /projects/{project} is one series rather than one per id.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			ctx, info := trackRequest(r.Context())
			next.ServeHTTP(rec, r.WithContext(ctx))
			method := info.effectiveMethod(r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}
			m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(rec.statusCode)).Inc()
			m.HTTPDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
		})
	}
}
