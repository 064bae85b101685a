package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/stackcast/stackcast/internal/metrics"
)

// Metrics returns middleware recording request counts and latencies per
// method and route pattern. Patterns are resolved against the mux so IDs
// and wallets do not explode label cardinality.
func Metrics(mux *http.ServeMux) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}
			next.ServeHTTP(rw, r)

			_, route := mux.Handler(r)
			if route == "" {
				route = "unmatched"
			}
			metrics.HTTPRequests.WithLabelValues(
				r.Method, route, strconv.Itoa(rw.statusCode),
			).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(
				r.Method, route,
			).Observe(time.Since(start).Seconds())
		})
	}
}
