package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"

	"github.com/anziyang2000/hq-code-sub003/internal/observability"
)

// MetricsMiddleware records request durations for Prometheus and wraps the
// request in a span named after the matched route.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		ctx, span := observability.StartSpan(r.Context(), "http "+r.Method,
			attribute.String("http.method", r.Method),
			attribute.String("http.target", r.URL.Path),
		)
		next.ServeHTTP(rw, r.WithContext(ctx))

		pattern := routePattern(r)
		span.SetAttributes(
			attribute.String("http.route", pattern),
			attribute.Int("http.status_code", rw.status),
		)
		var spanErr error
		if rw.status >= http.StatusInternalServerError {
			spanErr = fmt.Errorf("http status %d", rw.status)
		}
		observability.EndSpan(span, spanErr)
		observability.ObserveHTTP(r.Method, pattern, rw.status, time.Since(start))
	})
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
