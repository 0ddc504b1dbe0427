package observability

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// unmatchedRoute labels requests that no route pattern matched.
const unmatchedRoute = "unmatched"

type routeKey struct{}

// routeInfo carries the matched route pattern from the mux back out to
// MetricsMiddleware.
type routeInfo struct {
	route string
}

// MetricsMiddleware wraps an HTTP handler to record request metrics.
//
// It captures:
//   - orch_requests_total (counter): method, route, and status class labels
//   - orch_request_duration_seconds (histogram): method and route labels
//
// The route label is the ServeMux pattern reported by RouteRecorder.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		info := &routeInfo{route: unmatchedRoute}
		r = r.WithContext(context.WithValue(r.Context(), routeKey{}, info))

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		statusStr := strconv.Itoa(sw.status/100) + "xx"

		RequestsTotal.WithLabelValues(r.Method, info.route, statusStr).Inc()
		RequestDuration.WithLabelValues(r.Method, info.route).Observe(time.Since(start).Seconds())
	})
}

// RouteRecorder wraps a *http.ServeMux so that the pattern it matched is
// visible to an enclosing MetricsMiddleware. The method prefix of the
// pattern is dropped.
func RouteRecorder(mux http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, r)

		info, ok := r.Context().Value(routeKey{}).(*routeInfo)
		if !ok || r.Pattern == "" {
			return
		}
		route := r.Pattern
		if _, path, found := strings.Cut(route, " "); found {
			route = path
		}
		info.route = route
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

// WriteHeader captures the status code and delegates to the underlying writer.
func (w *statusWriter) WriteHeader(status int) {
	if !w.written {
		w.status = status
		w.written = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.written = true
	}
	return w.ResponseWriter.Write(b)
}

// Flush delegates to the underlying writer if it implements http.Flusher.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter, enabling http.ResponseController
// and similar utilities to access the original writer.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
