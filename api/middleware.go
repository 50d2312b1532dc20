package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/zest-protocol/dashboard/logger"
	"github.com/zest-protocol/dashboard/metrics"
	"golang.org/x/time/rate"
)

// accessLog logs every request and records its latency under the matched
// route pattern.
func accessLog(log logger.Logger, rec metrics.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			elapsed := time.Since(start)

			rec.ObserveLatency("http_request", elapsed, map[string]string{"status": strconv.Itoa(status)})
			rec.IncCounter("http_"+r.Method+" "+route, map[string]string{"status": strconv.Itoa(status)})
			log.Info("http request", map[string]any{
				"method":      r.Method,
				"path":        r.URL.Path,
				"route":       route,
				"status":      status,
				"duration_ms": elapsed.Milliseconds(),
				"request_id":  middleware.GetReqID(r.Context()),
			})
		})
	}
}

// rateLimit applies one token bucket to every request. rps <= 0 disables it.
func rateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
					Error: http.StatusText(http.StatusTooManyRequests),
					Code:  codeRateLimited,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
