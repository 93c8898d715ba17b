// Package logging writes one structured access log line per request.
package logging

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"recensement/pkg/platform/middleware/device"
	request "recensement/pkg/platform/middleware/request"
	"recensement/pkg/requestcontext"
)

// DurationObserver receives the latency of every served request.
type DurationObserver interface {
	ObserveHTTPRequest(route, method, status string, start time.Time)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// AccessLog logs method, route, status and duration. observer may be nil.
func AccessLog(logger *slog.Logger, observer DurationObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			if rec.status == 0 {
				rec.status = http.StatusOK
			}

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			if observer != nil {
				observer.ObserveHTTPRequest(route, r.Method, strconv.Itoa(rec.status), start)
			}

			ctx := r.Context()
			attrs := []any{
				"method", r.Method,
				"route", route,
				"path", r.URL.Path,
				"status", rec.status,
				"bytes", rec.bytes,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", request.GetRequestID(ctx),
				"client_ip", requestcontext.ClientIP(ctx),
				"client", device.ParseUserAgent(r.UserAgent()),
			}
			switch {
			case rec.status >= http.StatusInternalServerError:
				logger.ErrorContext(ctx, "http request", attrs...)
			case rec.status >= http.StatusBadRequest:
				logger.WarnContext(ctx, "http request", attrs...)
			default:
				logger.InfoContext(ctx, "http request", attrs...)
			}
		})
	}
}
