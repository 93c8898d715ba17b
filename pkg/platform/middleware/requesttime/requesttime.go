// Package requesttime pins one "now" per request, so a record's created_at and
// a decision's updated_at agree with the access log line.
package requesttime

import (
	"net/http"
	"time"

	"recensement/pkg/requestcontext"
)

// Middleware stamps requests with the wall clock.
func Middleware(next http.Handler) http.Handler {
	return WithClock(time.Now)(next)
}

// WithClock stamps requests with now(). Tests use it to freeze time.
func WithClock(now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithTime(r.Context(), now())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
