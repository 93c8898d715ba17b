// Package admin guards operator endpoints such as /metrics with a shared token.
package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	dErrors "recensement/pkg/domain-errors"
	"recensement/pkg/platform/httputil"
	request "recensement/pkg/platform/middleware/request"
)

// HeaderAdminToken carries the operator token. "Authorization: Bearer <token>"
// is accepted as well so that Prometheus bearer_token configs work unchanged.
const HeaderAdminToken = "X-Admin-Token"

var errTokenRequired = dErrors.New(dErrors.CodeUnauthorized, "admin token required")

func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	want := []byte(expectedToken)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if subtle.ConstantTimeCompare([]byte(presentedToken(r)), want) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", request.GetRequestID(ctx),
					"path", r.URL.Path,
				)
				httputil.WriteError(w, errTokenRequired)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func presentedToken(r *http.Request) string {
	if token := r.Header.Get(HeaderAdminToken); token != "" {
		return token
	}
	token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return token
}
