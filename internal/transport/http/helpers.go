package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"recensement/internal/models"
	dErrors "recensement/pkg/domain-errors"
	"recensement/pkg/platform/httputil"
	request "recensement/pkg/platform/middleware/request"
	"recensement/pkg/requestcontext"
)

// caller returns the identity placed in the context by the auth middleware.
// A missing identity yields the zero value, which services reject.
func caller(r *http.Request) models.Identity {
	ident, _ := requestcontext.Caller(r.Context())
	return ident
}

// pathID parses the {name} URL parameter with parse, mapping failures to a
// bad request.
func pathID[T any](r *http.Request, name string, parse func(string) (T, error)) (T, error) {
	v, err := parse(chi.URLParam(r, name))
	if err != nil {
		var zero T
		return zero, dErrors.New(dErrors.CodeBadRequest, err.Error())
	}
	return v, nil
}

// respondError writes err and logs it. Server-side failures are logged at
// error level with the cause; client errors at debug.
func respondError(ctx context.Context, logger *slog.Logger, w http.ResponseWriter, op string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		logger.ErrorContext(ctx, op+" failed",
			"request_id", request.GetRequestID(ctx),
			"error", err.Error(),
		)
	} else {
		logger.DebugContext(ctx, op+" rejected",
			"request_id", request.GetRequestID(ctx),
			"code", string(dErrors.CodeOf(err)),
		)
	}
	httputil.WriteError(w, err)
}
