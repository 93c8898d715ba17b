package testutil

import (
	"context"
	"net/http"

	"recensement/internal/models"
	"recensement/pkg/requestcontext"
)

// WithCaller attaches an authenticated identity to the request context.
// This simulates what the auth middleware does after validating a token.
func WithCaller(req *http.Request, ident models.Identity) *http.Request {
	return req.WithContext(requestcontext.WithCaller(req.Context(), ident))
}

// WithBearer sets the Authorization header.
func WithBearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
