package auth

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recensement/internal/models"
	id "recensement/pkg/domain"
	"recensement/pkg/requestcontext"
)

type stubValidator map[string]models.Identity

func (v stubValidator) ValidateToken(token string) (models.Identity, error) {
	ident, ok := v[token]
	if !ok {
		return models.Identity{}, errors.New("bad token")
	}
	return ident, nil
}

func TestRequireAuth(t *testing.T) {
	chef := models.Identity{ID: id.UserID(3), Role: id.RoleSupervisor, Username: "chef"}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var seen models.Identity
	var called bool
	handler := RequireAuth(stubValidator{"good": chef}, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		seen, _ = requestcontext.Caller(r.Context())
	}))

	t.Run("valid bearer token places the caller in context", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodGet, "/records", nil)
		req.Header.Set("Authorization", "Bearer good")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.True(t, called)
		assert.Equal(t, chef, seen)
	})

	for name, header := range map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic good",
		"empty token":    "Bearer ",
		"invalid token":  "Bearer nope",
	} {
		t.Run(name, func(t *testing.T) {
			called = false
			req := httptest.NewRequest(http.MethodGet, "/records", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.False(t, called)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "unauthorized", body["error"])
		})
	}
}
