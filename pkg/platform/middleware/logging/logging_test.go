package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type observation struct {
	route, method, status string
}

type recordingObserver struct {
	seen []observation
}

func (o *recordingObserver) ObserveHTTPRequest(route, method, status string, _ time.Time) {
	o.seen = append(o.seen, observation{route, method, status})
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	observer := &recordingObserver{}

	r := chi.NewRouter()
	r.Use(AccessLog(logger, observer))
	r.Get("/records/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/records/12", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0")
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, observer.seen, 1)
	assert.Equal(t, observation{"/records/{id}", http.MethodGet, "404"}, observer.seen[0])

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "/records/{id}", line["route"])
	assert.Equal(t, "/records/12", line["path"])
	assert.EqualValues(t, 404, line["status"])
	assert.Contains(t, line["client"], "Firefox")
}

func TestAccessLogDefaultsToOK(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	handler := AccessLog(logger, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.EqualValues(t, 200, line["status"])
	assert.Equal(t, "INFO", line["level"])
}
