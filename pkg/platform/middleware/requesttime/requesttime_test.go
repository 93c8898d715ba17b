package requesttime

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"recensement/pkg/requestcontext"
)

func TestMiddlewareFreezesTime(t *testing.T) {
	var first, second time.Time
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		first = requestcontext.Now(r.Context())
		time.Sleep(2 * time.Millisecond)
		second = requestcontext.Now(r.Context())
	}))

	before := time.Now()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, first, second)
	assert.False(t, first.Before(before))
}

func TestWithClock(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)
	var got time.Time
	handler := WithClock(func() time.Time { return fixed })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = requestcontext.Now(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, fixed, got)
}
