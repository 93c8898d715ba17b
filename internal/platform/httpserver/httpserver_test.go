package httpserver

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	h := http.NewServeMux()

	srv := New(":9090", h)
	assert.Equal(t, ":9090", srv.Addr)
	assert.Equal(t, 5*time.Second, srv.ReadHeaderTimeout)
	assert.Equal(t, 30*time.Second, srv.WriteTimeout)
	assert.Equal(t, 60*time.Second, srv.IdleTimeout)

	srv = New(":9090", h, WithWriteTimeout(2*time.Minute), WithWriteTimeout(0))
	assert.Equal(t, 2*time.Minute, srv.WriteTimeout)
}
