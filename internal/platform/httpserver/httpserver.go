package httpserver

import (
	"net/http"
	"time"
)

const (
	defaultReadHeaderTimeout = 5 * time.Second
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 60 * time.Second
	// Record payloads are bounded by httputil.MaxBodyBytes; headers stay small.
	maxHeaderBytes = 64 << 10
)

type Option func(*http.Server)

// WithWriteTimeout overrides the response write deadline. Non-positive values
// are ignored.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *http.Server) {
		if d > 0 {
			s.WriteTimeout = d
		}
	}
}

// New builds the API server with read, write and idle deadlines set.
func New(addr string, handler http.Handler, opts ...Option) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		ReadTimeout:       defaultReadTimeout,
		WriteTimeout:      defaultWriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
		MaxHeaderBytes:    maxHeaderBytes,
	}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}
