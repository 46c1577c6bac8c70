// Package httpserver wraps the standard http.Server with the timeouts every
// deployment of this service should carry.
package httpserver

import (
	"net/http"
	"time"
)

// New creates an http.Server with sane defaults. Write timeout stays generous:
// issuance requests can hold the connection through a ledger confirmation wait.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}
}
