package httpserver

import (
	"net/http"
	"time"
)

// New builds the portal's HTTP server. Write and idle timeouts are generous
// because transition applies may wait on the row lock under contention.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
