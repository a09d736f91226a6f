// Package httpserver builds the engine's HTTP server. Timeouts come from
// runtime configuration so slow registration-form clients cannot pin
// connections open indefinitely.
package httpserver

import (
	"net/http"
	"time"

	"enrollgate/internal/platform/config"
)

const readHeaderTimeout = 5 * time.Second

// New builds the server from the configured listen address and timeouts.
func New(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}
}
